package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestForLearnerStripsAnswerKey(t *testing.T) {
	q := Question{
		ID:           uuid.New(),
		AssessmentID: uuid.New(),
		Text:         "Which keyword declares a constant?",
		Type:         QuestionTypeSingleChoice,
		Points:       10,
		Difficulty:   "beginner",
		Options: []Option{
			{ID: "a", Text: "var"},
			{ID: "b", Text: "const", Correct: true},
		},
		CorrectAnswer: "b",
		Keywords:      []string{"const"},
		Rubric:        "full credit for const",
		OrderNum:      1,
		CreatedAt:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	lq := q.ForLearner()
	if lq.ID != q.ID || lq.Text != q.Text || lq.Points != q.Points || lq.OrderNum != q.OrderNum {
		t.Errorf("learner view lost presentation fields: %+v", lq)
	}
	if len(lq.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(lq.Options))
	}
	for _, opt := range lq.Options {
		if opt.ID == "" || opt.Text == "" {
			t.Errorf("option missing id/text: %+v", opt)
		}
	}
}

func TestCorrectOptionIDs(t *testing.T) {
	q := Question{Options: []Option{
		{ID: "a", Correct: true},
		{ID: "b"},
		{ID: "c", Correct: true},
	}}
	got := q.CorrectOptionIDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("CorrectOptionIDs = %v, want [a c]", got)
	}
}
