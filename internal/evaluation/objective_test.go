package evaluation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lernio/lernio-backend/internal/model"
)

func choiceQuestion(points float64, correct ...string) *model.Question {
	correctSet := make(map[string]bool)
	for _, id := range correct {
		correctSet[id] = true
	}

	q := &model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeSingleChoice,
		Text:   "Pick one",
		Points: points,
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		q.Options = append(q.Options, model.Option{ID: id, Text: id, Correct: correctSet[id]})
	}
	return q
}

func TestSingleChoice(t *testing.T) {
	q := choiceQuestion(10, "b")

	res := evaluateSingleChoice(q, "b")
	if !res.IsCorrect || res.PointsEarned != 10 {
		t.Fatalf("expected full credit, got %+v", res)
	}

	res = evaluateSingleChoice(q, " B ")
	if !res.IsCorrect {
		t.Fatalf("expected case/space-insensitive match, got %+v", res)
	}

	res = evaluateSingleChoice(q, "a")
	if res.IsCorrect || res.PointsEarned != 0 {
		t.Fatalf("expected zero for wrong option, got %+v", res)
	}
}

func TestTrueFalse(t *testing.T) {
	q := &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeTrueFalse,
		Points:        5,
		CorrectAnswer: "true",
	}

	if res := evaluateTrueFalse(q, "True"); !res.IsCorrect || res.PointsEarned != 5 {
		t.Fatalf("expected correct, got %+v", res)
	}
	if res := evaluateTrueFalse(q, "false"); res.IsCorrect {
		t.Fatalf("expected incorrect, got %+v", res)
	}

	// Key may also live in a marked option.
	q2 := &model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeTrueFalse,
		Points: 5,
		Options: []model.Option{
			{ID: "true", Correct: false},
			{ID: "false", Correct: true},
		},
	}
	if res := evaluateTrueFalse(q2, "false"); !res.IsCorrect {
		t.Fatalf("expected option-keyed match, got %+v", res)
	}
}

func TestMultiSelectPartialCredit(t *testing.T) {
	q := choiceQuestion(10, "a", "b")
	q.Type = model.QuestionTypeMultiSelect

	cases := []struct {
		name     string
		selected []string
		points   float64
		correct  bool
	}{
		{"all correct", []string{"a", "b"}, 10, true},
		{"one correct one missed", []string{"a"}, 3.75, false},
		{"one correct one wrong one missed", []string{"a", "c"}, 1.25, false},
		{"all wrong", []string{"c", "d"}, 0, false},
		{"duplicates ignored", []string{"a", "a", "b"}, 10, true},
		{"empty", nil, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := evaluateMultiSelect(q, tc.selected)
			if res.PointsEarned != tc.points {
				t.Fatalf("points = %v, want %v", res.PointsEarned, tc.points)
			}
			if res.IsCorrect != tc.correct {
				t.Fatalf("is_correct = %v, want %v", res.IsCorrect, tc.correct)
			}
		})
	}
}

// Adding a wrong option must never raise the score, and removing a correct
// one must never raise it either.
func TestMultiSelectMonotonic(t *testing.T) {
	q := choiceQuestion(10, "a", "b", "c")
	q.Type = model.QuestionTypeMultiSelect

	base := evaluateMultiSelect(q, []string{"a", "b"})
	withWrong := evaluateMultiSelect(q, []string{"a", "b", "d"})
	if withWrong.PointsEarned > base.PointsEarned {
		t.Fatalf("wrong extra raised score: %v > %v", withWrong.PointsEarned, base.PointsEarned)
	}

	fewer := evaluateMultiSelect(q, []string{"a"})
	if fewer.PointsEarned > base.PointsEarned {
		t.Fatalf("fewer correct raised score: %v > %v", fewer.PointsEarned, base.PointsEarned)
	}
}

func TestMultiSelectNoKeyConfigured(t *testing.T) {
	q := choiceQuestion(10)
	q.Type = model.QuestionTypeMultiSelect

	res := evaluateMultiSelect(q, []string{"a"})
	if !res.RequiresHumanReview || res.PointsEarned != 0 {
		t.Fatalf("expected human-review flag, got %+v", res)
	}
}

func TestTextHeuristic(t *testing.T) {
	q := &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeShortAnswer,
		Points:        10,
		CorrectAnswer: "connection pooling",
		Keywords:      []string{"pool", "reuse"},
	}

	if res := evaluateTextHeuristic(q, "Connection   Pooling"); res.PointsEarned != 10 || !res.IsCorrect {
		t.Fatalf("exact match: %+v", res)
	}
	if res := evaluateTextHeuristic(q, "they use connection pooling internally"); res.PointsEarned != 7 || !res.IsCorrect {
		t.Fatalf("substring match: %+v", res)
	}
	if res := evaluateTextHeuristic(q, "it keeps a pool of sockets"); res.PointsEarned != 5 || res.IsCorrect {
		t.Fatalf("keyword match: %+v", res)
	}
	if res := evaluateTextHeuristic(q, "no idea"); res.PointsEarned != 0 {
		t.Fatalf("miss: %+v", res)
	}
	if res := evaluateTextHeuristic(q, "   "); res.PointsEarned != 0 || res.RequiresHumanReview {
		t.Fatalf("blank answer: %+v", res)
	}

	// No key and no keywords: cannot grade locally.
	bare := &model.Question{ID: uuid.New(), Type: model.QuestionTypeShortAnswer, Points: 10}
	if res := evaluateTextHeuristic(bare, "anything"); !res.RequiresHumanReview {
		t.Fatalf("expected human-review flag, got %+v", res)
	}
}
