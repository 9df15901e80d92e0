package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported assessment item types.
type QuestionType string

const (
	QuestionTypeSingleChoice  QuestionType = "single_choice"
	QuestionTypeMultiSelect   QuestionType = "multi_select"
	QuestionTypeTrueFalse     QuestionType = "true_false"
	QuestionTypeShortAnswer   QuestionType = "short_answer"
	QuestionTypeEssay         QuestionType = "essay"
	QuestionTypeCodeReview    QuestionType = "code_review"
	QuestionTypePracticalTask QuestionType = "practical_task"
)

// Option is one selectable choice of an objective question.
// Correct is never serialized to learners.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// SkillWeight tags a question with a skill and its contribution weight.
type SkillWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Question represents a single assessment item. Objective types carry
// Options/CorrectAnswer; subjective types carry a Rubric used to build the
// AI evaluation prompt. Questions are never mutated by a running session.
type Question struct {
	ID            uuid.UUID     `json:"id"`
	AssessmentID  uuid.UUID     `json:"assessment_id"`
	Text          string        `json:"text"`
	Type          QuestionType  `json:"type"`
	Points        float64       `json:"points"`
	Difficulty    string        `json:"difficulty"`
	Skills        []SkillWeight `json:"skills,omitempty"`
	Options       []Option      `json:"options,omitempty"`
	CorrectAnswer string        `json:"correct_answer,omitempty"`
	Keywords      []string      `json:"keywords,omitempty"`
	Rubric        string        `json:"rubric,omitempty"`
	OrderNum      int           `json:"order_num"`
	CreatedAt     time.Time     `json:"created_at"`
}

// LearnerOption is an option with correctness metadata stripped.
type LearnerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionForLearner is the answer-stripped view delivered to a learner
// during a session.
type QuestionForLearner struct {
	ID         uuid.UUID       `json:"id"`
	Text       string          `json:"text"`
	Type       QuestionType    `json:"type"`
	Points     float64         `json:"points"`
	Difficulty string          `json:"difficulty"`
	Options    []LearnerOption `json:"options,omitempty"`
	OrderNum   int             `json:"order_num"`
}

// ForLearner strips correctness metadata (correct options, answer keys,
// keywords, rubric) from the question.
func (q *Question) ForLearner() QuestionForLearner {
	out := QuestionForLearner{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Points:     q.Points,
		Difficulty: q.Difficulty,
		OrderNum:   q.OrderNum,
	}
	for _, opt := range q.Options {
		out.Options = append(out.Options, LearnerOption{ID: opt.ID, Text: opt.Text})
	}
	return out
}

// CorrectOptionIDs returns the ids of all options marked correct.
func (q *Question) CorrectOptionIDs() []string {
	var ids []string
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// AddQuestionRequest is the payload for adding a question to an assessment.
type AddQuestionRequest struct {
	Text          string        `json:"text" binding:"required,min=1,max=4000"`
	Type          QuestionType  `json:"type" binding:"required,oneof=single_choice multi_select true_false short_answer essay code_review practical_task"`
	Points        float64       `json:"points" binding:"required,gt=0"`
	Difficulty    string        `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced expert"`
	Skills        []SkillWeight `json:"skills" binding:"omitempty,dive"`
	Options       []Option      `json:"options" binding:"omitempty,dive"`
	CorrectAnswer string        `json:"correct_answer" binding:"omitempty,max=2000"`
	Keywords      []string      `json:"keywords" binding:"omitempty"`
	Rubric        string        `json:"rubric" binding:"omitempty,max=8000"`
	OrderNum      int           `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
