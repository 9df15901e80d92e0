package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment session states.
//
// Transitions only ever move forward:
//
//	in_progress → paused | completed | timeout | abandoned
//	paused      → in_progress
//
// completed, timeout and abandoned are terminal.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusPaused     SessionStatus = "paused"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusTimeout    SessionStatus = "timeout"
	SessionStatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusTimeout || s == SessionStatusAbandoned
}

// SessionConfig is the rules snapshot copied from the assessment definition
// when the session is created.
type SessionConfig struct {
	PassingScore       float64 `json:"passing_score"`
	TimeLimitMinutes   int     `json:"time_limit_minutes"`
	PerQuestionSeconds int     `json:"per_question_seconds"`
	TotalQuestions     int     `json:"total_questions"`
	TotalPoints        float64 `json:"total_points"`
	IssuesCertificate  bool    `json:"issues_certificate"`
}

// AIEvaluation is the optional AI-grading payload attached to an answer.
type AIEvaluation struct {
	Score               float64 `json:"score"`
	MaxScore            float64 `json:"max_score"`
	Feedback            string  `json:"feedback,omitempty"`
	Confidence          int     `json:"confidence,omitempty"` // 10-100
	RequiresHumanReview bool    `json:"requires_human_review,omitempty"`
}

// Answer is one question's response within a session. It may be overwritten
// while the session is still in_progress; at most one answer per question.
type Answer struct {
	QuestionID       uuid.UUID       `json:"question_id"`
	Raw              json.RawMessage `json:"raw"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
	IsCorrect        bool            `json:"is_correct"`
	PointsEarned     float64         `json:"points_earned"`
	MaxPoints        float64         `json:"max_points"`
	Feedback         string          `json:"feedback,omitempty"`
	AI               *AIEvaluation   `json:"ai,omitempty"`
	SubmittedAt      time.Time       `json:"submitted_at"`
}

// CategoryScore is one row of a score breakdown table.
type CategoryScore struct {
	Name      string  `json:"name"`
	Earned    float64 `json:"earned"`
	Possible  float64 `json:"possible"`
	Percent   float64 `json:"percent"`
	Questions int     `json:"questions"`
}

// SessionResult is the aggregated outcome persisted on completion.
type SessionResult struct {
	PointsEarned        float64         `json:"points_earned"`
	MaxPoints           float64         `json:"max_points"`
	ScorePercent        float64         `json:"score_percent"`
	Passed              bool            `json:"passed"`
	Grade               string          `json:"grade"`
	ByDifficulty        []CategoryScore `json:"by_difficulty"`
	BySkill             []CategoryScore `json:"by_skill"`
	ByType              []CategoryScore `json:"by_type"`
	Strengths           []string        `json:"strengths"`
	Weaknesses          []string        `json:"weaknesses"`
	CertificateEligible bool            `json:"certificate_eligible"`
}

// Session is one user's attempt at an assessment.
type Session struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	AssessmentID  uuid.UUID      `json:"assessment_id"`
	AttemptNumber int            `json:"attempt_number"`
	Device        string         `json:"device,omitempty"`
	Status        SessionStatus  `json:"status"`
	Config        SessionConfig  `json:"config"`
	Answers       []Answer       `json:"answers"`
	StartedAt     time.Time      `json:"started_at"`
	LastActivity  time.Time      `json:"last_activity"`
	PausedAt      *time.Time     `json:"paused_at,omitempty"`
	PausedSeconds int            `json:"paused_seconds"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	Result        *SessionResult `json:"result,omitempty"`

	// Version is the optimistic-concurrency token: every UPDATE matches the
	// version it read and bumps it, so concurrent submits to the same
	// session cannot silently lose an answer.
	Version int `json:"-"`
}

// AnswerFor returns the recorded answer for a question, or nil.
func (s *Session) AnswerFor(questionID uuid.UUID) *Answer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}

// SetAnswer appends the answer, or overwrites a previous answer to the same
// question (re-submission before moving on is allowed while in_progress).
func (s *Session) SetAnswer(a Answer) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == a.QuestionID {
			s.Answers[i] = a
			return
		}
	}
	s.Answers = append(s.Answers, a)
}

// ActiveElapsed returns wall time since start minus time spent paused.
func (s *Session) ActiveElapsed(now time.Time) time.Duration {
	elapsed := now.Sub(s.StartedAt) - time.Duration(s.PausedSeconds)*time.Second
	if s.PausedAt != nil {
		elapsed -= now.Sub(*s.PausedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// RemainingTime returns the remaining time budget, or 0 when untimed.
func (s *Session) RemainingTime(now time.Time) time.Duration {
	if s.Config.TimeLimitMinutes <= 0 {
		return 0
	}
	remaining := time.Duration(s.Config.TimeLimitMinutes)*time.Minute - s.ActiveElapsed(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// CreateSessionRequest is the payload for starting a new session.
type CreateSessionRequest struct {
	AssessmentID string `json:"assessment_id" binding:"required,uuid"`
	Device       string `json:"device" binding:"omitempty,max=255"`
}

// SubmitAnswerRequest is the payload for answering one question.
type SubmitAnswerRequest struct {
	QuestionID       string          `json:"question_id" binding:"required,uuid"`
	Answer           json.RawMessage `json:"answer" binding:"required"`
	TimeSpentSeconds int             `json:"time_spent_seconds" binding:"min=0"`
}

// CompleteSessionRequest optionally carries any still-unsubmitted answers.
type CompleteSessionRequest struct {
	FinalAnswers []SubmitAnswerRequest `json:"final_answers" binding:"omitempty,dive"`
}
