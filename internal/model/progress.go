package model

import (
	"time"

	"github.com/google/uuid"
)

// Progress is a user's rolling learning record, updated best-effort after
// each completed session.
type Progress struct {
	UserID           uuid.UUID `json:"user_id"`
	CompletedCount   int       `json:"completed_count"`
	PassedCount      int       `json:"passed_count"`
	ScoreSum         float64   `json:"score_sum"`
	TotalTimeSeconds int       `json:"total_time_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AverageScore derives the mean score across completed sessions.
func (p *Progress) AverageScore() float64 {
	if p.CompletedCount == 0 {
		return 0
	}
	return p.ScoreSum / float64(p.CompletedCount)
}

// ReviewTaskStatus enumerates human-review task states.
type ReviewTaskStatus string

const (
	ReviewTaskPending  ReviewTaskStatus = "pending"
	ReviewTaskResolved ReviewTaskStatus = "resolved"
)

// ReviewTask queues an answer flagged requires_human_review for a grader.
type ReviewTask struct {
	ID         uuid.UUID        `json:"id"`
	SessionID  uuid.UUID        `json:"session_id"`
	QuestionID uuid.UUID        `json:"question_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Reason     string           `json:"reason"`
	Status     ReviewTaskStatus `json:"status"`
	ResolvedBy *uuid.UUID       `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
