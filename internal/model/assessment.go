package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the possible states of an assessment definition.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "DRAFT"
	AssessmentStatusPublished AssessmentStatus = "PUBLISHED"
	AssessmentStatusArchived  AssessmentStatus = "ARCHIVED"
)

// Assessment is the static definition of one assessment: questions, scoring
// config, attempt policy, time constraints and certification eligibility.
// Immutable during a session (sessions snapshot the config at creation);
// analytics counters are the only fields updated after sessions complete.
type Assessment struct {
	ID                 uuid.UUID        `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	AuthorID           uuid.UUID        `json:"author_id"`
	Status             AssessmentStatus `json:"status"`
	PassingScore       float64          `json:"passing_score"` // percent, 0-100
	MaxAttempts        int              `json:"max_attempts"`  // 0 = unlimited
	CooldownHours      int              `json:"cooldown_hours"`
	TimeLimitMinutes   int              `json:"time_limit_minutes"`   // 0 = untimed
	PerQuestionSeconds int              `json:"per_question_seconds"` // 0 = unlimited
	IssuesCertificate  bool             `json:"issues_certificate"`
	AIGenerated        bool             `json:"ai_generated"`
	GenerationTopic    string           `json:"generation_topic,omitempty"`
	QuestionCount      int              `json:"question_count"`

	// Analytics counters, maintained by the analytics worker.
	CompletedCount int     `json:"completed_count"`
	PassCount      int     `json:"pass_count"`
	ScoreSum       float64 `json:"score_sum"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AverageScore derives the running mean from the analytics counters.
func (a *Assessment) AverageScore() float64 {
	if a.CompletedCount == 0 {
		return 0
	}
	return a.ScoreSum / float64(a.CompletedCount)
}

// SnapshotConfig copies the session-relevant rules out of the definition.
// Later edits to the definition never change an in-flight session.
func (a *Assessment) SnapshotConfig(totalQuestions int, totalPoints float64) SessionConfig {
	return SessionConfig{
		PassingScore:       a.PassingScore,
		TimeLimitMinutes:   a.TimeLimitMinutes,
		PerQuestionSeconds: a.PerQuestionSeconds,
		TotalQuestions:     totalQuestions,
		TotalPoints:        totalPoints,
		IssuesCertificate:  a.IssuesCertificate,
	}
}

// CreateAssessmentRequest is the payload for creating a new assessment.
type CreateAssessmentRequest struct {
	Title              string  `json:"title" binding:"required,min=3,max=255"`
	Description        string  `json:"description" binding:"omitempty,max=4000"`
	PassingScore       float64 `json:"passing_score" binding:"required,gte=0,lte=100"`
	MaxAttempts        int     `json:"max_attempts" binding:"min=0,max=100"`
	CooldownHours      int     `json:"cooldown_hours" binding:"min=0,max=720"`
	TimeLimitMinutes   int     `json:"time_limit_minutes" binding:"min=0,max=480"`
	PerQuestionSeconds int     `json:"per_question_seconds" binding:"min=0,max=3600"`
	IssuesCertificate  bool    `json:"issues_certificate"`
	AIGenerated        bool    `json:"ai_generated"`
	GenerationTopic    string  `json:"generation_topic" binding:"omitempty,max=500"`
}

// UpdateAssessmentRequest is the payload for updating an existing assessment.
type UpdateAssessmentRequest struct {
	Title              string   `json:"title" binding:"omitempty,min=3,max=255"`
	Description        *string  `json:"description" binding:"omitempty,max=4000"`
	PassingScore       *float64 `json:"passing_score" binding:"omitempty,gte=0,lte=100"`
	MaxAttempts        *int     `json:"max_attempts" binding:"omitempty,min=0,max=100"`
	CooldownHours      *int     `json:"cooldown_hours" binding:"omitempty,min=0,max=720"`
	TimeLimitMinutes   *int     `json:"time_limit_minutes" binding:"omitempty,min=0,max=480"`
	PerQuestionSeconds *int     `json:"per_question_seconds" binding:"omitempty,min=0,max=3600"`
	IssuesCertificate  *bool    `json:"issues_certificate" binding:"omitempty"`
}
