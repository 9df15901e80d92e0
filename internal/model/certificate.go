package model

import (
	"time"

	"github.com/google/uuid"
)

// Certificate records a certificate issued for a passed, certificate-eligible
// session. Rendering (PDF/image) is out of scope; only the record is kept.
type Certificate struct {
	ID           uuid.UUID `json:"id"`
	Serial       string    `json:"serial"`
	UserID       uuid.UUID `json:"user_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	SessionID    uuid.UUID `json:"session_id"`
	ScorePercent float64   `json:"score_percent"`
	Grade        string    `json:"grade"`
	IssuedAt     time.Time `json:"issued_at"`
}
