package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// ProgressService maintains per-user learning progress counters.
type ProgressService struct {
	progress *repository.ProgressRepository
	log      zerolog.Logger
}

// NewProgressService creates a new ProgressService.
func NewProgressService(progress *repository.ProgressRepository, log zerolog.Logger) *ProgressService {
	return &ProgressService{
		progress: progress,
		log:      log.With().Str("component", "progress_service").Logger(),
	}
}

// RecordSession folds a finished session with a result into the user's
// rolling counters.
func (s *ProgressService) RecordSession(ctx context.Context, session *model.Session) error {
	if session.Result == nil {
		return nil
	}
	timeSpent := 0
	for i := range session.Answers {
		timeSpent += session.Answers[i].TimeSpentSeconds
	}
	return s.progress.RecordCompletion(ctx, session.UserID,
		session.Result.ScorePercent, session.Result.Passed, timeSpent)
}

// GetForUser retrieves a user's progress summary.
func (s *ProgressService) GetForUser(ctx context.Context, userID uuid.UUID) (*model.Progress, error) {
	return s.progress.GetByUser(ctx, userID)
}
