package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/model"
)

// analyticsPayload is queued for the analytics worker after a session
// reaches a terminal state with a result.
type analyticsPayload struct {
	AssessmentID string  `json:"assessment_id"`
	ScorePercent float64 `json:"score_percent"`
	Passed       bool    `json:"passed"`
}

// reviewTaskPayload is queued for the review worker for every answer
// flagged requires_human_review.
type reviewTaskPayload struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
}

// CompletionService runs the side effects of a finished session:
// certificate issuance, progress counters, and queueing work for the
// analytics and review workers. Everything here is best-effort; a failed
// side effect is logged and never blocks the learner's result.
type CompletionService struct {
	certs    *CertificateService
	progress *ProgressService
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewCompletionService creates a new CompletionService.
func NewCompletionService(certs *CertificateService, progress *ProgressService, rdb *redis.Client, log zerolog.Logger) *CompletionService {
	return &CompletionService{
		certs:    certs,
		progress: progress,
		rdb:      rdb,
		log:      log.With().Str("component", "completion_service").Logger(),
	}
}

// SessionFinished dispatches all follow-up work in the background. The
// caller's request finishes without waiting on any of it.
func (s *CompletionService) SessionFinished(ctx context.Context, session *model.Session) {
	if session.Result == nil {
		return
	}
	go s.run(session)
}

func (s *CompletionService) run(session *model.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.certs.IssueForSession(ctx, session); err != nil {
		s.log.Error().Err(err).
			Str("session_id", session.ID.String()).
			Msg("Certificate issuance failed")
	}

	if err := s.progress.RecordSession(ctx, session); err != nil {
		s.log.Error().Err(err).
			Str("session_id", session.ID.String()).
			Msg("Progress update failed")
	}

	s.enqueueAnalytics(ctx, session)
	s.enqueueReviewTasks(ctx, session)
}

func (s *CompletionService) enqueueAnalytics(ctx context.Context, session *model.Session) {
	raw, err := json.Marshal(analyticsPayload{
		AssessmentID: session.AssessmentID.String(),
		ScorePercent: session.Result.ScorePercent,
		Passed:       session.Result.Passed,
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnalyticsQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Msg("Failed to enqueue analytics payload")
	}
}

func (s *CompletionService) enqueueReviewTasks(ctx context.Context, session *model.Session) {
	for i := range session.Answers {
		a := &session.Answers[i]
		if a.AI == nil || !a.AI.RequiresHumanReview {
			continue
		}
		reason := a.Feedback
		if reason == "" {
			reason = "Flagged for human review."
		}
		raw, err := json.Marshal(reviewTaskPayload{
			SessionID:  session.ID.String(),
			QuestionID: a.QuestionID.String(),
			UserID:     session.UserID.String(),
			Reason:     reason,
		})
		if err != nil {
			continue
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.ReviewTasksQueue, raw).Err(); err != nil {
			s.log.Error().Err(err).Msg("Failed to enqueue review task")
		}
	}
}
