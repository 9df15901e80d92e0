package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// ReviewWorker consumes review_tasks_queue and creates review tasks for
// answers the evaluator flagged for a human grader.
type ReviewWorker struct {
	reviews *repository.ReviewRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewReviewWorker creates a new ReviewWorker.
func NewReviewWorker(reviews *repository.ReviewRepository, rdb *redis.Client, log zerolog.Logger) *ReviewWorker {
	return &ReviewWorker{
		reviews: reviews,
		rdb:     rdb,
		log:     log.With().Str("component", "review_worker").Logger(),
	}
}

type reviewPayload struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ReviewWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ReviewWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.ReviewTasksQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload reviewPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.createTask(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("session_id", payload.SessionID).
			Str("question_id", payload.QuestionID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.ReviewTasksQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ReviewWorker) createTask(ctx context.Context, p *reviewPayload) error {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}

	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return err
	}

	task := &model.ReviewTask{
		SessionID:  sessionID,
		QuestionID: questionID,
		UserID:     userID,
		Reason:     p.Reason,
		Status:     model.ReviewTaskPending,
	}

	return w.reviews.Create(ctx, task)
}

// drain processes all remaining items in the queue before shutdown.
func (w *ReviewWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.ReviewTasksQueue).Result()
		if err != nil {
			break
		}

		var payload reviewPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.createTask(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.ReviewTasksQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
