package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio-backend/internal/model"
)

// ProgressRepository handles per-user learning progress counters.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// GetByUser retrieves a user's progress record. Users without any
// finished sessions get a zero-valued record.
func (r *ProgressRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Progress, error) {
	p := &model.Progress{UserID: userID}
	rows, err := r.pool.Query(ctx,
		`SELECT completed_count, passed_count, score_sum, total_time_seconds, updated_at
		 FROM user_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&p.CompletedCount, &p.PassedCount, &p.ScoreSum,
			&p.TotalTimeSeconds, &p.UpdatedAt); err != nil {
			return nil, err
		}
	}
	return p, rows.Err()
}

// RecordCompletion upserts a user's counters after a session reaches a
// terminal state with a result.
func (r *ProgressRepository) RecordCompletion(ctx context.Context, userID uuid.UUID, scorePercent float64, passed bool, timeSpentSeconds int) error {
	passInc := 0
	if passed {
		passInc = 1
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_progress (user_id, completed_count, passed_count, score_sum, total_time_seconds, updated_at)
		 VALUES ($1, 1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET completed_count = user_progress.completed_count + 1,
		     passed_count = user_progress.passed_count + EXCLUDED.passed_count,
		     score_sum = user_progress.score_sum + EXCLUDED.score_sum,
		     total_time_seconds = user_progress.total_time_seconds + EXCLUDED.total_time_seconds,
		     updated_at = NOW()`,
		userID, passInc, scorePercent, timeSpentSeconds)
	return err
}
