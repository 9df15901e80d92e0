package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio-backend/internal/model"
)

// ReviewRepository handles human review task data access.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review task.
func (r *ReviewRepository) Create(ctx context.Context, t *model.ReviewTask) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO review_tasks (session_id, question_id, user_id, reason, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.SessionID, t.QuestionID, t.UserID, t.Reason, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
}

// ListPending retrieves unresolved review tasks with pagination, oldest
// first so graders work the backlog in order.
func (r *ReviewRepository) ListPending(ctx context.Context, page, perPage int) ([]model.ReviewTask, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM review_tasks WHERE status = $1`, model.ReviewTaskPending,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, user_id, reason, status, resolved_by, resolved_at, created_at
		 FROM review_tasks
		 WHERE status = $1
		 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		model.ReviewTaskPending, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ReviewTask
	for rows.Next() {
		var t model.ReviewTask
		if err := rows.Scan(&t.ID, &t.SessionID, &t.QuestionID, &t.UserID, &t.Reason,
			&t.Status, &t.ResolvedBy, &t.ResolvedAt, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// Resolve marks a review task as resolved by a grader.
func (r *ReviewRepository) Resolve(ctx context.Context, id, reviewerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE review_tasks
		 SET status = $1, resolved_by = $2, resolved_at = NOW()
		 WHERE id = $3`,
		model.ReviewTaskResolved, reviewerID, id)
	return err
}
