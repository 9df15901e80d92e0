package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio-backend/internal/model"
)

// AssessmentRepository handles assessment definition data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `id, title, description, author_id, status, passing_score,
	max_attempts, cooldown_hours, time_limit_minutes, per_question_seconds,
	issues_certificate, ai_generated, generation_topic, question_count,
	completed_count, pass_count, score_sum, created_at, updated_at`

func scanAssessment(row interface{ Scan(...any) error }) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.AuthorID, &a.Status, &a.PassingScore,
		&a.MaxAttempts, &a.CooldownHours, &a.TimeLimitMinutes, &a.PerQuestionSeconds,
		&a.IssuesCertificate, &a.AIGenerated, &a.GenerationTopic, &a.QuestionCount,
		&a.CompletedCount, &a.PassCount, &a.ScoreSum, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an assessment by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return scanAssessment(r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id))
}

// Create inserts a new assessment definition.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (title, description, author_id, status, passing_score,
		     max_attempts, cooldown_hours, time_limit_minutes, per_question_seconds,
		     issues_certificate, ai_generated, generation_topic)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		a.Title, a.Description, a.AuthorID, a.Status, a.PassingScore,
		a.MaxAttempts, a.CooldownHours, a.TimeLimitMinutes, a.PerQuestionSeconds,
		a.IssuesCertificate, a.AIGenerated, a.GenerationTopic,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update persists editable definition fields.
func (r *AssessmentRepository) Update(ctx context.Context, a *model.Assessment) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments
		 SET title = $1, description = $2, passing_score = $3, max_attempts = $4,
		     cooldown_hours = $5, time_limit_minutes = $6, per_question_seconds = $7,
		     issues_certificate = $8, question_count = $9, updated_at = NOW()
		 WHERE id = $10`,
		a.Title, a.Description, a.PassingScore, a.MaxAttempts,
		a.CooldownHours, a.TimeLimitMinutes, a.PerQuestionSeconds,
		a.IssuesCertificate, a.QuestionCount, a.ID)
	return err
}

// UpdateStatus updates an assessment's status.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssessmentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListByAuthorPaginated retrieves assessments filtered by author with
// pagination. A nil authorID lists all assessments (admin view).
func (r *AssessmentRepository) ListByAuthorPaginated(ctx context.Context, authorID *uuid.UUID, page, perPage int) ([]model.Assessment, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := ` FROM assessments`
	var args []any
	if authorID != nil {
		args = append(args, *authorID)
		baseQuery += ` WHERE author_id = $1`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + assessmentColumns + baseQuery +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// ListPublished retrieves assessments visible to learners.
func (r *AssessmentRepository) ListPublished(ctx context.Context, page, perPage int) ([]model.Assessment, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessments WHERE status = $1`, model.AssessmentStatusPublished,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+` FROM assessments
		 WHERE status = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		model.AssessmentStatusPublished, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}
