package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio-backend/internal/model"
)

// CertificateRepository handles issued certificate data access.
type CertificateRepository struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{pool: pool}
}

// Create inserts a certificate record.
func (r *CertificateRepository) Create(ctx context.Context, c *model.Certificate) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO certificates (serial, user_id, assessment_id, session_id,
		     score_percent, grade, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		c.Serial, c.UserID, c.AssessmentID, c.SessionID,
		c.ScorePercent, c.Grade, c.IssuedAt,
	).Scan(&c.ID)
}

// GetBySerial retrieves a certificate by its public serial for
// verification.
func (r *CertificateRepository) GetBySerial(ctx context.Context, serial string) (*model.Certificate, error) {
	c := &model.Certificate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, serial, user_id, assessment_id, session_id, score_percent, grade, issued_at
		 FROM certificates WHERE serial = $1`, serial,
	).Scan(&c.ID, &c.Serial, &c.UserID, &c.AssessmentID, &c.SessionID,
		&c.ScorePercent, &c.Grade, &c.IssuedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByUser retrieves all certificates a user has earned, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Certificate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, serial, user_id, assessment_id, session_id, score_percent, grade, issued_at
		 FROM certificates WHERE user_id = $1
		 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Certificate
	for rows.Next() {
		var c model.Certificate
		if err := rows.Scan(&c.ID, &c.Serial, &c.UserID, &c.AssessmentID, &c.SessionID,
			&c.ScorePercent, &c.Grade, &c.IssuedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExistsForSession reports whether a certificate was already issued for
// a session. Keeps completion retries idempotent.
func (r *CertificateRepository) ExistsForSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM certificates WHERE session_id = $1)`, sessionID,
	).Scan(&exists)
	return exists, err
}
