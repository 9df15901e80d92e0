package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio-backend/internal/model"
)

// ErrVersionConflict is returned when an optimistic-concurrency update
// finds the row already modified by another writer.
var ErrVersionConflict = errors.New("session version conflict")

// SessionRepository handles assessment session data access. Answers,
// the config snapshot, and the final result live as JSONB documents on
// the sessions row.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, assessment_id, status, attempt_number, device,
	config, answers, result, started_at, last_activity, paused_at, paused_seconds,
	finished_at, version`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var (
		s       model.Session
		config  []byte
		answers []byte
		result  []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.AssessmentID, &s.Status, &s.AttemptNumber,
		&s.Device, &config, &answers, &result, &s.StartedAt, &s.LastActivity,
		&s.PausedAt, &s.PausedSeconds, &s.FinishedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &s.Config); err != nil {
			return nil, err
		}
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, err
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &s.Result); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Create inserts a new session row with its config snapshot.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, assessment_id, status, attempt_number,
		     device, config, answers, started_at, last_activity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id, version`,
		s.UserID, s.AssessmentID, s.Status, s.AttemptNumber,
		s.Device, config, answers, s.StartedAt,
	).Scan(&s.ID, &s.Version)
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

// Update persists mutable session state. The row version read with the
// session must still match; otherwise ErrVersionConflict is returned and
// the caller should re-read and retry. On success the session's Version
// is bumped to match the stored row.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return err
	}
	var result []byte
	if s.Result != nil {
		result, err = json.Marshal(s.Result)
		if err != nil {
			return err
		}
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $1, answers = $2, result = $3, last_activity = $4,
		     paused_at = $5, paused_seconds = $6, finished_at = $7,
		     version = version + 1
		 WHERE id = $8 AND version = $9`,
		s.Status, answers, result, s.LastActivity,
		s.PausedAt, s.PausedSeconds, s.FinishedAt, s.ID, s.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.Version++
	return nil
}

// CountCompletedAttempts returns the number of terminal attempts a user
// has made against an assessment. Abandoned sessions do not count.
func (r *SessionRepository) CountCompletedAttempts(ctx context.Context, userID, assessmentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions
		 WHERE user_id = $1 AND assessment_id = $2 AND status IN ($3, $4)`,
		userID, assessmentID, model.SessionStatusCompleted, model.SessionStatusTimeout,
	).Scan(&count)
	return count, err
}

// LatestCompleted retrieves the most recent terminal session for a user
// and assessment, or nil when none exists.
func (r *SessionRepository) LatestCompleted(ctx context.Context, userID, assessmentID uuid.UUID) (*model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND assessment_id = $2 AND status IN ($3, $4)
		 ORDER BY finished_at DESC
		 LIMIT 1`,
		userID, assessmentID, model.SessionStatusCompleted, model.SessionStatusTimeout)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSession(rows)
}

// ActiveForUser retrieves the user's in-progress or paused session for
// an assessment, or nil when none exists.
func (r *SessionRepository) ActiveForUser(ctx context.Context, userID, assessmentID uuid.UUID) (*model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND assessment_id = $2 AND status IN ($3, $4)
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID, assessmentID, model.SessionStatusInProgress, model.SessionStatusPaused)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSession(rows)
}

// ListByUser retrieves a user's sessions with pagination, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Session, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1
		 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		userID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// ListByAssessment retrieves sessions against an assessment with
// pagination, newest first.
func (r *SessionRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID, page, perPage int) ([]model.Session, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE assessment_id = $1`, assessmentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE assessment_id = $1
		 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		assessmentID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}
