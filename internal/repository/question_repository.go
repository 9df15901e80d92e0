package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByAssessment retrieves all questions for an assessment ordered by
// their position.
func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, type, text, points, difficulty, skills, options,
		        correct_answer, keywords, rubric, order_num, created_at
		 FROM questions
		 WHERE assessment_id = $1
		 ORDER BY order_num ASC`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var (
			q        model.Question
			skills   []byte
			options  []byte
			keywords []byte
		)
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Type, &q.Text, &q.Points,
			&q.Difficulty, &skills, &options, &q.CorrectAnswer, &keywords,
			&q.Rubric, &q.OrderNum, &q.CreatedAt); err != nil {
			return nil, err
		}
		if len(skills) > 0 {
			if err := json.Unmarshal(skills, &q.Skills); err != nil {
				return nil, err
			}
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, err
			}
		}
		if len(keywords) > 0 {
			if err := json.Unmarshal(keywords, &q.Keywords); err != nil {
				return nil, err
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// CountByAssessment returns the number of questions in an assessment.
func (r *QuestionRepository) CountByAssessment(ctx context.Context, assessmentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE assessment_id = $1`, assessmentID,
	).Scan(&count)
	return count, err
}

// ReplaceForAssessment atomically replaces the question set of an
// assessment and refreshes its question_count.
func (r *QuestionRepository) ReplaceForAssessment(ctx context.Context, assessmentID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM questions WHERE assessment_id = $1`, assessmentID); err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		q.AssessmentID = assessmentID
		q.OrderNum = i + 1

		skills, err := json.Marshal(q.Skills)
		if err != nil {
			return err
		}
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		keywords, err := json.Marshal(q.Keywords)
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (assessment_id, type, text, points, difficulty,
			     skills, options, correct_answer, keywords, rubric, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id, created_at`,
			q.AssessmentID, q.Type, q.Text, q.Points, q.Difficulty,
			skills, options, q.CorrectAnswer, keywords, q.Rubric, q.OrderNum,
		).Scan(&q.ID, &q.CreatedAt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE assessments SET question_count = $1, updated_at = NOW() WHERE id = $2`,
		len(questions), assessmentID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
