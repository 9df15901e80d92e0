package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// questionCacheTTL bounds staleness of the learner-facing question cache.
// The cache is also invalidated explicitly on every question change.
const questionCacheTTL = 10 * time.Minute

// AssessmentService manages assessment definitions and their questions.
type AssessmentService struct {
	assessments *repository.AssessmentRepository
	questions   *repository.QuestionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(
	assessments *repository.AssessmentRepository,
	questions *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessments: assessments,
		questions:   questions,
		rdb:         rdb,
		log:         log.With().Str("component", "assessment_service").Logger(),
	}
}

// Create creates a new draft assessment owned by the author.
func (s *AssessmentService) Create(ctx context.Context, authorID uuid.UUID, req model.CreateAssessmentRequest) (*model.Assessment, error) {
	assessment := &model.Assessment{
		Title:              req.Title,
		Description:        req.Description,
		AuthorID:           authorID,
		Status:             model.AssessmentStatusDraft,
		PassingScore:       req.PassingScore,
		MaxAttempts:        req.MaxAttempts,
		CooldownHours:      req.CooldownHours,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		PerQuestionSeconds: req.PerQuestionSeconds,
		IssuesCertificate:  req.IssuesCertificate,
		AIGenerated:        req.AIGenerated,
		GenerationTopic:    req.GenerationTopic,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	return assessment, nil
}

// Get retrieves an assessment by id.
func (s *AssessmentService) Get(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return assessment, nil
}

// Update applies definition edits. Only the owning author or an admin may
// edit. Running sessions are unaffected: they snapshot their config at
// creation.
func (s *AssessmentService) Update(ctx context.Context, id, callerID uuid.UUID, admin bool, req model.UpdateAssessmentRequest) (*model.Assessment, error) {
	assessment, err := s.authorized(ctx, id, callerID, admin)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		assessment.Title = req.Title
	}
	if req.Description != nil {
		assessment.Description = *req.Description
	}
	if req.PassingScore != nil {
		assessment.PassingScore = *req.PassingScore
	}
	if req.MaxAttempts != nil {
		assessment.MaxAttempts = *req.MaxAttempts
	}
	if req.CooldownHours != nil {
		assessment.CooldownHours = *req.CooldownHours
	}
	if req.TimeLimitMinutes != nil {
		assessment.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.PerQuestionSeconds != nil {
		assessment.PerQuestionSeconds = *req.PerQuestionSeconds
	}
	if req.IssuesCertificate != nil {
		assessment.IssuesCertificate = *req.IssuesCertificate
	}

	if err := s.assessments.Update(ctx, assessment); err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	return assessment, nil
}

// Publish moves a draft with at least one question to PUBLISHED.
func (s *AssessmentService) Publish(ctx context.Context, id, callerID uuid.UUID, admin bool) (*model.Assessment, error) {
	assessment, err := s.authorized(ctx, id, callerID, admin)
	if err != nil {
		return nil, err
	}
	if assessment.Status != model.AssessmentStatusDraft {
		return nil, ErrInvalidState
	}

	count, err := s.questions.CountByAssessment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	// AI-generated assessments with a topic may publish empty; their
	// question set materializes on the first session.
	if count == 0 && !(assessment.AIGenerated && strings.TrimSpace(assessment.GenerationTopic) != "") {
		return nil, ErrNoQuestions
	}

	if err := s.assessments.UpdateStatus(ctx, id, model.AssessmentStatusPublished); err != nil {
		return nil, fmt.Errorf("publish assessment: %w", err)
	}
	assessment.Status = model.AssessmentStatusPublished
	return assessment, nil
}

// Archive moves a published assessment to ARCHIVED, closing it to new
// sessions. Open sessions run to their own conclusion.
func (s *AssessmentService) Archive(ctx context.Context, id, callerID uuid.UUID, admin bool) (*model.Assessment, error) {
	assessment, err := s.authorized(ctx, id, callerID, admin)
	if err != nil {
		return nil, err
	}
	if assessment.Status != model.AssessmentStatusPublished {
		return nil, ErrInvalidState
	}
	if err := s.assessments.UpdateStatus(ctx, id, model.AssessmentStatusArchived); err != nil {
		return nil, fmt.Errorf("archive assessment: %w", err)
	}
	assessment.Status = model.AssessmentStatusArchived
	return assessment, nil
}

// ReplaceQuestions swaps the full question set of a draft assessment.
func (s *AssessmentService) ReplaceQuestions(ctx context.Context, id, callerID uuid.UUID, admin bool, req model.ReplaceQuestionsRequest) ([]model.Question, error) {
	assessment, err := s.authorized(ctx, id, callerID, admin)
	if err != nil {
		return nil, err
	}
	if assessment.Status != model.AssessmentStatusDraft {
		return nil, ErrInvalidState
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for _, qr := range req.Questions {
		questions = append(questions, model.Question{
			Text:          qr.Text,
			Type:          qr.Type,
			Points:        qr.Points,
			Difficulty:    qr.Difficulty,
			Skills:        qr.Skills,
			Options:       qr.Options,
			CorrectAnswer: qr.CorrectAnswer,
			Keywords:      qr.Keywords,
			Rubric:        qr.Rubric,
			OrderNum:      qr.OrderNum,
		})
	}

	if err := s.questions.ReplaceForAssessment(ctx, id, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	s.invalidateQuestionCache(ctx, id)
	return questions, nil
}

// ListQuestions retrieves the full (answer-bearing) question set for
// staff views.
func (s *AssessmentService) ListQuestions(ctx context.Context, id, callerID uuid.UUID, admin bool) ([]model.Question, error) {
	if _, err := s.authorized(ctx, id, callerID, admin); err != nil {
		return nil, err
	}
	return s.questions.ListByAssessment(ctx, id)
}

// LearnerQuestions retrieves the answer-stripped question set of a
// published assessment, cached in Redis.
func (s *AssessmentService) LearnerQuestions(ctx context.Context, id uuid.UUID) ([]model.QuestionForLearner, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if assessment.Status != model.AssessmentStatusPublished {
		return nil, ErrNotPublished
	}

	key := config.CacheKey.AssessmentQuestionsKey(id.String())

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var out []model.QuestionForLearner
		if err := json.Unmarshal([]byte(cached), &out); err == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Question cache read failed")
	}

	questions, err := s.questions.ListByAssessment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	out := learnerQuestions(questions)

	if raw, err := json.Marshal(out); err == nil {
		if err := s.rdb.Set(ctx, key, raw, questionCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Question cache write failed")
		}
	}
	return out, nil
}

// ListPublished retrieves the learner catalog.
func (s *AssessmentService) ListPublished(ctx context.Context, page, perPage int) ([]model.Assessment, int64, error) {
	return s.assessments.ListPublished(ctx, page, perPage)
}

// ListForAuthor retrieves an author's assessments; admins see all.
func (s *AssessmentService) ListForAuthor(ctx context.Context, callerID uuid.UUID, admin bool, page, perPage int) ([]model.Assessment, int64, error) {
	if admin {
		return s.assessments.ListByAuthorPaginated(ctx, nil, page, perPage)
	}
	return s.assessments.ListByAuthorPaginated(ctx, &callerID, page, perPage)
}

func (s *AssessmentService) authorized(ctx context.Context, id, callerID uuid.UUID, admin bool) (*model.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if !admin && assessment.AuthorID != callerID {
		return nil, ErrForbidden
	}
	return assessment, nil
}

func (s *AssessmentService) invalidateQuestionCache(ctx context.Context, id uuid.UUID) {
	key := config.CacheKey.AssessmentQuestionsKey(id.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Question cache invalidation failed")
	}
}
