package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

const generationSystemPrompt = `You are an assessment author. Generate quiz questions for the given topic.
Respond ONLY with a JSON object of the form:
{"questions":[{"text":"...","type":"single_choice|multi_select|true_false|short_answer|essay","points":10,"difficulty":"beginner|intermediate|advanced|expert","options":[{"id":"a","text":"...","correct":true}],"correct_answer":"...","keywords":["..."],"rubric":"..."}]}
Objective types need options with at least one marked correct. Subjective types need a rubric. Do not include any text outside the JSON object.`

// Completer is the completion surface the generation service needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// generatedQuestion mirrors the JSON shape the model is instructed to emit.
type generatedQuestion struct {
	Text          string              `json:"text"`
	Type          string              `json:"type"`
	Points        float64             `json:"points"`
	Difficulty    string              `json:"difficulty"`
	Options       []model.Option      `json:"options"`
	CorrectAnswer string              `json:"correct_answer"`
	Keywords      []string            `json:"keywords"`
	Rubric        string              `json:"rubric"`
	Skills        []model.SkillWeight `json:"skills"`
}

// GenerationService materializes question sets for AI-generated
// assessments by prompting the analysis model for structured output.
type GenerationService struct {
	gateway     Completer
	assessments *repository.AssessmentRepository
	questions   *repository.QuestionRepository
	log         zerolog.Logger
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(
	gateway Completer,
	assessments *repository.AssessmentRepository,
	questions *repository.QuestionRepository,
	log zerolog.Logger,
) *GenerationService {
	return &GenerationService{
		gateway:     gateway,
		assessments: assessments,
		questions:   questions,
		log:         log.With().Str("component", "generation_service").Logger(),
	}
}

// GenerateQuestions prompts the model for a question set and replaces the
// draft assessment's questions with the result. Only assessments flagged
// ai_generated with a topic are eligible, and only while still in draft.
func (s *GenerationService) GenerateQuestions(ctx context.Context, assessmentID, callerID uuid.UUID, admin bool, count int) ([]model.Question, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !admin && assessment.AuthorID != callerID {
		return nil, ErrForbidden
	}
	if assessment.Status != model.AssessmentStatusDraft {
		return nil, ErrInvalidState
	}
	if !assessment.AIGenerated || strings.TrimSpace(assessment.GenerationTopic) == "" {
		return nil, ErrInvalidState
	}
	return s.materialize(ctx, assessment, count)
}

// Materialize generates and persists the question set for an AI-generated
// assessment that has none yet. Called from session start for published
// assessments (lazy path), so it skips the draft/ownership checks.
func (s *GenerationService) Materialize(ctx context.Context, assessment *model.Assessment) ([]model.Question, error) {
	if !assessment.AIGenerated || strings.TrimSpace(assessment.GenerationTopic) == "" {
		return nil, ErrNoQuestions
	}
	return s.materialize(ctx, assessment, 0)
}

func (s *GenerationService) materialize(ctx context.Context, assessment *model.Assessment, count int) ([]model.Question, error) {
	if count <= 0 {
		count = 10
	}

	resp, err := s.gateway.Complete(ctx, llm.Request{
		Purpose:  llm.PurposeAnalysis,
		JSONMode: true,
		Messages: []llm.Message{
			{Role: "system", Content: generationSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Topic: %s\nNumber of questions: %d", assessment.GenerationTopic, count)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions, err := parseGeneratedQuestions(resp.Content)
	if err != nil {
		s.log.Error().Err(err).
			Str("assessment_id", assessment.ID.String()).
			Msg("Generated question payload unusable")
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}

	if err := s.questions.ReplaceForAssessment(ctx, assessment.ID, questions); err != nil {
		return nil, fmt.Errorf("store generated questions: %w", err)
	}

	s.log.Info().
		Str("assessment_id", assessment.ID.String()).
		Int("count", len(questions)).
		Msg("Questions generated")
	return questions, nil
}

// parseGeneratedQuestions validates the model output into storable
// questions. Items that fail validation are dropped rather than failing
// the whole batch; an empty usable set is an error.
func parseGeneratedQuestions(content string) ([]model.Question, error) {
	var payload struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var out []model.Question
	for _, gq := range payload.Questions {
		q, ok := validateGenerated(gq)
		if !ok {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable questions in model output")
	}
	return out, nil
}

func validateGenerated(gq generatedQuestion) (model.Question, bool) {
	qtype := model.QuestionType(gq.Type)
	if strings.TrimSpace(gq.Text) == "" {
		return model.Question{}, false
	}

	points := gq.Points
	if points <= 0 {
		points = 10
	}

	switch qtype {
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultiSelect:
		correct := 0
		for _, opt := range gq.Options {
			if opt.Correct {
				correct++
			}
		}
		if len(gq.Options) < 2 || correct == 0 {
			return model.Question{}, false
		}
	case model.QuestionTypeTrueFalse:
		answer := strings.ToLower(strings.TrimSpace(gq.CorrectAnswer))
		if answer != "true" && answer != "false" {
			return model.Question{}, false
		}
	case model.QuestionTypeShortAnswer:
		if gq.CorrectAnswer == "" && len(gq.Keywords) == 0 && gq.Rubric == "" {
			return model.Question{}, false
		}
	case model.QuestionTypeEssay:
		if strings.TrimSpace(gq.Rubric) == "" {
			return model.Question{}, false
		}
	default:
		return model.Question{}, false
	}

	return model.Question{
		Text:          gq.Text,
		Type:          qtype,
		Points:        points,
		Difficulty:    gq.Difficulty,
		Skills:        gq.Skills,
		Options:       gq.Options,
		CorrectAnswer: gq.CorrectAnswer,
		Keywords:      gq.Keywords,
		Rubric:        gq.Rubric,
	}, true
}
