package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/rs/zerolog"
)

// Correctness thresholds. Essays get a lower bar given inherent subjectivity.
const (
	correctnessThreshold = 0.7
	essayThreshold       = 0.6
)

// Gateway is the completion surface the evaluator needs from the LLM client.
type Gateway interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Evaluator scores one answer against its question, dispatching by question
// type. Objective types are scored locally; subjective types go through the
// LLM gateway with a mandatory degrade-don't-fail fallback chain.
type Evaluator struct {
	gateway Gateway
	log     zerolog.Logger
}

// New creates an Evaluator.
func New(gateway Gateway, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		gateway: gateway,
		log:     log.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate scores a raw answer. It never returns an error: any failure path
// yields a zero-score result flagged for human review.
func (e *Evaluator) Evaluate(ctx context.Context, q *model.Question, raw json.RawMessage) Result {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		return evaluateSingleChoice(q, decodeString(raw))
	case model.QuestionTypeTrueFalse:
		return evaluateTrueFalse(q, decodeString(raw))
	case model.QuestionTypeMultiSelect:
		return evaluateMultiSelect(q, decodeStringSlice(raw))
	case model.QuestionTypeShortAnswer, model.QuestionTypeCodeReview:
		// code-review degrades to the short-answer path.
		return e.evaluateShortAnswer(ctx, q, decodeString(raw))
	case model.QuestionTypeEssay:
		return e.evaluateWithAI(ctx, q, decodeString(raw), essayThreshold)
	case model.QuestionTypePracticalTask:
		// Never auto-graded; a grader awards points later.
		return Result{
			MaxPoints:           q.Points,
			Feedback:            "Submitted for instructor review.",
			RequiresHumanReview: true,
		}
	default:
		e.log.Warn().Str("type", string(q.Type)).Msg("Unknown question type")
		return Result{
			MaxPoints:           q.Points,
			Feedback:            "Unsupported question type.",
			RequiresHumanReview: true,
		}
	}
}

// evaluateShortAnswer delegates to AI evaluation when a rubric is configured,
// else falls back to the keyword/substring heuristic.
func (e *Evaluator) evaluateShortAnswer(ctx context.Context, q *model.Question, answer string) Result {
	if strings.TrimSpace(q.Rubric) != "" {
		return e.evaluateWithAI(ctx, q, answer, correctnessThreshold)
	}
	return evaluateTextHeuristic(q, answer)
}

// ─── Raw answer decoding ───────────────────────────────────────────

// decodeString extracts a string answer from the raw JSON payload,
// tolerating bare numbers and booleans.
func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	// Object/array payload (e.g. practical task): keep the JSON text.
	return string(raw)
}

// decodeStringSlice extracts a list answer, tolerating a single string.
func decodeStringSlice(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s := decodeString(raw); s != "" {
		return []string{s}
	}
	return nil
}

// answerSummary compacts a raw answer for log lines.
func answerSummary(answer string) string {
	answer = strings.TrimSpace(answer)
	if len(answer) > 80 {
		return fmt.Sprintf("%s... (%d chars)", answer[:80], len(answer))
	}
	return answer
}
