package evaluation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/model"
)

const graderSystemPrompt = `You are a strict but fair assessment grader. ` +
	`Score the learner's answer against the question and rubric. ` +
	`Respond with a single JSON object and nothing else, using exactly these fields: ` +
	`{"score": <number>, "max_score": 100, "feedback": "<2-4 sentences for the learner>", "is_correct": <boolean>}`

// evaluateWithAI grades a free-text answer through the LLM gateway. The
// fallback chain is mandatory: JSON parse → "N/100" scan → zero-score
// human-review result. It never propagates an error to the caller.
func (e *Evaluator) evaluateWithAI(ctx context.Context, q *model.Question, answer string, threshold float64) Result {
	if strings.TrimSpace(answer) == "" {
		return Result{MaxPoints: q.Points, Feedback: "No answer provided."}
	}

	req := llm.Request{
		Purpose:     llm.PurposeEvaluation,
		Messages:    buildEvaluationMessages(q, answer),
		JSONMode:    true,
		Logprobs:    true,
		TopLogprobs: 1,
		CacheKey:    config.CacheKey.EvaluationResponseKey(evaluationHash(q.ID.String(), answer)),
	}

	resp, err := e.gateway.Complete(ctx, req)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("question_id", q.ID.String()).
			Str("answer", answerSummary(answer)).
			Msg("AI evaluation failed, degrading to human review")
		return Result{
			MaxPoints:           q.Points,
			Feedback:            "Automatic grading is temporarily unavailable; your answer was queued for instructor review.",
			Confidence:          defaultConfidence,
			RequiresHumanReview: true,
			AIEvaluated:         true,
		}
	}

	res := NormalizeResult(ParseAIPayload(resp.Content), q.Points, threshold)
	res.AIEvaluated = true
	if !res.RequiresHumanReview {
		res.Confidence = ConfidenceFromLogprobs(resp.Logprobs, len(resp.Content))
	}
	return res
}

// buildEvaluationMessages assembles the structured grading prompt.
func buildEvaluationMessages(q *model.Question, answer string) []llm.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question (%s, %.0f points):\n%s\n", q.Type, q.Points, q.Text)
	if q.Rubric != "" {
		fmt.Fprintf(&sb, "\nRubric / expected key points:\n%s\n", q.Rubric)
	}
	if q.CorrectAnswer != "" {
		fmt.Fprintf(&sb, "\nReference answer:\n%s\n", q.CorrectAnswer)
	}
	fmt.Fprintf(&sb, "\nLearner's answer:\n%s\n", answer)

	return []llm.Message{
		{Role: "system", Content: graderSystemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// evaluationHash keys the response cache by question + answer content.
func evaluationHash(questionID, answer string) string {
	sum := sha256.Sum256([]byte(questionID + "\x00" + answer))
	return hex.EncodeToString(sum[:])
}
