package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/model"
)

type fakeGateway struct {
	resp  *llm.Response
	err   error
	calls int
}

func (g *fakeGateway) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func newEvaluator(g Gateway) *Evaluator {
	return New(g, zerolog.Nop())
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func TestEvaluateObjectiveSkipsGateway(t *testing.T) {
	gw := &fakeGateway{err: errors.New("should not be called")}
	e := newEvaluator(gw)

	q := choiceQuestion(10, "a")
	res := e.Evaluate(context.Background(), q, rawString("a"))
	if !res.IsCorrect {
		t.Fatalf("expected correct, got %+v", res)
	}
	if gw.calls != 0 {
		t.Fatalf("objective type hit the gateway %d times", gw.calls)
	}
}

func TestEvaluateEssayThroughGateway(t *testing.T) {
	gw := &fakeGateway{resp: &llm.Response{
		Content: `{"score": 70, "max_score": 100, "feedback": "Solid reasoning.", "is_correct": true}`,
	}}
	e := newEvaluator(gw)

	q := &model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeEssay,
		Points: 20,
		Rubric: "Explain tradeoffs.",
	}

	res := e.Evaluate(context.Background(), q, rawString("Long essay answer."))
	if gw.calls != 1 {
		t.Fatalf("gateway calls = %d, want 1", gw.calls)
	}
	if !res.AIEvaluated || !res.IsCorrect || res.PointsEarned != 14 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Confidence == 0 {
		t.Fatal("expected a confidence score")
	}
}

func TestEvaluateGatewayFailureDegrades(t *testing.T) {
	gw := &fakeGateway{err: llm.ErrUpstreamUnavailable}
	e := newEvaluator(gw)

	q := &model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeEssay,
		Points: 20,
		Rubric: "Explain tradeoffs.",
	}

	res := e.Evaluate(context.Background(), q, rawString("An answer."))
	if !res.RequiresHumanReview {
		t.Fatal("expected human-review flag on gateway failure")
	}
	if res.PointsEarned != 0 || res.MaxPoints != 20 {
		t.Fatalf("expected zero score, got %+v", res)
	}
}

func TestEvaluateEmptyEssaySkipsGateway(t *testing.T) {
	gw := &fakeGateway{err: errors.New("should not be called")}
	e := newEvaluator(gw)

	q := &model.Question{ID: uuid.New(), Type: model.QuestionTypeEssay, Points: 20}
	res := e.Evaluate(context.Background(), q, rawString("   "))
	if gw.calls != 0 {
		t.Fatal("blank answer should not hit the gateway")
	}
	if res.PointsEarned != 0 || res.RequiresHumanReview {
		t.Fatalf("blank answer should be a plain zero: %+v", res)
	}
}

func TestEvaluateShortAnswerWithoutRubricUsesHeuristic(t *testing.T) {
	gw := &fakeGateway{err: errors.New("should not be called")}
	e := newEvaluator(gw)

	q := &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeShortAnswer,
		Points:        10,
		CorrectAnswer: "mutex",
	}

	res := e.Evaluate(context.Background(), q, rawString("mutex"))
	if gw.calls != 0 {
		t.Fatal("heuristic path hit the gateway")
	}
	if !res.IsCorrect {
		t.Fatalf("expected correct, got %+v", res)
	}
}

func TestEvaluatePracticalTaskAlwaysQueued(t *testing.T) {
	e := newEvaluator(&fakeGateway{})

	q := &model.Question{ID: uuid.New(), Type: model.QuestionTypePracticalTask, Points: 30}
	res := e.Evaluate(context.Background(), q, json.RawMessage(`{"repo":"https://example.com/x"}`))
	if !res.RequiresHumanReview || res.PointsEarned != 0 || res.MaxPoints != 30 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDecodeStringTolerance(t *testing.T) {
	if got := decodeString(json.RawMessage(`"abc"`)); got != "abc" {
		t.Fatalf("string: %q", got)
	}
	if got := decodeString(json.RawMessage(`true`)); got != "true" {
		t.Fatalf("bool: %q", got)
	}
	if got := decodeString(json.RawMessage(`42`)); got != "42" {
		t.Fatalf("number: %q", got)
	}
	if got := decodeStringSlice(json.RawMessage(`["a","b"]`)); len(got) != 2 {
		t.Fatalf("slice: %v", got)
	}
	if got := decodeStringSlice(json.RawMessage(`"a"`)); len(got) != 1 || got[0] != "a" {
		t.Fatalf("bare string as slice: %v", got)
	}
}
