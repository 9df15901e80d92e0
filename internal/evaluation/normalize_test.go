package evaluation

import (
	"strings"
	"testing"
)

func TestParseAIPayloadJSON(t *testing.T) {
	out := ParseAIPayload(`{"score": 85, "max_score": 100, "feedback": "Good answer.", "is_correct": true}`)
	if out.Parsed == nil {
		t.Fatal("expected parsed payload")
	}
	p := out.Parsed
	if p.Score != 85 || p.MaxScore != 100 || p.Feedback != "Good answer." {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.IsCorrect == nil || !*p.IsCorrect {
		t.Fatalf("expected is_correct true, got %+v", p.IsCorrect)
	}
}

func TestParseAIPayloadCodeFences(t *testing.T) {
	out := ParseAIPayload("```json\n{\"score\": 40}\n```")
	if out.Parsed == nil || out.Parsed.Score != 40 {
		t.Fatalf("fenced JSON not parsed: %+v", out.Parsed)
	}
	if out.Parsed.MaxScore != 100 {
		t.Fatalf("missing max_score should default to 100, got %v", out.Parsed.MaxScore)
	}
}

func TestParseAIPayloadStringNumbers(t *testing.T) {
	out := ParseAIPayload(`{"score": "72.5", "max_score": "100"}`)
	if out.Parsed == nil || out.Parsed.Score != 72.5 {
		t.Fatalf("string-typed score not coerced: %+v", out.Parsed)
	}
}

func TestParseAIPayloadProseFallback(t *testing.T) {
	out := ParseAIPayload("I would give this answer 65/100. It covers the basics but misses edge cases.")
	if out.Parsed == nil {
		t.Fatal("expected prose fallback to parse")
	}
	if out.Parsed.Score != 65 || out.Parsed.MaxScore != 100 {
		t.Fatalf("unexpected prose score: %+v", out.Parsed)
	}
}

func TestParseAIPayloadUnparseable(t *testing.T) {
	for _, raw := range []string{"", "   ", "The answer shows promise.", `{"verdict": "good"}`} {
		out := ParseAIPayload(raw)
		if out.Parsed != nil {
			t.Fatalf("%q: expected unparseable, got %+v", raw, out.Parsed)
		}
		if out.RawText != raw {
			t.Fatalf("%q: raw text not preserved", raw)
		}
	}
}

func TestNormalizeResultScales(t *testing.T) {
	res := NormalizeResult(ParseAIPayload(`{"score": 80, "max_score": 100}`), 15, 0.7)
	if res.PointsEarned != 12 {
		t.Fatalf("points = %v, want 12", res.PointsEarned)
	}
	if !res.IsCorrect {
		t.Fatal("80% should clear a 0.7 threshold")
	}
	if res.RequiresHumanReview {
		t.Fatal("clean parse should not flag review")
	}
}

func TestNormalizeResultClampsRatio(t *testing.T) {
	over := NormalizeResult(ParseAIPayload(`{"score": 150, "max_score": 100}`), 10, 0.7)
	if over.PointsEarned != 10 {
		t.Fatalf("ratio > 1 not clamped: %v", over.PointsEarned)
	}
	under := NormalizeResult(ParseAIPayload(`{"score": -20, "max_score": 100}`), 10, 0.7)
	if under.PointsEarned != 0 {
		t.Fatalf("ratio < 0 not clamped: %v", under.PointsEarned)
	}
}

func TestNormalizeResultExplicitVerdictWins(t *testing.T) {
	// Model says incorrect even though the ratio clears the threshold.
	res := NormalizeResult(ParseAIPayload(`{"score": 90, "max_score": 100, "is_correct": false}`), 10, 0.7)
	if res.IsCorrect {
		t.Fatal("explicit is_correct=false should override the ratio")
	}
}

func TestNormalizeResultUnparseableDegrades(t *testing.T) {
	res := NormalizeResult(ParseAIPayload("garbage output"), 10, 0.7)
	if !res.RequiresHumanReview {
		t.Fatal("expected human-review flag")
	}
	if res.PointsEarned != 0 || res.MaxPoints != 10 {
		t.Fatalf("expected zero score with max points kept: %+v", res)
	}
	if !strings.Contains(res.Feedback, "instructor review") {
		t.Fatalf("feedback should explain the queue: %q", res.Feedback)
	}
}
