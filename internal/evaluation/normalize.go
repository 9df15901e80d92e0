package evaluation

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ParsedPayload is the structured grading payload extracted from AI output.
type ParsedPayload struct {
	Score     float64
	MaxScore  float64
	Feedback  string
	IsCorrect *bool
}

// ParseOutcome is a tagged result: Parsed is nil when the raw text could not
// be interpreted, and RawText always carries the original response.
type ParseOutcome struct {
	Parsed  *ParsedPayload
	RawText string
}

var scorePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)

// ParseAIPayload interprets the raw AI response. It first strips code-fence
// markers and tries JSON; on failure it scans for an "N/max" score pattern;
// if both fail the outcome is Unparseable (Parsed == nil). Pure, no I/O.
func ParseAIPayload(raw string) ParseOutcome {
	out := ParseOutcome{RawText: raw}
	text := stripCodeFences(raw)
	if text == "" {
		return out
	}

	var loose map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &loose); err == nil {
		payload := &ParsedPayload{MaxScore: 100}
		found := false

		if v, ok := coerceNumber(loose["score"]); ok {
			payload.Score = v
			found = true
		}
		if v, ok := coerceNumber(loose["max_score"]); ok && v > 0 {
			payload.MaxScore = v
		}
		if fb, ok := loose["feedback"]; ok {
			var s string
			if json.Unmarshal(fb, &s) == nil {
				payload.Feedback = s
			}
		}
		if ic, ok := loose["is_correct"]; ok {
			var b bool
			if json.Unmarshal(ic, &b) == nil {
				payload.IsCorrect = &b
			}
		}

		if found {
			out.Parsed = payload
			return out
		}
	}

	// Fallback: scan the prose for "85/100" style fragments.
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		score, err1 := strconv.ParseFloat(m[1], 64)
		max, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && max > 0 {
			out.Parsed = &ParsedPayload{Score: score, MaxScore: max, Feedback: strings.TrimSpace(text)}
			return out
		}
	}

	return out
}

// NormalizeResult maps both parse variants into a well-formed Result. An
// unparseable payload becomes a zero-score result flagged for human review.
func NormalizeResult(outcome ParseOutcome, maxPoints, threshold float64) Result {
	if outcome.Parsed == nil {
		return Result{
			MaxPoints:           maxPoints,
			Feedback:            "Your answer could not be graded automatically and was queued for instructor review.",
			Confidence:          defaultConfidence,
			RequiresHumanReview: true,
		}
	}

	p := outcome.Parsed
	maxScore := p.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}
	ratio := p.Score / maxScore
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	res := Result{
		PointsEarned: round2(ratio * maxPoints),
		MaxPoints:    maxPoints,
		Feedback:     p.Feedback,
	}
	if p.IsCorrect != nil {
		res.IsCorrect = *p.IsCorrect
	} else {
		res.IsCorrect = ratio >= threshold
	}
	return res
}

// stripCodeFences removes markdown code-fence markers around a JSON body.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "{") {
			// Drop a language tag like "json" on the fence line.
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// coerceNumber reads a JSON number that may arrive as a string.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
