package evaluation

import (
	"strings"

	"github.com/lernio/lernio-backend/internal/model"
)

// evaluateTextHeuristic grades a short answer without AI: exact match earns
// full credit, substring overlap 70%, a keyword hit 50%, otherwise zero.
func evaluateTextHeuristic(q *model.Question, answer string) Result {
	res := Result{MaxPoints: q.Points}

	got := normalizeText(answer)
	want := normalizeText(q.CorrectAnswer)

	if got == "" {
		res.Feedback = "No answer provided."
		return res
	}
	if want == "" && len(q.Keywords) == 0 {
		res.Feedback = "No answer key configured."
		res.RequiresHumanReview = true
		return res
	}

	var ratio float64
	switch {
	case want != "" && got == want:
		ratio = 1.0
		res.Feedback = "Correct."
	case want != "" && (strings.Contains(got, want) || strings.Contains(want, got)):
		ratio = 0.7
		res.Feedback = "Close to the expected answer."
	case keywordHit(got, q.Keywords):
		ratio = 0.5
		res.Feedback = "Mentions some expected concepts."
	default:
		res.Feedback = "Does not match the expected answer."
	}

	res.PointsEarned = round2(ratio * q.Points)
	res.IsCorrect = ratio >= correctnessThreshold
	return res
}

func keywordHit(answer string, keywords []string) bool {
	for _, kw := range keywords {
		kw = normalizeText(kw)
		if kw != "" && strings.Contains(answer, kw) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
