package evaluation

import (
	"strings"

	"github.com/lernio/lernio-backend/internal/model"
)

// evaluateSingleChoice exact-matches the selected option id against the
// marked-correct option.
func evaluateSingleChoice(q *model.Question, selected string) Result {
	correct := q.CorrectOptionIDs()

	res := Result{MaxPoints: q.Points}
	if len(correct) > 0 && strings.EqualFold(strings.TrimSpace(selected), correct[0]) {
		res.IsCorrect = true
		res.PointsEarned = q.Points
		res.Feedback = "Correct."
	} else {
		res.Feedback = "Incorrect."
	}
	return res
}

// evaluateTrueFalse matches a boolean answer against the stored key. The key
// lives either in CorrectAnswer ("true"/"false") or a marked option.
func evaluateTrueFalse(q *model.Question, answer string) Result {
	key := strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
	if key == "" {
		if ids := q.CorrectOptionIDs(); len(ids) > 0 {
			key = strings.ToLower(ids[0])
		}
	}

	res := Result{MaxPoints: q.Points}
	if key != "" && strings.ToLower(strings.TrimSpace(answer)) == key {
		res.IsCorrect = true
		res.PointsEarned = q.Points
		res.Feedback = "Correct."
	} else {
		res.Feedback = "Incorrect."
	}
	return res
}

// evaluateMultiSelect scores with partial credit:
//
//	score = max(0, correct − 0.5×incorrect − 0.25×missed) / totalCorrect
//
// Selecting extra correct options never lowers the score; the correctness
// threshold is 70%.
func evaluateMultiSelect(q *model.Question, selected []string) Result {
	correctSet := make(map[string]bool)
	for _, id := range q.CorrectOptionIDs() {
		correctSet[strings.ToLower(id)] = true
	}

	res := Result{MaxPoints: q.Points}
	if len(correctSet) == 0 {
		res.Feedback = "Question has no correct options configured."
		res.RequiresHumanReview = true
		return res
	}

	seen := make(map[string]bool)
	var hits, wrong float64
	for _, id := range selected {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if correctSet[id] {
			hits++
		} else {
			wrong++
		}
	}
	missed := float64(len(correctSet)) - hits

	score := (hits - 0.5*wrong - 0.25*missed) / float64(len(correctSet))
	if score < 0 {
		score = 0
	}

	res.PointsEarned = round2(score * q.Points)
	res.IsCorrect = score >= correctnessThreshold
	if res.IsCorrect {
		res.Feedback = "Correct."
	} else if score > 0 {
		res.Feedback = "Partially correct."
	} else {
		res.Feedback = "Incorrect."
	}
	return res
}
