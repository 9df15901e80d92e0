package evaluation

// Result is the outcome of evaluating one answer. It is always well-formed:
// evaluation failures degrade into a zero-score, human-review-flagged result
// instead of an error.
type Result struct {
	IsCorrect           bool    `json:"is_correct"`
	PointsEarned        float64 `json:"points_earned"`
	MaxPoints           float64 `json:"max_points"`
	Feedback            string  `json:"feedback,omitempty"`
	Confidence          int     `json:"confidence,omitempty"` // 10-100, 0 = not AI-scored
	RequiresHumanReview bool    `json:"requires_human_review,omitempty"`
	AIEvaluated         bool    `json:"ai_evaluated,omitempty"`
}
