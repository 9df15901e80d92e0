package evaluation

import (
	"math"

	"github.com/lernio/lernio-backend/internal/llm"
)

// defaultConfidence is used when per-token log-probabilities are unavailable.
const defaultConfidence = 75

// ConfidenceFromLogprobs derives a 10-100 confidence score from per-token
// log-probabilities: the mean probability sets the base, token-to-token
// variance penalizes it, and longer responses get a small boost.
func ConfidenceFromLogprobs(logprobs []llm.TokenLogprob, contentLen int) int {
	if len(logprobs) == 0 {
		return defaultConfidence
	}

	var sum float64
	for _, lp := range logprobs {
		sum += lp.Logprob
	}
	mean := sum / float64(len(logprobs))

	var variance float64
	for _, lp := range logprobs {
		d := lp.Logprob - mean
		variance += d * d
	}
	variance /= float64(len(logprobs))

	conf := math.Exp(mean) * 100
	conf -= math.Min(30, variance*40)
	switch {
	case contentLen > 400:
		conf += 10
	case contentLen > 150:
		conf += 5
	}

	if conf < 10 {
		conf = 10
	}
	if conf > 100 {
		conf = 100
	}
	return int(math.Round(conf))
}
