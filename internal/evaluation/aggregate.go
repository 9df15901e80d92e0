package evaluation

import (
	"fmt"
	"sort"

	"github.com/lernio/lernio-backend/internal/model"
)

// Aggregate computes the final outcome of a completed session: overall
// percentage, pass/fail, letter grade, and breakdowns by difficulty, skill
// (weighted) and question type. Pure function — no I/O, deterministic output
// for the same inputs (breakdown tables are sorted by name).
func Aggregate(questions []model.Question, answers []model.Answer, cfg model.SessionConfig) model.SessionResult {
	answerByQ := make(map[string]*model.Answer, len(answers))
	for i := range answers {
		answerByQ[answers[i].QuestionID.String()] = &answers[i]
	}

	difficulty := newBuckets()
	skill := newBuckets()
	qtype := newBuckets()

	var earned, possible float64
	for i := range questions {
		q := &questions[i]

		var got float64
		if a := answerByQ[q.ID.String()]; a != nil {
			got = a.PointsEarned
		}
		earned += got
		possible += q.Points

		diff := q.Difficulty
		if diff == "" {
			diff = "unspecified"
		}
		difficulty.add(diff, got, q.Points)
		qtype.add(string(q.Type), got, q.Points)
		for _, sw := range q.Skills {
			w := sw.Weight
			if w <= 0 {
				w = 1
			}
			skill.add(sw.Name, got*w, q.Points*w)
		}
	}

	var percent float64
	if possible > 0 {
		percent = round2(earned / possible * 100)
	}

	result := model.SessionResult{
		PointsEarned: round2(earned),
		MaxPoints:    round2(possible),
		ScorePercent: percent,
		Passed:       percent >= cfg.PassingScore,
		Grade:        GradeFor(percent),
		ByDifficulty: difficulty.sorted(),
		BySkill:      skill.sorted(),
		ByType:       qtype.sorted(),
		Strengths:    []string{},
		Weaknesses:   []string{},
	}
	result.CertificateEligible = result.Passed && cfg.IssuesCertificate

	for _, table := range [][]model.CategoryScore{result.ByDifficulty, result.BySkill, result.ByType} {
		for _, b := range table {
			if b.Possible <= 0 {
				continue
			}
			switch {
			case b.Percent >= 80:
				result.Strengths = append(result.Strengths, fmt.Sprintf("%s (%.0f%%)", b.Name, b.Percent))
			case b.Percent < 50:
				result.Weaknesses = append(result.Weaknesses, fmt.Sprintf("%s (%.0f%%)", b.Name, b.Percent))
			}
		}
	}

	return result
}

// GradeFor maps a percentage to a letter grade.
func GradeFor(percent float64) string {
	switch {
	case percent >= 97:
		return "A+"
	case percent >= 93:
		return "A"
	case percent >= 90:
		return "A-"
	case percent >= 87:
		return "B+"
	case percent >= 83:
		return "B"
	case percent >= 80:
		return "B-"
	case percent >= 77:
		return "C+"
	case percent >= 73:
		return "C"
	case percent >= 70:
		return "C-"
	case percent >= 67:
		return "D+"
	case percent >= 60:
		return "D"
	default:
		return "F"
	}
}

// ─── Breakdown buckets ─────────────────────────────────────────────

type buckets struct {
	entries map[string]*model.CategoryScore
}

func newBuckets() *buckets {
	return &buckets{entries: make(map[string]*model.CategoryScore)}
}

func (b *buckets) add(name string, earned, possible float64) {
	e, ok := b.entries[name]
	if !ok {
		e = &model.CategoryScore{Name: name}
		b.entries[name] = e
	}
	e.Earned += earned
	e.Possible += possible
	e.Questions++
}

func (b *buckets) sorted() []model.CategoryScore {
	out := make([]model.CategoryScore, 0, len(b.entries))
	for _, e := range b.entries {
		entry := *e
		entry.Earned = round2(entry.Earned)
		entry.Possible = round2(entry.Possible)
		if entry.Possible > 0 {
			entry.Percent = round2(entry.Earned / entry.Possible * 100)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
