package evaluation

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/model"
)

func TestGradeFor(t *testing.T) {
	cases := []struct {
		percent float64
		grade   string
	}{
		{100, "A+"},
		{97, "A+"},
		{96.9, "A"},
		{93, "A"},
		{90, "A-"},
		{87, "B+"},
		{83, "B"},
		{80, "B-"},
		{77, "C+"},
		{73, "C"},
		{70, "C-"},
		{67, "D+"},
		{66.67, "D"},
		{60, "D"},
		{59.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		if got := GradeFor(tc.percent); got != tc.grade {
			t.Errorf("GradeFor(%v) = %s, want %s", tc.percent, got, tc.grade)
		}
	}
}

func aggregateFixture() ([]model.Question, []model.Answer) {
	q1 := model.Question{
		ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Points: 10,
		Difficulty: "beginner",
		Skills:     []model.SkillWeight{{Name: "sql", Weight: 1}},
	}
	q2 := model.Question{
		ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Points: 10,
		Difficulty: "advanced",
		Skills:     []model.SkillWeight{{Name: "sql", Weight: 2}, {Name: "indexing", Weight: 1}},
	}
	q3 := model.Question{
		ID: uuid.New(), Type: model.QuestionTypeEssay, Points: 20,
		Difficulty: "advanced",
	}

	answers := []model.Answer{
		{QuestionID: q1.ID, PointsEarned: 10, MaxPoints: 10, IsCorrect: true},
		{QuestionID: q2.ID, PointsEarned: 0, MaxPoints: 10},
		{QuestionID: q3.ID, PointsEarned: 15, MaxPoints: 20},
	}
	return []model.Question{q1, q2, q3}, answers
}

func TestAggregate(t *testing.T) {
	questions, answers := aggregateFixture()
	cfg := model.SessionConfig{PassingScore: 60, IssuesCertificate: true}

	res := Aggregate(questions, answers, cfg)

	if res.PointsEarned != 25 || res.MaxPoints != 40 {
		t.Fatalf("points = %v/%v", res.PointsEarned, res.MaxPoints)
	}
	if res.ScorePercent != 62.5 {
		t.Fatalf("percent = %v, want 62.5", res.ScorePercent)
	}
	if !res.Passed || res.Grade != "D" {
		t.Fatalf("passed = %v, grade = %s", res.Passed, res.Grade)
	}
	if !res.CertificateEligible {
		t.Fatal("passing + issues_certificate should be eligible")
	}

	// Difficulty breakdown: beginner 10/10, advanced 15/30.
	wantDifficulty := map[string][2]float64{
		"beginner": {10, 10},
		"advanced": {15, 30},
	}
	for _, b := range res.ByDifficulty {
		want, ok := wantDifficulty[b.Name]
		if !ok {
			t.Fatalf("unexpected difficulty bucket %q", b.Name)
		}
		if b.Earned != want[0] || b.Possible != want[1] {
			t.Fatalf("difficulty %s = %v/%v, want %v/%v", b.Name, b.Earned, b.Possible, want[0], want[1])
		}
	}

	// Skill breakdown is weight-scaled: sql = 10*1 + 0*2 / 10*1 + 10*2.
	for _, b := range res.BySkill {
		if b.Name == "sql" {
			if b.Earned != 10 || b.Possible != 30 {
				t.Fatalf("sql bucket = %v/%v, want 10/30", b.Earned, b.Possible)
			}
		}
	}

	// beginner bucket at 100% is a strength, advanced at 50% is neither.
	foundStrength := false
	for _, s := range res.Strengths {
		if s == "beginner (100%)" {
			foundStrength = true
		}
	}
	if !foundStrength {
		t.Fatalf("strengths = %v, want beginner listed", res.Strengths)
	}
	for _, w := range res.Weaknesses {
		if w == "advanced (50%)" {
			t.Fatalf("50%% should not be a weakness: %v", res.Weaknesses)
		}
	}
}

func TestAggregateDeterministic(t *testing.T) {
	questions, answers := aggregateFixture()
	cfg := model.SessionConfig{PassingScore: 60}

	first := Aggregate(questions, answers, cfg)
	for i := 0; i < 20; i++ {
		if got := Aggregate(questions, answers, cfg); !reflect.DeepEqual(first, got) {
			t.Fatal("Aggregate output varies between runs")
		}
	}
}

func TestAggregateUnansweredCountsAsZero(t *testing.T) {
	questions, answers := aggregateFixture()
	cfg := model.SessionConfig{PassingScore: 70}

	// Drop the essay answer entirely.
	res := Aggregate(questions, answers[:2], cfg)
	if res.PointsEarned != 10 || res.MaxPoints != 40 {
		t.Fatalf("points = %v/%v, want 10/40", res.PointsEarned, res.MaxPoints)
	}
	if res.Passed {
		t.Fatal("25% should not pass at 70")
	}
}

func TestAggregateEmptyAssessment(t *testing.T) {
	res := Aggregate(nil, nil, model.SessionConfig{PassingScore: 70})
	if res.ScorePercent != 0 || res.Passed || res.Grade != "F" {
		t.Fatalf("empty aggregate: %+v", res)
	}
	if res.Strengths == nil || res.Weaknesses == nil {
		t.Fatal("strengths/weaknesses must be non-nil for JSON shape stability")
	}
}

func TestConfidenceFromLogprobs(t *testing.T) {
	if got := ConfidenceFromLogprobs(nil, 100); got != defaultConfidence {
		t.Fatalf("no logprobs: %d, want %d", got, defaultConfidence)
	}

	// Near-certain tokens score higher than uncertain ones.
	high := ConfidenceFromLogprobs(tokens(-0.01, 20), 200)
	low := ConfidenceFromLogprobs(tokens(-2.5, 20), 200)
	if high <= low {
		t.Fatalf("confident tokens (%d) should outrank uncertain ones (%d)", high, low)
	}
	if high < 10 || high > 100 || low < 10 || low > 100 {
		t.Fatalf("confidence out of range: high=%d low=%d", high, low)
	}
}

func tokens(logprob float64, n int) []llm.TokenLogprob {
	out := make([]llm.TokenLogprob, n)
	for i := range out {
		out[i].Logprob = logprob
	}
	return out
}
