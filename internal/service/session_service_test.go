package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/evaluation"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// ─── Fakes ─────────────────────────────────────────────────────────

type fakeSessionStore struct {
	sessions  map[uuid.UUID]*model.Session
	failNext  bool
	updateErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*model.Session)}
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.Session) error {
	s.ID = uuid.New()
	s.Version = 1
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	stored, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeSessionStore) Update(_ context.Context, s *model.Session) error {
	if f.updateErr != nil {
		err := f.updateErr
		f.updateErr = nil
		return err
	}
	stored, ok := f.sessions[s.ID]
	if !ok {
		return errors.New("no rows")
	}
	if f.failNext || stored.Version != s.Version {
		f.failNext = false
		return repository.ErrVersionConflict
	}
	s.Version++
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessionStore) CountCompletedAttempts(_ context.Context, userID, assessmentID uuid.UUID) (int, error) {
	count := 0
	for _, s := range f.sessions {
		if s.UserID == userID && s.AssessmentID == assessmentID &&
			(s.Status == model.SessionStatusCompleted || s.Status == model.SessionStatusTimeout) {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) LatestCompleted(_ context.Context, userID, assessmentID uuid.UUID) (*model.Session, error) {
	var latest *model.Session
	for _, s := range f.sessions {
		if s.UserID != userID || s.AssessmentID != assessmentID || s.FinishedAt == nil {
			continue
		}
		if s.Status != model.SessionStatusCompleted && s.Status != model.SessionStatusTimeout {
			continue
		}
		if latest == nil || s.FinishedAt.After(*latest.FinishedAt) {
			clone := *s
			latest = &clone
		}
	}
	return latest, nil
}

func (f *fakeSessionStore) ActiveForUser(_ context.Context, userID, assessmentID uuid.UUID) (*model.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.AssessmentID == assessmentID &&
			(s.Status == model.SessionStatusInProgress || s.Status == model.SessionStatusPaused) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]model.Session, int64, error) {
	var out []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSessionStore) ListByAssessment(_ context.Context, assessmentID uuid.UUID, _, _ int) ([]model.Session, int64, error) {
	var out []model.Session
	for _, s := range f.sessions {
		if s.AssessmentID == assessmentID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

type fakeAssessmentStore struct {
	assessments map[uuid.UUID]*model.Assessment
}

func (f *fakeAssessmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, ok := f.assessments[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	clone := *a
	return &clone, nil
}

type fakeQuestionStore struct {
	questions []model.Question
}

func (f *fakeQuestionStore) ListByAssessment(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	return f.questions, nil
}

// fakeEvaluator scores any answer equal to the question's CorrectAnswer
// at full credit, everything else at zero.
type fakeEvaluator struct{}

func (fakeEvaluator) Evaluate(_ context.Context, q *model.Question, raw json.RawMessage) evaluation.Result {
	var answer string
	_ = json.Unmarshal(raw, &answer)
	if answer == q.CorrectAnswer {
		return evaluation.Result{IsCorrect: true, PointsEarned: q.Points, MaxPoints: q.Points}
	}
	return evaluation.Result{MaxPoints: q.Points}
}

type recordedEvents struct {
	types []string
}

func (r *recordedEvents) Publish(_ context.Context, event MonitorEvent) {
	r.types = append(r.types, event.Type)
}

type recordedSink struct {
	finished []*model.Session
}

func (r *recordedSink) SessionFinished(_ context.Context, s *model.Session) {
	r.finished = append(r.finished, s)
}

// ─── Harness ───────────────────────────────────────────────────────

type harness struct {
	svc         *SessionService
	store       *fakeSessionStore
	events      *recordedEvents
	sink        *recordedSink
	clock       *time.Time
	userID      uuid.UUID
	assessment  *model.Assessment
	questionIDs []uuid.UUID
}

func newHarness(t *testing.T, mutate func(*model.Assessment)) *harness {
	t.Helper()

	assessmentID := uuid.New()
	assessment := &model.Assessment{
		ID:               assessmentID,
		Title:            "Go Fundamentals",
		Status:           model.AssessmentStatusPublished,
		PassingScore:     70,
		TimeLimitMinutes: 30,
	}
	if mutate != nil {
		mutate(assessment)
	}

	questions := []model.Question{
		{ID: uuid.New(), AssessmentID: assessmentID, Type: model.QuestionTypeSingleChoice, Text: "Q1", Points: 10, CorrectAnswer: "a", OrderNum: 1},
		{ID: uuid.New(), AssessmentID: assessmentID, Type: model.QuestionTypeSingleChoice, Text: "Q2", Points: 10, CorrectAnswer: "b", OrderNum: 2},
		{ID: uuid.New(), AssessmentID: assessmentID, Type: model.QuestionTypeSingleChoice, Text: "Q3", Points: 10, CorrectAnswer: "c", OrderNum: 3},
	}

	store := newFakeSessionStore()
	events := &recordedEvents{}
	sink := &recordedSink{}
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := &start

	svc := NewSessionService(
		store,
		&fakeAssessmentStore{assessments: map[uuid.UUID]*model.Assessment{assessmentID: assessment}},
		&fakeQuestionStore{questions: questions},
		nil,
		fakeEvaluator{},
		events,
		sink,
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return *clock }

	ids := make([]uuid.UUID, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
	}

	return &harness{
		svc:         svc,
		store:       store,
		events:      events,
		sink:        sink,
		clock:       clock,
		userID:      uuid.New(),
		assessment:  assessment,
		questionIDs: ids,
	}
}

func (h *harness) advance(d time.Duration) {
	*h.clock = h.clock.Add(d)
}

func (h *harness) answer(idx int, value string) model.SubmitAnswerRequest {
	raw, _ := json.Marshal(value)
	return model.SubmitAnswerRequest{QuestionID: h.questionIDs[idx].String(), Answer: raw}
}

// ─── Tests ─────────────────────────────────────────────────────────

func TestStartSessionSnapshotsConfig(t *testing.T) {
	h := newHarness(t, nil)

	session, questions, err := h.svc.StartSession(context.Background(), h.userID, h.assessment.ID, "firefox/linux")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if session.Status != model.SessionStatusInProgress {
		t.Errorf("status = %s, want in_progress", session.Status)
	}
	if session.Device != "firefox/linux" {
		t.Errorf("device = %q, want firefox/linux", session.Device)
	}
	if session.AttemptNumber != 1 {
		t.Errorf("attempt = %d, want 1", session.AttemptNumber)
	}
	if session.Config.TotalQuestions != 3 || session.Config.TotalPoints != 30 {
		t.Errorf("config snapshot = %+v", session.Config)
	}
	if session.Config.PassingScore != 70 {
		t.Errorf("passing score = %v, want 70", session.Config.PassingScore)
	}
	if len(questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(questions))
	}
	if len(h.events.types) != 1 || h.events.types[0] != "session_started" {
		t.Errorf("events = %v", h.events.types)
	}
}

func TestStartSessionResumesActive(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	second, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if err != nil {
		t.Fatalf("StartSession again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the open session to be resumed, got a new one")
	}
}

func TestStartSessionRejectsUnpublished(t *testing.T) {
	h := newHarness(t, func(a *model.Assessment) { a.Status = model.AssessmentStatusDraft })

	_, _, err := h.svc.StartSession(context.Background(), h.userID, h.assessment.ID, "")
	if !errors.Is(err, ErrNotPublished) {
		t.Fatalf("err = %v, want ErrNotPublished", err)
	}
}

func TestSubmitAnswerScoresAndAdvances(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	answer, next, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a"))
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !answer.IsCorrect || answer.PointsEarned != 10 {
		t.Errorf("answer = %+v", answer)
	}
	if next == nil || next.ID != h.questionIDs[1] {
		t.Errorf("next should be the second question, got %+v", next)
	}

	// Resubmission overwrites, never duplicates.
	answer, _, err = h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "wrong"))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if answer.IsCorrect || answer.PointsEarned != 0 {
		t.Errorf("overwritten answer = %+v", answer)
	}
	stored, _ := h.store.GetByID(ctx, session.ID)
	if len(stored.Answers) != 1 {
		t.Errorf("answers = %d, want 1", len(stored.Answers))
	}
}

func TestSubmitAnswerUnknownQuestion(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	raw, _ := json.Marshal("a")
	_, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, model.SubmitAnswerRequest{
		QuestionID: uuid.New().String(),
		Answer:     raw,
	})
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestPauseResumeStopsClock(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")

	h.advance(20 * time.Minute)
	if _, err := h.svc.PauseSession(ctx, session.ID, h.userID); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// Pausing a paused session is invalid.
	if _, err := h.svc.PauseSession(ctx, session.ID, h.userID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double pause err = %v, want ErrInvalidState", err)
	}
	// So is answering while paused.
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("submit while paused err = %v, want ErrInvalidState", err)
	}

	// An hour on pause must not consume the 30-minute budget.
	h.advance(time.Hour)
	resumed, err := h.svc.ResumeSession(ctx, session.ID, h.userID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != model.SessionStatusInProgress {
		t.Errorf("status = %s, want in_progress", resumed.Status)
	}
	if resumed.PausedSeconds != 3600 {
		t.Errorf("paused seconds = %d, want 3600", resumed.PausedSeconds)
	}

	h.advance(5 * time.Minute) // 25 active minutes total, still inside the limit
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a")); err != nil {
		t.Fatalf("submit after resume: %v", err)
	}
}

func TestCompleteSessionAggregatesResult(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a")); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(1, "b")); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	// The last answer rides in with the completion request.
	done, err := h.svc.CompleteSession(ctx, session.ID, h.userID, model.CompleteSessionRequest{
		FinalAnswers: []model.SubmitAnswerRequest{h.answer(2, "wrong")},
	})
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	if done.Status != model.SessionStatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.Result == nil {
		t.Fatal("result missing")
	}
	if done.Result.ScorePercent != 66.67 {
		t.Errorf("score = %v, want 66.67", done.Result.ScorePercent)
	}
	if done.Result.Grade != "D" {
		t.Errorf("grade = %s, want D", done.Result.Grade)
	}
	if done.Result.Passed {
		t.Error("66.67 must not pass a 70 threshold")
	}
	if len(h.sink.finished) != 1 {
		t.Errorf("sink calls = %d, want 1", len(h.sink.finished))
	}

	// Terminal sessions reject every further operation.
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("submit after complete err = %v, want ErrInvalidState", err)
	}
	if _, err := h.svc.CompleteSession(ctx, session.ID, h.userID, model.CompleteSessionRequest{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double complete err = %v, want ErrInvalidState", err)
	}
	if _, err := h.svc.PauseSession(ctx, session.ID, h.userID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("pause after complete err = %v, want ErrInvalidState", err)
	}
}

func TestLazyTimeoutFinalizesSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a")); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	h.advance(31 * time.Minute)

	// First touch past the limit finalizes and reports the timeout.
	_, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(1, "b"))
	if !errors.Is(err, ErrSessionTimeout) {
		t.Fatalf("err = %v, want ErrSessionTimeout", err)
	}

	stored, _ := h.store.GetByID(ctx, session.ID)
	if stored.Status != model.SessionStatusTimeout {
		t.Errorf("status = %s, want timeout", stored.Status)
	}
	if stored.Result == nil {
		t.Fatal("timed-out session must carry a result for its recorded answers")
	}
	if stored.Result.ScorePercent != 33.33 {
		t.Errorf("score = %v, want 33.33", stored.Result.ScorePercent)
	}
	if len(stored.Answers) != 1 {
		t.Errorf("the late answer must not be recorded, answers = %d", len(stored.Answers))
	}

	// Every touch after finalization is a plain invalid-state error.
	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(1, "b")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
	if len(h.sink.finished) != 1 {
		t.Errorf("sink calls = %d, want 1", len(h.sink.finished))
	}
}

func TestPerQuestionLimitZeroesAnswer(t *testing.T) {
	h := newHarness(t, func(a *model.Assessment) { a.PerQuestionSeconds = 60 })
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")

	req := h.answer(0, "a")
	req.TimeSpentSeconds = 90
	answer, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, req)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if answer.IsCorrect || answer.PointsEarned != 0 {
		t.Errorf("overtime answer = %+v, want zero score", answer)
	}
	if answer.Feedback == "" {
		t.Error("overtime answer should explain itself")
	}
}

func TestEligibilityMaxAttempts(t *testing.T) {
	h := newHarness(t, func(a *model.Assessment) { a.MaxAttempts = 1 })
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if _, err := h.svc.CompleteSession(ctx, session.ID, h.userID, model.CompleteSessionRequest{}); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	_, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	var notEligible *NotEligibleError
	if !errors.As(err, &notEligible) {
		t.Fatalf("err = %v, want NotEligibleError", err)
	}
	if len(notEligible.Reasons) != 1 || !strings.Contains(notEligible.Reasons[0], "maximum attempts") {
		t.Errorf("reasons = %v", notEligible.Reasons)
	}
}

func TestEligibilityCooldownReportsWait(t *testing.T) {
	h := newHarness(t, func(a *model.Assessment) { a.CooldownHours = 24 })
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if _, err := h.svc.CompleteSession(ctx, session.ID, h.userID, model.CompleteSessionRequest{}); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	h.advance(time.Hour)
	_, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	var notEligible *NotEligibleError
	if !errors.As(err, &notEligible) {
		t.Fatalf("err = %v, want NotEligibleError", err)
	}
	if len(notEligible.Reasons) != 1 || !strings.Contains(notEligible.Reasons[0], "23h") {
		t.Errorf("reasons = %v, want remaining wait of 23h", notEligible.Reasons)
	}

	// Once the window passes a new attempt is allowed again.
	h.advance(24 * time.Hour)
	if _, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, ""); err != nil {
		t.Fatalf("StartSession after cooldown: %v", err)
	}
}

func TestAbandonedSessionsDoNotCountAsAttempts(t *testing.T) {
	h := newHarness(t, func(a *model.Assessment) { a.MaxAttempts = 1 })
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	abandoned, err := h.svc.AbandonSession(ctx, session.ID, h.userID)
	if err != nil {
		t.Fatalf("AbandonSession: %v", err)
	}
	if abandoned.Status != model.SessionStatusAbandoned {
		t.Errorf("status = %s, want abandoned", abandoned.Status)
	}
	if abandoned.Result != nil {
		t.Error("abandoned sessions carry no result")
	}

	if _, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, ""); err != nil {
		t.Fatalf("a fresh attempt after abandoning should be allowed: %v", err)
	}
}

func TestStartSessionSurfacesTimeoutFinalizeFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	h.advance(31 * time.Minute)
	h.store.updateErr = errors.New("connection reset")

	if _, _, err := h.svc.StartSession(ctx, h.userID, h.assessment.ID, ""); err == nil {
		t.Fatal("expected the failed timeout finalization to surface")
	}
	if len(h.store.sessions) != 1 {
		t.Errorf("sessions = %d, want 1 (no second attempt while the first is open)", len(h.store.sessions))
	}
}

func TestAbandonRequiresRunningSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	if _, err := h.svc.PauseSession(ctx, session.ID, h.userID); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}

	if _, err := h.svc.AbandonSession(ctx, session.ID, h.userID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("abandon paused err = %v, want ErrInvalidState", err)
	}
	stored, _ := h.store.GetByID(ctx, session.ID)
	if stored.Status != model.SessionStatusPaused {
		t.Errorf("status = %s, want paused", stored.Status)
	}

	// Resuming first makes abandon reachable again.
	if _, err := h.svc.ResumeSession(ctx, session.ID, h.userID); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if _, err := h.svc.AbandonSession(ctx, session.ID, h.userID); err != nil {
		t.Fatalf("AbandonSession after resume: %v", err)
	}
}

func TestSubmitAnswerVersionConflict(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	h.store.failNext = true

	_, _, err := h.svc.SubmitAnswer(ctx, session.ID, h.userID, h.answer(0, "a"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session, _, _ := h.svc.StartSession(ctx, h.userID, h.assessment.ID, "")
	stranger := uuid.New()

	if _, _, err := h.svc.SubmitAnswer(ctx, session.ID, stranger, h.answer(0, "a")); !errors.Is(err, ErrForbidden) {
		t.Errorf("submit err = %v, want ErrForbidden", err)
	}
	if _, err := h.svc.GetSession(ctx, session.ID, stranger, false); !errors.Is(err, ErrForbidden) {
		t.Errorf("get err = %v, want ErrForbidden", err)
	}
	if _, err := h.svc.GetSession(ctx, session.ID, stranger, true); err != nil {
		t.Errorf("staff get err = %v, want nil", err)
	}
}

// fakeMaterializer stands in for the generation service on the lazy path.
type fakeMaterializer struct {
	store *fakeQuestionStore
	out   []model.Question
	calls int
}

func (f *fakeMaterializer) Materialize(_ context.Context, _ *model.Assessment) ([]model.Question, error) {
	f.calls++
	f.store.questions = f.out
	return f.out, nil
}

func TestStartSessionMaterializesAIQuestions(t *testing.T) {
	ctx := context.Background()

	assessmentID := uuid.New()
	assessment := &model.Assessment{
		ID:              assessmentID,
		Title:           "Generated Quiz",
		Status:          model.AssessmentStatusPublished,
		PassingScore:    70,
		AIGenerated:     true,
		GenerationTopic: "goroutines and channels",
	}

	qstore := &fakeQuestionStore{}
	gen := &fakeMaterializer{
		store: qstore,
		out: []model.Question{
			{ID: uuid.New(), AssessmentID: assessmentID, Type: model.QuestionTypeSingleChoice, Text: "G1", Points: 10, CorrectAnswer: "a", OrderNum: 1},
			{ID: uuid.New(), AssessmentID: assessmentID, Type: model.QuestionTypeSingleChoice, Text: "G2", Points: 10, CorrectAnswer: "b", OrderNum: 2},
		},
	}

	svc := NewSessionService(
		newFakeSessionStore(),
		&fakeAssessmentStore{assessments: map[uuid.UUID]*model.Assessment{assessmentID: assessment}},
		qstore,
		gen,
		fakeEvaluator{},
		nil,
		nil,
		zerolog.Nop(),
	)

	session, questions, err := svc.StartSession(ctx, uuid.New(), assessmentID, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("materializer calls = %d, want 1", gen.calls)
	}
	if len(questions) != 2 || session.Config.TotalQuestions != 2 || session.Config.TotalPoints != 20 {
		t.Fatalf("snapshot = %+v with %d questions", session.Config, len(questions))
	}

	// A second learner reuses the stored set; no regeneration.
	if _, _, err := svc.StartSession(ctx, uuid.New(), assessmentID, ""); err != nil {
		t.Fatalf("second StartSession: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("materializer calls after reuse = %d, want 1", gen.calls)
	}
}
