package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/evaluation"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// SessionStore is the persistence surface the session service needs.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) error
	CountCompletedAttempts(ctx context.Context, userID, assessmentID uuid.UUID) (int, error)
	LatestCompleted(ctx context.Context, userID, assessmentID uuid.UUID) (*model.Session, error)
	ActiveForUser(ctx context.Context, userID, assessmentID uuid.UUID) (*model.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Session, int64, error)
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID, page, perPage int) ([]model.Session, int64, error)
}

// AssessmentStore provides read access to assessment definitions.
type AssessmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
}

// QuestionStore provides read access to an assessment's questions.
type QuestionStore interface {
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// QuestionMaterializer generates and persists the question set for an
// AI-generated assessment that has none stored yet.
type QuestionMaterializer interface {
	Materialize(ctx context.Context, assessment *model.Assessment) ([]model.Question, error)
}

// AnswerEvaluator scores a raw answer against its question.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, q *model.Question, raw json.RawMessage) evaluation.Result
}

// EventPublisher fans live session events out to monitor observers.
type EventPublisher interface {
	Publish(ctx context.Context, event MonitorEvent)
}

// CompletionSink receives terminal sessions for follow-up side effects
// (certificates, progress, analytics, review tasks). Implementations must
// be best-effort: the session outcome is already persisted.
type CompletionSink interface {
	SessionFinished(ctx context.Context, s *model.Session)
}

// SessionService drives the assessment session state machine.
//
// Timeouts are enforced lazily: nothing expires a session in the
// background, the limit is checked whenever the session is next touched
// and the session is finalized then.
type SessionService struct {
	sessions    SessionStore
	assessments AssessmentStore
	questions   QuestionStore
	generator   QuestionMaterializer
	evaluator   AnswerEvaluator
	monitor     EventPublisher
	sink        CompletionSink
	log         zerolog.Logger

	now func() time.Time
}

// NewSessionService creates a new SessionService. generator, monitor and
// sink may be nil, disabling lazy question generation, live events and
// completion side effects respectively.
func NewSessionService(
	sessions SessionStore,
	assessments AssessmentStore,
	questions QuestionStore,
	generator QuestionMaterializer,
	evaluator AnswerEvaluator,
	monitor EventPublisher,
	sink CompletionSink,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		assessments: assessments,
		questions:   questions,
		generator:   generator,
		evaluator:   evaluator,
		monitor:     monitor,
		sink:        sink,
		log:         log.With().Str("component", "session_service").Logger(),
		now:         time.Now,
	}
}

// StartSession creates a new attempt for a learner, or resumes their
// existing active session for the same assessment. device is a free-form
// client descriptor recorded on the session and shown to monitors.
func (s *SessionService) StartSession(ctx context.Context, userID, assessmentID uuid.UUID, device string) (*model.Session, []model.QuestionForLearner, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	if assessment.Status != model.AssessmentStatusPublished {
		return nil, nil, ErrNotPublished
	}

	questions, err := s.questions.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		// AI-generated assessments materialize their question set on
		// first demand; every later session reuses the same set.
		if assessment.AIGenerated && s.generator != nil {
			questions, err = s.generator.Materialize(ctx, assessment)
			if err != nil {
				return nil, nil, fmt.Errorf("materialize questions: %w", err)
			}
		}
		if len(questions) == 0 {
			return nil, nil, ErrNoQuestions
		}
	}

	// An open attempt is resumed rather than duplicated.
	if active, err := s.sessions.ActiveForUser(ctx, userID, assessmentID); err != nil {
		return nil, nil, fmt.Errorf("check active session: %w", err)
	} else if active != nil {
		if _, err := s.checkTimeout(ctx, active); err != nil {
			return nil, nil, err
		}
		if !active.Status.Terminal() {
			return active, learnerQuestions(questions), nil
		}
	}

	if err := s.checkEligibility(ctx, userID, assessment); err != nil {
		return nil, nil, err
	}

	attempts, err := s.sessions.CountCompletedAttempts(ctx, userID, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("count attempts: %w", err)
	}

	var totalPoints float64
	for i := range questions {
		totalPoints += questions[i].Points
	}

	now := s.now()
	session := &model.Session{
		UserID:        userID,
		AssessmentID:  assessmentID,
		AttemptNumber: attempts + 1,
		Device:        device,
		Status:        model.SessionStatusInProgress,
		Config:        assessment.SnapshotConfig(len(questions), totalPoints),
		Answers:       []model.Answer{},
		StartedAt:     now,
		LastActivity:  now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(ctx, MonitorEvent{
		Type:         "session_started",
		SessionID:    session.ID,
		AssessmentID: assessmentID,
		UserID:       userID,
		Device:       device,
	})

	return session, learnerQuestions(questions), nil
}

// GetSession retrieves a session after running the lazy timeout check.
// Non-owners get ErrForbidden unless they are staff.
func (s *SessionService) GetSession(ctx context.Context, sessionID, callerID uuid.UUID, staff bool) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if session.UserID != callerID && !staff {
		return nil, ErrForbidden
	}
	if _, err := s.checkTimeout(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitAnswer records and scores one answer, returning the stored answer
// and the next unanswered question (nil when all are answered).
//
// Resubmitting a question overwrites the previous answer. A submission
// that arrives after the time budget is spent finalizes the session as
// timed out and returns ErrSessionTimeout; later submissions against the
// already-terminal session get ErrInvalidState.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, userID uuid.UUID, req model.SubmitAnswerRequest) (*model.Answer, *model.QuestionForLearner, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	if session.UserID != userID {
		return nil, nil, ErrForbidden
	}
	if session.Status.Terminal() {
		return nil, nil, ErrInvalidState
	}
	if session.Status != model.SessionStatusInProgress {
		return nil, nil, ErrInvalidState
	}

	timedOut, err := s.checkTimeout(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	if timedOut {
		return nil, nil, ErrSessionTimeout
	}

	questions, err := s.questions.ListByAssessment(ctx, session.AssessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load questions: %w", err)
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return nil, nil, ErrUnknownQuestion
	}
	question := questionByID(questions, questionID)
	if question == nil {
		return nil, nil, ErrUnknownQuestion
	}

	answer := s.scoreAnswer(ctx, session, question, req)
	session.SetAnswer(answer)
	session.LastActivity = s.now()

	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, ErrConflict
		}
		return nil, nil, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, MonitorEvent{
		Type:          "answer_submitted",
		SessionID:     session.ID,
		AssessmentID:  session.AssessmentID,
		UserID:        session.UserID,
		AnsweredCount: len(session.Answers),
	})

	var next *model.QuestionForLearner
	for i := range questions {
		if session.AnswerFor(questions[i].ID) == nil {
			q := questions[i].ForLearner()
			next = &q
			break
		}
	}

	stored := session.AnswerFor(questionID)
	return stored, next, nil
}

// PauseSession halts the session clock. Only in_progress sessions pause.
func (s *SessionService) PauseSession(ctx context.Context, sessionID, userID uuid.UUID) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	if session.Status != model.SessionStatusInProgress {
		return nil, ErrInvalidState
	}

	timedOut, err := s.checkTimeout(ctx, session)
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, ErrSessionTimeout
	}

	now := s.now()
	session.Status = model.SessionStatusPaused
	session.PausedAt = &now
	session.LastActivity = now

	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, MonitorEvent{
		Type:         "session_paused",
		SessionID:    session.ID,
		AssessmentID: session.AssessmentID,
		UserID:       session.UserID,
	})
	return session, nil
}

// ResumeSession restarts a paused session's clock. Time spent paused is
// added to PausedSeconds so it never counts against the budget.
func (s *SessionService) ResumeSession(ctx context.Context, sessionID, userID uuid.UUID) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	if session.Status != model.SessionStatusPaused {
		return nil, ErrInvalidState
	}

	now := s.now()
	if session.PausedAt != nil {
		session.PausedSeconds += int(now.Sub(*session.PausedAt) / time.Second)
		session.PausedAt = nil
	}
	session.Status = model.SessionStatusInProgress
	session.LastActivity = now

	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, MonitorEvent{
		Type:         "session_resumed",
		SessionID:    session.ID,
		AssessmentID: session.AssessmentID,
		UserID:       session.UserID,
	})
	return session, nil
}

// CompleteSession finalizes a session: any final answers are scored, the
// result is aggregated and persisted, and completion side effects fire.
func (s *SessionService) CompleteSession(ctx context.Context, sessionID, userID uuid.UUID, req model.CompleteSessionRequest) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	if session.Status.Terminal() {
		return nil, ErrInvalidState
	}
	if session.Status != model.SessionStatusInProgress {
		return nil, ErrInvalidState
	}

	timedOut, err := s.checkTimeout(ctx, session)
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, ErrSessionTimeout
	}

	questions, err := s.questions.ListByAssessment(ctx, session.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	for _, fa := range req.FinalAnswers {
		questionID, err := uuid.Parse(fa.QuestionID)
		if err != nil {
			return nil, ErrUnknownQuestion
		}
		question := questionByID(questions, questionID)
		if question == nil {
			return nil, ErrUnknownQuestion
		}
		session.SetAnswer(s.scoreAnswer(ctx, session, question, fa))
	}

	now := s.now()
	result := evaluation.Aggregate(questions, session.Answers, session.Config)
	session.Status = model.SessionStatusCompleted
	session.Result = &result
	session.FinishedAt = &now
	session.LastActivity = now

	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, MonitorEvent{
		Type:          "session_completed",
		SessionID:     session.ID,
		AssessmentID:  session.AssessmentID,
		UserID:        session.UserID,
		AnsweredCount: len(session.Answers),
		ScorePercent:  &result.ScorePercent,
	})
	if s.sink != nil {
		s.sink.SessionFinished(ctx, session)
	}
	return session, nil
}

// AbandonSession marks a running session abandoned. A paused session
// must be resumed first; the only exit from paused is resume. Abandoned
// attempts do not count toward the attempt limit and produce no result.
func (s *SessionService) AbandonSession(ctx context.Context, sessionID, userID uuid.UUID) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	if session.Status != model.SessionStatusInProgress {
		return nil, ErrInvalidState
	}

	now := s.now()
	session.Status = model.SessionStatusAbandoned
	session.FinishedAt = &now
	session.LastActivity = now

	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// ListUserSessions retrieves a user's attempt history.
func (s *SessionService) ListUserSessions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Session, int64, error) {
	return s.sessions.ListByUser(ctx, userID, page, perPage)
}

// ListAssessmentSessions retrieves the attempts against an assessment for
// its author (admins see any assessment's attempts).
func (s *SessionService) ListAssessmentSessions(ctx context.Context, assessmentID, callerID uuid.UUID, admin bool, page, perPage int) ([]model.Session, int64, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, 0, ErrNotFound
	}
	if !admin && assessment.AuthorID != callerID {
		return nil, 0, ErrForbidden
	}
	return s.sessions.ListByAssessment(ctx, assessmentID, page, perPage)
}

// ─── Internals ─────────────────────────────────────────────────────

// checkEligibility enforces the attempt limit and the cooldown window.
// All violated rules are reported together.
func (s *SessionService) checkEligibility(ctx context.Context, userID uuid.UUID, assessment *model.Assessment) error {
	var reasons []string

	attempts, err := s.sessions.CountCompletedAttempts(ctx, userID, assessment.ID)
	if err != nil {
		return fmt.Errorf("count attempts: %w", err)
	}
	if assessment.MaxAttempts > 0 && attempts >= assessment.MaxAttempts {
		reasons = append(reasons, fmt.Sprintf("maximum attempts reached (%d)", assessment.MaxAttempts))
	}

	if assessment.CooldownHours > 0 {
		latest, err := s.sessions.LatestCompleted(ctx, userID, assessment.ID)
		if err != nil {
			return fmt.Errorf("check cooldown: %w", err)
		}
		if latest != nil && latest.FinishedAt != nil {
			until := latest.FinishedAt.Add(time.Duration(assessment.CooldownHours) * time.Hour)
			if wait := until.Sub(s.now()); wait > 0 {
				reasons = append(reasons, fmt.Sprintf("cooldown active for another %s", wait.Round(time.Minute)))
			}
		}
	}

	if len(reasons) > 0 {
		return &NotEligibleError{Reasons: reasons}
	}
	return nil
}

// checkTimeout finalizes an in-progress session whose budget is spent.
// Returns true when the session was (or already had been) timed out here.
func (s *SessionService) checkTimeout(ctx context.Context, session *model.Session) (bool, error) {
	if session.Status != model.SessionStatusInProgress || session.Config.TimeLimitMinutes <= 0 {
		return false, nil
	}
	now := s.now()
	limit := time.Duration(session.Config.TimeLimitMinutes) * time.Minute
	if session.ActiveElapsed(now) < limit {
		return false, nil
	}

	questions, err := s.questions.ListByAssessment(ctx, session.AssessmentID)
	if err != nil {
		return false, fmt.Errorf("load questions: %w", err)
	}

	result := evaluation.Aggregate(questions, session.Answers, session.Config)
	session.Status = model.SessionStatusTimeout
	session.Result = &result
	session.FinishedAt = &now
	session.LastActivity = now

	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Another request finalized it first; treat as timed out.
			return true, nil
		}
		return false, fmt.Errorf("finalize timeout: %w", err)
	}

	s.log.Info().Str("session_id", session.ID.String()).Msg("Session timed out")
	s.publish(ctx, MonitorEvent{
		Type:          "session_timeout",
		SessionID:     session.ID,
		AssessmentID:  session.AssessmentID,
		UserID:        session.UserID,
		AnsweredCount: len(session.Answers),
		ScorePercent:  &result.ScorePercent,
	})
	if s.sink != nil {
		s.sink.SessionFinished(ctx, session)
	}
	return true, nil
}

// scoreAnswer evaluates one submission into a stored Answer. A submission
// that overran the per-question budget scores zero without evaluation.
func (s *SessionService) scoreAnswer(ctx context.Context, session *model.Session, question *model.Question, req model.SubmitAnswerRequest) model.Answer {
	answer := model.Answer{
		QuestionID:       question.ID,
		Raw:              req.Answer,
		TimeSpentSeconds: req.TimeSpentSeconds,
		MaxPoints:        question.Points,
		SubmittedAt:      s.now(),
	}

	if limit := session.Config.PerQuestionSeconds; limit > 0 && req.TimeSpentSeconds > limit {
		answer.Feedback = "Per-question time limit exceeded."
		return answer
	}

	res := s.evaluator.Evaluate(ctx, question, req.Answer)
	answer.IsCorrect = res.IsCorrect
	answer.PointsEarned = res.PointsEarned
	answer.MaxPoints = res.MaxPoints
	answer.Feedback = res.Feedback
	if res.AIEvaluated || res.RequiresHumanReview {
		answer.AI = &model.AIEvaluation{
			Score:               res.PointsEarned,
			MaxScore:            res.MaxPoints,
			Feedback:            res.Feedback,
			Confidence:          res.Confidence,
			RequiresHumanReview: res.RequiresHumanReview,
		}
	}
	return answer
}

func (s *SessionService) publish(ctx context.Context, event MonitorEvent) {
	if s.monitor != nil {
		s.monitor.Publish(ctx, event)
	}
}

func questionByID(questions []model.Question, id uuid.UUID) *model.Question {
	for i := range questions {
		if questions[i].ID == id {
			return &questions[i]
		}
	}
	return nil
}

func learnerQuestions(questions []model.Question) []model.QuestionForLearner {
	out := make([]model.QuestionForLearner, 0, len(questions))
	for i := range questions {
		out = append(out, questions[i].ForLearner())
	}
	return out
}
