package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an operation is not allowed in the
	// session's current state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrSessionTimeout indicates the session's time limit was exceeded
	// before the operation could be applied.
	ErrSessionTimeout = errors.New("session timed out")

	// ErrConflict indicates a concurrent modification was detected and
	// the caller should retry.
	ErrConflict = errors.New("concurrent modification")

	// ErrNotPublished indicates the assessment is not open to learners.
	ErrNotPublished = errors.New("assessment not published")

	// ErrNoQuestions indicates the assessment has no questions to serve.
	ErrNoQuestions = errors.New("assessment has no questions")

	// ErrUnknownQuestion indicates an answer referenced a question that
	// is not part of the session.
	ErrUnknownQuestion = errors.New("question not in session")

	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// NotEligibleError reports why a learner may not start a new attempt.
type NotEligibleError struct {
	Reasons []string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", strings.Join(e.Reasons, "; "))
}
