package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is not part of the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSubmissionNotFound is returned when an attempt does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrUnauthenticated is returned when an operation needs a caller identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotVibeQuiz is returned when a vibe analysis is requested for a scored quiz.
	ErrNotVibeQuiz = errors.New("this is not a vibe check quiz")
	// ErrAnalysisFailed is returned when the vibe analysis could not be generated.
	ErrAnalysisFailed = errors.New("vibe analysis failed")
)

// InputError carries a client-facing validation message and matches ErrInvalidInput.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid builds an InputError.
func Invalid(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}
