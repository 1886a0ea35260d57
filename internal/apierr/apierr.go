// Package apierr maps service errors onto HTTP status codes and client-facing messages.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/llm"
	"vibecheck-service/internal/quizgen"
)

type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// Details is the diagnostic text attached to upstream failures; empty for client errors.
func (e *Error) Details() string {
	if e.Status < http.StatusInternalServerError || e.Err == nil {
		return ""
	}
	if e.Err.Error() == e.Message {
		return ""
	}
	return e.Err.Error()
}

// From classifies err. Unknown errors become 500s with the error attached as details.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		return New(http.StatusBadRequest, inputErr.Message, err)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return New(http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, domain.ErrUnauthenticated):
		return New(http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, domain.ErrForbidden):
		return New(http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, domain.ErrQuizNotFound):
		return New(http.StatusNotFound, "Quiz not found. It may have been deleted.", err)
	case errors.Is(err, domain.ErrSubmissionNotFound):
		return New(http.StatusNotFound, "Attempt not found", err)
	case errors.Is(err, domain.ErrQuestionNotFound):
		return New(http.StatusNotFound, "Question not found", err)
	case errors.Is(err, domain.ErrOptionNotFound):
		return New(http.StatusNotFound, "Option not found", err)
	case errors.Is(err, domain.ErrNotVibeQuiz):
		return New(http.StatusBadRequest, "This is not a vibe check quiz", err)
	case errors.Is(err, domain.ErrAnalysisFailed):
		return New(http.StatusInternalServerError, "Failed to generate vibe analysis", err)
	}

	if msg, ok := GenerationMessage(err); ok {
		return New(http.StatusInternalServerError, msg, err)
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// GenerationMessage renders model and parser failures the way clients display them.
func GenerationMessage(err error) (string, bool) {
	var providerErr *llm.APIError
	switch {
	case errors.Is(err, llm.ErrMissingCredentials):
		return "Missing or invalid API key. Please check your environment variables.", true
	case errors.Is(err, llm.ErrQuotaExceeded):
		return "API quota exceeded. Please try again later.", true
	case errors.As(err, &providerErr):
		return providerErr.Error(), true
	case errors.Is(err, quizgen.ErrUnparseable):
		return "Could not parse generated content", true
	case errors.Is(err, quizgen.ErrNoQuestions),
		errors.Is(err, quizgen.ErrOptionCount),
		errors.Is(err, quizgen.ErrMalformedQuestion),
		errors.Is(err, quizgen.ErrQuestionCount):
		return "Generated quiz was invalid: " + unwrapGenerate(err), true
	}
	return "", false
}

// unwrapGenerate drops the "generate quiz: " prefix added by the generator.
func unwrapGenerate(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}
