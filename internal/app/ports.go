package app

import (
	"context"

	"vibecheck-service/internal/domain"
)

// QuizStore persists quiz graphs. CreateQuizGraph and UpdateQuizContent are all-or-nothing.
type QuizStore interface {
	// CreateQuizGraph assigns identities and writes the quiz with every question, option and
	// interpretation, returning the stored graph.
	CreateQuizGraph(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.QuizSummary, error)
	// UpdateQuizContent applies validated edits. Rows without IDs are inserted; a nil Correct on
	// an existing option leaves the flag unchanged.
	UpdateQuizContent(ctx context.Context, quizID string, edits []domain.QuestionEdit) error
	DeleteQuiz(ctx context.Context, quizID string) error
}

// QuizRepository loads quiz content through a cache.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string) error
}

// SubmissionStore persists attempts. CreateSubmission writes the submission and its answers together.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub domain.Submission, answers []domain.Answer) (domain.Submission, error)
	GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error)
	ListAnswers(ctx context.Context, submissionID string) ([]domain.Answer, error)
	ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error)
	SaveVibeResult(ctx context.Context, result domain.VibeResult) (domain.VibeResult, error)
	DeleteSubmission(ctx context.Context, submissionID string) error
}

// SubmissionCounter is the only capability allowed to read across learners.
type SubmissionCounter interface {
	CountSubmissions(ctx context.Context, quizID string) (int, error)
}

// AttemptStore keeps in-progress answers per quiz and learner.
type AttemptStore interface {
	RecordAnswer(ctx context.Context, quizID, userID, questionID, optionID string) error
	Answers(ctx context.Context, quizID, userID string) (map[string]string, error)
	Discard(ctx context.Context, quizID, userID string) error
}
