package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/logger"
	"vibecheck-service/internal/scoring"
)

// AnalyzedByAI marks vibe results produced by the generation client.
const AnalyzedByAI = "ai"

// SubmissionService records attempts, grades them and runs vibe analysis.
type SubmissionService struct {
	store    SubmissionStore
	quizzes  QuizRepository
	attempts AttemptStore
	analyzer *scoring.Analyzer
	now      func() time.Time
	log      *logger.Logger
}

func NewSubmissionService(store SubmissionStore, quizzes QuizRepository, attempts AttemptStore, analyzer *scoring.Analyzer, log *logger.Logger) *SubmissionService {
	return NewSubmissionServiceWithClock(store, quizzes, attempts, analyzer, log, time.Now)
}

// NewSubmissionServiceWithClock is used by tests for deterministic timestamps.
func NewSubmissionServiceWithClock(store SubmissionStore, quizzes QuizRepository, attempts AttemptStore, analyzer *scoring.Analyzer, log *logger.Logger, now func() time.Time) *SubmissionService {
	if log == nil {
		log = logger.Nop()
	}
	return &SubmissionService{
		store:    store,
		quizzes:  quizzes,
		attempts: attempts,
		analyzer: analyzer,
		now:      now,
		log:      log.With("component", "submission_service"),
	}
}

// SubmitParams is the submit request body. Scores sent by clients are not accepted.
type SubmitParams struct {
	QuizID  string            `json:"quizId"`
	UserID  string            `json:"userId,omitempty"`
	Answers map[string]string `json:"answers"`
}

// SubmitResult reports a stored submission. AnalysisError is set when the submission was stored
// but the vibe analysis could not be produced.
type SubmitResult struct {
	SubmissionID    string            `json:"submissionId"`
	AnswersInserted int               `json:"answersInserted"`
	Score           int               `json:"score"`
	MaxScore        int               `json:"maxScore"`
	QuizType        domain.QuizKind   `json:"quizType"`
	VibeAnalysis    string            `json:"vibeAnalysis,omitempty"`
	VibeCategories  map[string]string `json:"vibeCategories,omitempty"`
	AnalysisError   string            `json:"analysisError,omitempty"`
}

// Submit grades the caller's answers and stores the submission with its answers in one write.
// For vibe quizzes the analysis runs afterwards; its failure never undoes the submission.
func (s *SubmissionService) Submit(ctx context.Context, callerID string, params SubmitParams) (SubmitResult, error) {
	if callerID == "" {
		return SubmitResult{}, domain.ErrUnauthenticated
	}
	if params.UserID != "" && params.UserID != callerID {
		return SubmitResult{}, domain.ErrForbidden
	}
	if params.QuizID == "" {
		return SubmitResult{}, domain.Invalid("Missing required fields")
	}

	quiz, err := s.quizzes.GetQuiz(ctx, params.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}

	selections := params.Answers
	if len(selections) == 0 {
		saved, err := s.attempts.Answers(ctx, quiz.ID, callerID)
		if err != nil {
			s.log.Warn("could not load in-progress answers", "quiz_id", quiz.ID, "user_id", callerID, "error", err)
		}
		selections = saved
	}

	tally := scoring.ScoreAnswers(quiz, selections)
	if len(tally.Skipped) > 0 {
		s.log.Warn("skipped answers that do not match the quiz", "quiz_id", quiz.ID, "user_id", callerID, "skipped", tally.Skipped)
	}

	sub, err := s.store.CreateSubmission(ctx, domain.Submission{
		QuizID:      quiz.ID,
		UserID:      callerID,
		Score:       tally.Score,
		MaxScore:    tally.MaxScore,
		CompletedAt: s.now().UTC(),
	}, tally.Answers)
	if err != nil {
		s.log.Error("failed to store submission", "quiz_id", quiz.ID, "user_id", callerID, "error", err)
		return SubmitResult{}, fmt.Errorf("store submission: %w", err)
	}
	if err := s.attempts.Discard(ctx, quiz.ID, callerID); err != nil {
		s.log.Warn("could not discard in-progress answers", "quiz_id", quiz.ID, "user_id", callerID, "error", err)
	}
	s.log.Info("submission stored", "submission_id", sub.ID, "quiz_id", quiz.ID, "user_id", callerID, "score", sub.Score, "max_score", sub.MaxScore)

	result := SubmitResult{
		SubmissionID:    sub.ID,
		AnswersInserted: len(tally.Answers),
		Score:           sub.Score,
		MaxScore:        sub.MaxScore,
		QuizType:        quiz.Kind,
	}
	if quiz.Kind == domain.KindVibe {
		analysis, err := s.analyze(ctx, quiz, sub, selections)
		if err != nil {
			result.AnalysisError = err.Error()
		} else {
			result.VibeAnalysis = analysis.Analysis
			result.VibeCategories = analysis.Categories
		}
	}
	return result, nil
}

// AnalyzeVibe (re)runs the analysis for a stored vibe submission owned by the caller.
func (s *SubmissionService) AnalyzeVibe(ctx context.Context, callerID, submissionID, quizID string) (domain.VibeAnalysis, error) {
	if callerID == "" {
		return domain.VibeAnalysis{}, domain.ErrUnauthenticated
	}
	if submissionID == "" || quizID == "" {
		return domain.VibeAnalysis{}, domain.Invalid("Missing required fields")
	}

	var (
		quiz    domain.Quiz
		sub     domain.Submission
		answers []domain.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quiz, err = s.quizzes.GetQuiz(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		sub, err = s.store.GetSubmission(gctx, submissionID)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = s.store.ListAnswers(gctx, submissionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.VibeAnalysis{}, err
	}

	if sub.UserID != callerID {
		return domain.VibeAnalysis{}, domain.ErrForbidden
	}
	if sub.QuizID != quiz.ID {
		return domain.VibeAnalysis{}, domain.Invalid("Submission does not belong to this quiz")
	}
	if quiz.Kind != domain.KindVibe {
		return domain.VibeAnalysis{}, domain.ErrNotVibeQuiz
	}

	selections := make(map[string]string, len(answers))
	for _, a := range answers {
		selections[a.QuestionID] = a.OptionID
	}
	return s.analyze(ctx, quiz, sub, selections)
}

func (s *SubmissionService) analyze(ctx context.Context, quiz domain.Quiz, sub domain.Submission, selections map[string]string) (domain.VibeAnalysis, error) {
	analysis, err := s.analyzer.Analyze(ctx, quiz, selections)
	if err != nil {
		s.log.Error("vibe analysis failed", "submission_id", sub.ID, "quiz_id", quiz.ID, "error", err)
		return domain.VibeAnalysis{}, err
	}
	_, err = s.store.SaveVibeResult(ctx, domain.VibeResult{
		SubmissionID: sub.ID,
		QuizID:       quiz.ID,
		UserID:       sub.UserID,
		Analysis:     analysis.Analysis,
		Categories:   analysis.Categories,
		AnalyzedBy:   AnalyzedByAI,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		s.log.Error("failed to store vibe result", "submission_id", sub.ID, "error", err)
		return domain.VibeAnalysis{}, fmt.Errorf("%w: store vibe result: %w", domain.ErrAnalysisFailed, err)
	}
	s.log.Info("vibe analysis stored", "submission_id", sub.ID, "quiz_id", quiz.ID, "categories", len(analysis.Categories))
	return analysis, nil
}

// Attempts lists the caller's submissions newest first.
func (s *SubmissionService) Attempts(ctx context.Context, callerID string) ([]domain.Attempt, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.ListAttempts(ctx, callerID)
}

// AttemptAnswers returns the caller's answers for one attempt in question order.
func (s *SubmissionService) AttemptAnswers(ctx context.Context, callerID, attemptID string) ([]domain.AnswerView, error) {
	sub, err := s.ownedSubmission(ctx, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.ListAnswers(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	views := make([]domain.AnswerView, 0, len(answers))
	for _, question := range quiz.Questions {
		a, ok := byQuestion[question.ID]
		if !ok {
			continue
		}
		view := domain.AnswerView{Question: question.Text, Correct: a.Correct}
		if opt, ok := question.Option(a.OptionID); ok {
			view.SelectedOption = opt.Text
		}
		views = append(views, view)
	}
	return views, nil
}

// DeleteAttempt removes one of the caller's submissions with its answers and vibe result.
func (s *SubmissionService) DeleteAttempt(ctx context.Context, callerID, attemptID string) error {
	sub, err := s.ownedSubmission(ctx, callerID, attemptID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSubmission(ctx, sub.ID); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	s.log.Info("attempt deleted", "submission_id", sub.ID, "user_id", callerID)
	return nil
}

func (s *SubmissionService) ownedSubmission(ctx context.Context, callerID, attemptID string) (domain.Submission, error) {
	if callerID == "" {
		return domain.Submission{}, domain.ErrUnauthenticated
	}
	if attemptID == "" {
		return domain.Submission{}, domain.Invalid("Missing attempt ID")
	}
	sub, err := s.store.GetSubmission(ctx, attemptID)
	if err != nil {
		return domain.Submission{}, err
	}
	if sub.UserID != callerID {
		return domain.Submission{}, domain.ErrForbidden
	}
	return sub, nil
}

// RecordProgress saves one in-progress answer after checking it belongs to the quiz.
func (s *SubmissionService) RecordProgress(ctx context.Context, callerID, quizID, questionID, optionID string) error {
	if callerID == "" {
		return domain.ErrUnauthenticated
	}
	if quizID == "" || questionID == "" || optionID == "" {
		return domain.Invalid("Missing required fields")
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	question, ok := quiz.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if _, ok := question.Option(optionID); !ok {
		return domain.ErrOptionNotFound
	}
	return s.attempts.RecordAnswer(ctx, quizID, callerID, questionID, optionID)
}

// Progress returns the caller's saved in-progress answers for a quiz.
func (s *SubmissionService) Progress(ctx context.Context, callerID, quizID string) (map[string]string, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if quizID == "" {
		return nil, domain.Invalid("Missing quiz ID")
	}
	answers, err := s.attempts.Answers(ctx, quizID, callerID)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return answers, nil
}
