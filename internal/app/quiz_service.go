package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/logger"
	"vibecheck-service/internal/quizgen"
)

// MaxGeneratedQuestions bounds numQuestions for API clients.
const MaxGeneratedQuestions = 20

const countConcurrency = 8

// QuizService contains the quiz authoring and reading use cases.
type QuizService struct {
	store     QuizStore
	quizzes   QuizRepository
	counter   SubmissionCounter
	generator *quizgen.Generator
	log       *logger.Logger
}

func NewQuizService(store QuizStore, quizzes QuizRepository, counter SubmissionCounter, generator *quizgen.Generator, log *logger.Logger) *QuizService {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizService{
		store:     store,
		quizzes:   quizzes,
		counter:   counter,
		generator: generator,
		log:       log.With("component", "quiz_service"),
	}
}

// GenerateParams is the generate request body, shared by the HTTP and websocket transports.
type GenerateParams struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"numQuestions"`
	Difficulty   string `json:"difficulty"`
	Visibility   string `json:"visibility"`
	Title        string `json:"title,omitempty"`
	QuizType     string `json:"quizType,omitempty"`
}

func (p GenerateParams) request() (domain.GenerationRequest, bool, error) {
	topic := strings.TrimSpace(p.Topic)
	if topic == "" || p.NumQuestions == 0 || p.Difficulty == "" || p.Visibility == "" {
		return domain.GenerationRequest{}, false, domain.Invalid("Missing required fields")
	}
	if p.NumQuestions < 1 || p.NumQuestions > MaxGeneratedQuestions {
		return domain.GenerationRequest{}, false, domain.Invalid("numQuestions must be between 1 and %d", MaxGeneratedQuestions)
	}
	difficulty, ok := domain.ParseDifficulty(p.Difficulty)
	if !ok {
		return domain.GenerationRequest{}, false, domain.Invalid("difficulty must be easy, medium or hard")
	}
	kind, ok := domain.ParseQuizKind(p.QuizType)
	if !ok {
		return domain.GenerationRequest{}, false, domain.Invalid("quizType must be scored or vibe")
	}
	public, err := parseVisibility(p.Visibility)
	if err != nil {
		return domain.GenerationRequest{}, false, err
	}
	return domain.GenerationRequest{Topic: topic, NumQuestions: p.NumQuestions, Difficulty: difficulty, Kind: kind}, public, nil
}

func parseVisibility(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "public":
		return true, nil
	case "private", "":
		return false, nil
	}
	return false, domain.Invalid("visibility must be public or private")
}

// GenerateResult summarizes a stored generated quiz.
type GenerateResult struct {
	QuizID            string          `json:"quizId"`
	QuestionsInserted int             `json:"questionsInserted"`
	QuizType          domain.QuizKind `json:"quizType"`
	Repairs           int             `json:"repairs"`
}

// Generate runs the generation pipeline and stores the quiz graph atomically. A parse or
// validation failure writes nothing.
func (s *QuizService) Generate(ctx context.Context, userID string, params GenerateParams, progress quizgen.ProgressFunc) (GenerateResult, error) {
	if userID == "" {
		return GenerateResult{}, domain.ErrUnauthenticated
	}
	req, public, err := params.request()
	if err != nil {
		return GenerateResult{}, err
	}

	res, err := s.generator.Generate(ctx, req, progress)
	if err != nil {
		return GenerateResult{}, err
	}

	quiz := res.Quiz
	if title := strings.TrimSpace(params.Title); title != "" {
		quiz.Title = title
	}
	quiz.Description = describe(req)
	quiz.IsPublic = public
	quiz.OwnerID = userID

	if progress != nil {
		progress(domain.StagePersisting)
	}
	stored, err := s.store.CreateQuizGraph(ctx, quiz)
	if err != nil {
		s.log.Error("failed to store generated quiz", "user_id", userID, "topic", req.Topic, "error", err)
		return GenerateResult{}, fmt.Errorf("store generated quiz: %w", err)
	}
	s.log.Info("quiz generated", "quiz_id", stored.ID, "user_id", userID, "kind", stored.Kind, "questions", len(stored.Questions))
	return GenerateResult{
		QuizID:            stored.ID,
		QuestionsInserted: len(stored.Questions),
		QuizType:          stored.Kind,
		Repairs:           len(res.Repairs),
	}, nil
}

func describe(req domain.GenerationRequest) string {
	if req.Kind == domain.KindVibe {
		return fmt.Sprintf("A %s difficulty vibe check quiz about %s", req.Difficulty, req.Topic)
	}
	return fmt.Sprintf("A %s difficulty quiz about %s", req.Difficulty, req.Topic)
}

// CreateManual validates an authored quiz payload and stores it atomically.
func (s *QuizService) CreateManual(ctx context.Context, userID string, body []byte) (domain.Quiz, error) {
	if userID == "" {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	manual, err := ValidateManualQuiz(body)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := manual.toQuiz(userID)
	if err != nil {
		return domain.Quiz{}, err
	}
	stored, err := s.store.CreateQuizGraph(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("store quiz: %w", err)
	}
	s.log.Info("quiz created", "quiz_id", stored.ID, "user_id", userID, "questions", len(stored.Questions))
	return stored, nil
}

// QuizView is a quiz as shown to a caller.
type QuizView struct {
	domain.Quiz
	SubmissionCount int `json:"submission_count"`
}

// Fetch returns a quiz to any caller. Correctness flags are only kept for the owner.
func (s *QuizService) Fetch(ctx context.Context, quizID, callerID string) (QuizView, error) {
	if quizID == "" {
		return QuizView{}, domain.Invalid("Missing quiz ID")
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizView{}, err
	}
	count, err := s.counter.CountSubmissions(ctx, quizID)
	if err != nil {
		s.log.Warn("submission count unavailable", "quiz_id", quizID, "error", err)
		count = 0
	}
	if callerID == "" || callerID != quiz.OwnerID {
		quiz = quiz.WithoutAnswers()
	}
	return QuizView{Quiz: quiz, SubmissionCount: count}, nil
}

// Edit returns the full quiz to its owner. Other callers see not found.
func (s *QuizService) Edit(ctx context.Context, quizID, callerID string) (domain.Quiz, error) {
	if callerID == "" {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != callerID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

// ListOwned returns the caller's quizzes newest first with submission counts. A count that cannot
// be read is reported as 0, as in Fetch.
func (s *QuizService) ListOwned(ctx context.Context, userID string) ([]domain.QuizSummary, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	quizzes, err := s.store.ListQuizzesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i := range quizzes {
		i := i
		g.Go(func() error {
			count, err := s.counter.CountSubmissions(gctx, quizzes[i].ID)
			if err != nil {
				s.log.Warn("submission count unavailable", "quiz_id", quizzes[i].ID, "error", err)
				count = 0
			}
			quizzes[i].SubmissionCount = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// SubmissionCount reports how many attempts a quiz has across all learners.
func (s *QuizService) SubmissionCount(ctx context.Context, quizID string) (int, error) {
	if quizID == "" {
		return 0, domain.Invalid("Missing quiz ID")
	}
	return s.counter.CountSubmissions(ctx, quizID)
}

// Update applies owner edits in one transaction and drops the cached graph.
func (s *QuizService) Update(ctx context.Context, quizID, callerID string, edits []domain.QuestionEdit) error {
	quiz, err := s.ownedQuiz(ctx, quizID, callerID)
	if err != nil {
		return err
	}
	normalized, err := NormalizeEdits(quiz, edits)
	if err != nil {
		return err
	}
	if err := s.store.UpdateQuizContent(ctx, quizID, normalized); err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	s.invalidate(ctx, quizID)
	s.log.Info("quiz updated", "quiz_id", quizID, "user_id", callerID, "questions", len(normalized))
	return nil
}

// Delete removes an owned quiz and everything hanging off it.
func (s *QuizService) Delete(ctx context.Context, quizID, callerID string) error {
	if _, err := s.ownedQuiz(ctx, quizID, callerID); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidate(ctx, quizID)
	s.log.Info("quiz deleted", "quiz_id", quizID, "user_id", callerID)
	return nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, quizID, callerID string) (domain.Quiz, error) {
	if callerID == "" {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	if quizID == "" {
		return domain.Quiz{}, domain.Invalid("Missing quiz ID")
	}
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != callerID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if err := s.quizzes.Invalidate(ctx, quizID); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failed to invalidate cached quiz", "quiz_id", quizID, "error", err)
	}
}
