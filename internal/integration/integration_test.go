package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"vibecheck-service/internal/app"
	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/infra/postgres"
	pgmigrations "vibecheck-service/internal/infra/postgres/migrations"
	infraredis "vibecheck-service/internal/infra/redis"
	"vibecheck-service/internal/quizgen"
	"vibecheck-service/internal/scoring"
)

type scriptedClient struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (c *scriptedClient) Complete(context.Context, string, string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reply, c.err
}

func (c *scriptedClient) script(reply string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reply, c.err = reply, err
}

type stack struct {
	db          *bun.DB
	store       *postgres.Store
	client      *scriptedClient
	quizzes     *app.QuizService
	submissions *app.SubmissionService
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := postgres.Open(pgURL)
	t.Cleanup(func() { _ = db.Close() })
	migrateDB(t, ctx, db)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	counter, err := postgres.NewAdminCounter(ctx, pgURL)
	if err != nil {
		t.Fatalf("admin counter: %v", err)
	}
	t.Cleanup(counter.Close)

	store := postgres.NewStore(db)
	client := &scriptedClient{}
	quizRepo := infraredis.NewQuizRepository(redisClient, store, 5*time.Minute, nil)
	attempts := infraredis.NewAttemptStore(redisClient, time.Hour)
	return &stack{
		db:          db,
		store:       store,
		client:      client,
		quizzes:     app.NewQuizService(store, quizRepo, counter, quizgen.NewGenerator(client, "", nil), nil),
		submissions: app.NewSubmissionService(store, quizRepo, attempts, scoring.NewAnalyzer(client, "", nil), nil),
	}
}

const scoredReply = `{
  "title": "Arithmetic Quiz",
  "questions": [
    {"question": "What is 2 + 2?", "options": [
      {"text": "3", "isCorrect": false}, {"text": "4", "isCorrect": true},
      {"text": "5", "isCorrect": false}, {"text": "22", "isCorrect": false}]},
    {"question": "What is 3 x 3?", "options": [
      {"text": "9", "isCorrect": true}, {"text": "6", "isCorrect": false},
      {"text": "33", "isCorrect": false}, {"text": "0", "isCorrect": false}]}
  ]
}`

const vibeReply = `{
  "title": "Tea Vibe Check",
  "quizType": "vibe",
  "questions": [
    {"question": "Pick a tea", "options": [
      {"text": "Green", "vibeCategory": "taste", "vibeValue": "fresh"},
      {"text": "Black", "vibeCategory": "taste", "vibeValue": "bold"},
      {"text": "Chai", "vibeCategory": "taste", "vibeValue": "spiced"},
      {"text": "None", "vibeCategory": "taste", "vibeValue": "skeptic"}]}
  ]
}`

func TestScoredQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	s.client.script(scoredReply, nil)
	res, err := s.quizzes.Generate(ctx, "owner-1", app.GenerateParams{
		Topic: "Arithmetic", NumQuestions: 2, Difficulty: "easy", Visibility: "public",
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.QuestionsInserted != 2 {
		t.Fatalf("expected 2 questions, got %d", res.QuestionsInserted)
	}

	view, err := s.quizzes.Fetch(ctx, res.QuizID, "learner-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(view.Questions) != 2 || view.Questions[0].Text != "What is 2 + 2?" {
		t.Fatalf("unexpected quiz %+v", view.Quiz)
	}
	q1, q2 := view.Questions[0], view.Questions[1]
	if q1.Options[1].Correct != nil {
		t.Fatalf("learner view leaked correctness")
	}

	if err := s.submissions.RecordProgress(ctx, "learner-1", res.QuizID, q1.ID, q1.Options[1].ID); err != nil {
		t.Fatalf("progress: %v", err)
	}
	sub, err := s.submissions.Submit(ctx, "learner-1", app.SubmitParams{
		QuizID:  res.QuizID,
		Answers: map[string]string{q1.ID: q1.Options[1].ID, q2.ID: q2.Options[1].ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Score != 1 || sub.MaxScore != 2 || sub.AnswersInserted != 2 {
		t.Fatalf("unexpected submit result %+v", sub)
	}

	count, err := s.quizzes.SubmissionCount(ctx, res.QuizID)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 submission, got %d (%v)", count, err)
	}

	attempts, err := s.submissions.Attempts(ctx, "learner-1")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].QuizTitle != "Arithmetic Quiz" {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
	answers, err := s.submissions.AttemptAnswers(ctx, "learner-1", sub.SubmissionID)
	if err != nil || len(answers) != 2 || answers[0].SelectedOption != "4" || !answers[0].Correct {
		t.Fatalf("unexpected answers %+v (%v)", answers, err)
	}

	if err := s.quizzes.Delete(ctx, res.QuizID, "owner-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.store.GetSubmission(ctx, sub.SubmissionID); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected submission removed with quiz, got %v", err)
	}
	if _, err := s.quizzes.Fetch(ctx, res.QuizID, ""); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected cached quiz dropped, got %v", err)
	}
}

func TestFailedGenerationWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	s.client.script(`{"title":"T","questions":[{"question":"Q","options":[{"text":"a"},{"text":"b"},{"text":"c"}]}]}`, nil)
	_, err := s.quizzes.Generate(ctx, "owner-1", app.GenerateParams{
		Topic: "Anything", NumQuestions: 1, Difficulty: "easy", Visibility: "private",
	}, nil)
	if !errors.Is(err, quizgen.ErrOptionCount) {
		t.Fatalf("expected option count error, got %v", err)
	}
	n, err := s.db.NewSelect().Table("quizzes").Count(ctx)
	if err != nil {
		t.Fatalf("count quizzes: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows written, got %d", n)
	}
}

func TestVibeQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	s.client.script(vibeReply, nil)
	res, err := s.quizzes.Generate(ctx, "owner-1", app.GenerateParams{
		Topic: "Tea", NumQuestions: 1, Difficulty: "medium", Visibility: "public", QuizType: "vibe",
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	quiz, err := s.quizzes.Edit(ctx, res.QuizID, "owner-1")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	opt := quiz.Questions[0].Options[2]
	if opt.Interpretation == nil || opt.Interpretation.Value != "spiced" || opt.Correct != nil {
		t.Fatalf("expected stored interpretation, got %+v", opt)
	}

	s.client.script(`{"vibeAnalysis":"You like a little spice.","vibeCategories":{"taste":"spiced"}}`, nil)
	sub, err := s.submissions.Submit(ctx, "learner-1", app.SubmitParams{
		QuizID:  res.QuizID,
		Answers: map[string]string{quiz.Questions[0].ID: opt.ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.VibeAnalysis != "You like a little spice." || sub.Score != 0 {
		t.Fatalf("unexpected result %+v", sub)
	}

	// Re-analysis replaces the stored result.
	s.client.script(`{"vibeAnalysis":"Spice is your thing.","vibeCategories":{"taste":"spiced"}}`, nil)
	if _, err := s.submissions.AnalyzeVibe(ctx, "learner-1", sub.SubmissionID, res.QuizID); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	n, err := s.db.NewSelect().Table("vibe_results").Where("submission_id = ?", sub.SubmissionID).Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one vibe result row, got %d (%v)", n, err)
	}
	attempts, _ := s.submissions.Attempts(ctx, "learner-1")
	if len(attempts) != 1 || attempts[0].VibeAnalysis != "Spice is your thing." {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestUpdateQuizContent(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	s.client.script(scoredReply, nil)
	res, err := s.quizzes.Generate(ctx, "owner-1", app.GenerateParams{
		Topic: "Arithmetic", NumQuestions: 2, Difficulty: "easy", Visibility: "public",
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	quiz, _ := s.quizzes.Edit(ctx, res.QuizID, "owner-1")
	first, second := quiz.Questions[0], quiz.Questions[1]

	edits := []domain.QuestionEdit{
		{ID: first.ID, Order: 2},
		{ID: second.ID, Order: 1, Text: "What is 3 times 3?"},
		{Text: "What is 10 - 7?", Options: []domain.OptionEdit{
			{Text: "3", Correct: domain.BoolPtr(true)},
			{Text: "7"},
		}},
	}
	if err := s.quizzes.Update(ctx, res.QuizID, "owner-1", edits); err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := s.quizzes.Fetch(ctx, res.QuizID, "owner-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(updated.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(updated.Questions))
	}
	if updated.Questions[0].Text != "What is 3 times 3?" || updated.Questions[1].ID != first.ID {
		t.Fatalf("expected swapped order, got %q then %q", updated.Questions[0].Text, updated.Questions[1].Text)
	}
	added := updated.Questions[2]
	if added.Text != "What is 10 - 7?" || len(added.Options) != 2 || !added.Options[0].IsCorrect() || added.Options[1].IsCorrect() {
		t.Fatalf("unexpected inserted question %+v", added)
	}
}

func migrateDB(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
