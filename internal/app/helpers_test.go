package app_test

import (
	"context"
	"sync"
	"time"

	"vibecheck-service/internal/app"
	"vibecheck-service/internal/infra/memory"
	"vibecheck-service/internal/quizgen"
	"vibecheck-service/internal/scoring"
)

type scriptedClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (c *scriptedClient) Complete(_ context.Context, _ string, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func (c *scriptedClient) script(reply string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reply, c.err = reply, err
}

type fixture struct {
	client      *scriptedClient
	store       *memory.Store
	attempts    *memory.AttemptStore
	quizzes     *app.QuizService
	submissions *app.SubmissionService
}

func newFixture() *fixture {
	client := &scriptedClient{}
	store := memory.NewStore()
	repo := memory.NewQuizRepository(store, time.Minute)
	attempts := memory.NewAttemptStore(time.Hour)
	return &fixture{
		client:      client,
		store:       store,
		attempts:    attempts,
		quizzes:     app.NewQuizService(store, repo, store, quizgen.NewGenerator(client, "", nil), nil),
		submissions: app.NewSubmissionService(store, repo, attempts, scoring.NewAnalyzer(client, "", nil), nil),
	}
}

const scoredReply = `{
  "title": "Solar System Quiz",
  "questions": [
    {
      "question": "Which planet is largest?",
      "options": [
        {"text": "Mars", "isCorrect": false},
        {"text": "Jupiter", "isCorrect": true},
        {"text": "Venus", "isCorrect": false},
        {"text": "Mercury", "isCorrect": false}
      ]
    },
    {
      "question": "Which planet is closest to the sun?",
      "options": [
        {"text": "Mercury", "isCorrect": true},
        {"text": "Earth", "isCorrect": false},
        {"text": "Neptune", "isCorrect": false},
        {"text": "Saturn", "isCorrect": false}
      ]
    }
  ],
  "quizType": "scored"
}`

const vibeReply = `{
  "title": "Morning Routine Vibe Check",
  "questions": [
    {
      "question": "How do you start the day?",
      "options": [
        {"text": "Sunrise run", "vibeCategory": "energy", "vibeValue": "high"},
        {"text": "Slow coffee", "vibeCategory": "energy", "vibeValue": "calm"},
        {"text": "Snooze twice", "vibeCategory": "energy", "vibeValue": "low"},
        {"text": "Emails first", "vibeCategory": "focus", "vibeValue": "work"}
      ]
    }
  ],
  "quizType": "vibe"
}`

func scoredParams(n int) app.GenerateParams {
	return app.GenerateParams{Topic: "Solar System", NumQuestions: n, Difficulty: "easy", Visibility: "public"}
}

func vibeParams() app.GenerateParams {
	return app.GenerateParams{Topic: "Mornings", NumQuestions: 1, Difficulty: "medium", Visibility: "private", QuizType: "vibe"}
}
