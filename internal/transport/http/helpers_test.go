package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"vibecheck-service/internal/app"
	"vibecheck-service/internal/auth"
	"vibecheck-service/internal/infra/memory"
	"vibecheck-service/internal/quizgen"
	"vibecheck-service/internal/scoring"
)

const testSecret = "router-test-secret"

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

func newTestRouter(t *testing.T) (*gin.Engine, *scriptedClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := &scriptedClient{}
	store := memory.NewStore()
	repo := memory.NewQuizRepository(store, time.Minute)
	attempts := memory.NewAttemptStore(time.Hour)
	verifier, err := auth.NewVerifier(auth.Options{Secret: testSecret})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	router := NewRouter(RouterOptions{
		Quizzes:     app.NewQuizService(store, repo, store, quizgen.NewGenerator(client, "", nil), nil),
		Submissions: app.NewSubmissionService(store, repo, attempts, scoring.NewAnalyzer(client, "", nil), nil),
		Verifier:    verifier,
	})
	return router, client
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func doJSON(t *testing.T, router http.Handler, method, path, userID string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

const scoredReply = `{
  "title": "Rivers Quiz",
  "questions": [
    {
      "question": "Which river is longest?",
      "options": [
        {"text": "Nile", "isCorrect": true},
        {"text": "Thames", "isCorrect": false},
        {"text": "Seine", "isCorrect": false},
        {"text": "Danube", "isCorrect": false}
      ]
    }
  ]
}`

const vibeReply = `{
  "title": "Weekend Vibe Check",
  "questions": [
    {
      "question": "Pick a Saturday",
      "options": [
        {"text": "Hiking", "vibeCategory": "pace", "vibeValue": "active"},
        {"text": "Reading", "vibeCategory": "pace", "vibeValue": "slow"},
        {"text": "Party", "vibeCategory": "social", "vibeValue": "high"},
        {"text": "Chores", "vibeCategory": "pace", "vibeValue": "steady"}
      ]
    }
  ],
  "quizType": "vibe"
}`

var generateBody = map[string]any{"topic": "Rivers", "numQuestions": 1, "difficulty": "easy", "visibility": "public"}
