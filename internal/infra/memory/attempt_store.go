package memory

import (
	"context"
	"sync"
	"time"
)

// AttemptStore keeps in-progress answers in process memory. Entries expire after ttl of inactivity.
type AttemptStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	attempts map[string]*attempt
}

type attempt struct {
	answers   map[string]string
	expiresAt time.Time
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		ttl:      ttl,
		clock:    time.Now,
		attempts: make(map[string]*attempt),
	}
}

func (s *AttemptStore) RecordAnswer(_ context.Context, quizID, userID, questionID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(quizID, userID)
	a, ok := s.live(key)
	if !ok {
		a = &attempt{answers: make(map[string]string)}
		s.attempts[key] = a
	}
	a.answers[questionID] = optionID
	if s.ttl > 0 {
		a.expiresAt = s.clock().Add(s.ttl)
	}
	return nil
}

func (s *AttemptStore) Answers(_ context.Context, quizID, userID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.live(attemptKey(quizID, userID))
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out, nil
}

func (s *AttemptStore) Discard(_ context.Context, quizID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptKey(quizID, userID))
	return nil
}

// live returns the attempt when present and not expired; caller holds mu.
func (s *AttemptStore) live(key string) (*attempt, bool) {
	a, ok := s.attempts[key]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && !a.expiresAt.After(s.clock()) {
		delete(s.attempts, key)
		return nil, false
	}
	return a, true
}

func attemptKey(quizID, userID string) string {
	return quizID + ":" + userID
}
