package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps in-progress answers in a Redis hash per quiz and learner:
// HSET attempt:{quizID}:{userID} {questionID} {optionID}
// The key expires ttl after the last recorded answer.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) RecordAnswer(ctx context.Context, quizID, userID, questionID, optionID string) error {
	key := attemptKey(quizID, userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, questionID, optionID)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AttemptStore) Answers(ctx context.Context, quizID, userID string) (map[string]string, error) {
	return s.client.HGetAll(ctx, attemptKey(quizID, userID)).Result()
}

func (s *AttemptStore) Discard(ctx context.Context, quizID, userID string) error {
	return s.client.Del(ctx, attemptKey(quizID, userID)).Err()
}

func attemptKey(quizID, userID string) string {
	return "attempt:" + quizID + ":" + userID
}
