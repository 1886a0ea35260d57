package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestAttemptStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAttemptStore(newClient(mr), time.Minute)

	if err := store.RecordAnswer(ctx, "quiz-1", "u1", "q1", "o1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordAnswer(ctx, "quiz-1", "u1", "q1", "o2"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !mr.Exists("attempt:quiz-1:u1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("attempt:quiz-1:u1"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	answers, err := store.Answers(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(answers) != 1 || answers["q1"] != "o2" {
		t.Fatalf("unexpected answers %v", answers)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("attempt:quiz-1:u1") {
		t.Fatalf("expected attempt to expire")
	}

	_ = store.RecordAnswer(ctx, "quiz-1", "u1", "q2", "o3")
	if err := store.Discard(ctx, "quiz-1", "u1"); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if mr.Exists("attempt:quiz-1:u1") {
		t.Fatalf("expected redis key to be removed")
	}
}
