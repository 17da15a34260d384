package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAttemptLockerSerializesKey(t *testing.T) {
	mr, client := newMiniredis(t)
	locker := NewAttemptLocker(client, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "quiz-1:s1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("quiz:lock:quiz-1:s1") {
		t.Fatalf("expected lock key in redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "quiz-1:s1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second lock to time out, got %v", err)
	}

	other, err := locker.Lock(context.Background(), "quiz-1:s2")
	if err != nil {
		t.Fatalf("independent key should lock: %v", err)
	}
	other()

	unlock()
	if mr.Exists("quiz:lock:quiz-1:s1") {
		t.Fatalf("expected lock key released")
	}
	again, err := locker.Lock(context.Background(), "quiz-1:s1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}

func TestAttemptLockerDoesNotReleaseForeignLock(t *testing.T) {
	mr, client := newMiniredis(t)
	locker := NewAttemptLocker(client, time.Second)

	unlock, err := locker.Lock(context.Background(), "quiz-1:s1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// lock expired and was taken by someone else
	mr.FastForward(2 * time.Second)
	if err := mr.Set("quiz:lock:quiz-1:s1", "other-owner"); err != nil {
		t.Fatalf("set foreign lock: %v", err)
	}

	unlock()
	got, err := mr.Get("quiz:lock:quiz-1:s1")
	if err != nil || got != "other-owner" {
		t.Fatalf("foreign lock must survive, got %q err=%v", got, err)
	}
}
