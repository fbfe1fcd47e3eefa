package chat

import (
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiterWithClock(3, time.Minute, func() time.Time { return now })

	steps := []struct {
		at    time.Duration
		user  string
		allow bool
	}{
		{0, "buyer", true},
		{10 * time.Second, "buyer", true},
		{20 * time.Second, "buyer", true},
		{30 * time.Second, "buyer", false},
		{30 * time.Second, "haggler", true},
		{61 * time.Second, "buyer", true},
		{62 * time.Second, "buyer", false},
		{71 * time.Second, "buyer", true},
	}
	for i, step := range steps {
		now = start.Add(step.at)
		if got := rl.Allow(step.user); got != step.allow {
			t.Fatalf("step %d (%s at %s): allow=%v, want %v", i, step.user, step.at, got, step.allow)
		}
	}
}

func TestRateLimiterReportsRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiterWithClock(1, 10*time.Second, func() time.Time { return now })

	if ok, retry := rl.AllowWithDetails("buyer"); !ok || retry != 0 {
		t.Fatalf("first message: ok=%v retry=%s", ok, retry)
	}
	now = now.Add(2500 * time.Millisecond)
	ok, retry := rl.AllowWithDetails("buyer")
	if ok {
		t.Fatal("second message should be limited")
	}
	if retry != 7500*time.Millisecond {
		t.Fatalf("retry = %s, want 7.5s", retry)
	}
	if secs := (&RateLimitError{RetryAfter: retry}).Seconds(); secs != 8 {
		t.Fatalf("seconds = %d, want 8", secs)
	}
}

func TestRateLimiterClampsConfig(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiterWithClock(0, 0, func() time.Time { return now })
	if !rl.Allow("buyer") {
		t.Fatal("limit clamps to one message")
	}
	if rl.Allow("buyer") {
		t.Fatal("second message inside the clamped window should be limited")
	}
	now = now.Add(2 * time.Second)
	if !rl.Allow("buyer") {
		t.Fatal("window clamps to one second")
	}
}
