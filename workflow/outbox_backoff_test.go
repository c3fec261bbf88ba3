package workflow

import (
	"testing"
	"time"
)

// NOTE: These tests are intentionally DB-free. Full dispatcher behavior
// (claiming, SKIP LOCKED, DEAD transitions) is exercised against MySQL in the
// integration suite.

func TestRetryBackoffDoublesPerAttempt(t *testing.T) {
	initial := 5 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 80 * time.Second},
	}
	for _, c := range cases {
		if got := retryBackoff(initial, c.attempt); got != c.want {
			t.Errorf("retryBackoff(attempt=%d) = %s; want %s", c.attempt, got, c.want)
		}
	}
}

func TestRetryBackoffCapsAtTenMinutes(t *testing.T) {
	if got := retryBackoff(5*time.Second, 20); got != 10*time.Minute {
		t.Errorf("expected 10m cap; got %s", got)
	}
	if got := retryBackoff(5*time.Second, 1000); got != 10*time.Minute {
		t.Errorf("expected 10m cap at high attempt counts; got %s", got)
	}
}
