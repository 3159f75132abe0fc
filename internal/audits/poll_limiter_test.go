package audits

import (
	"testing"
	"time"
)

func TestPollLimiterCutsOffAfterLimit(t *testing.T) {
	l := NewPollLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("u1", "a1") {
			t.Fatalf("poll %d should be allowed", i+1)
		}
	}
	if l.Allow("u1", "a1") {
		t.Fatal("poll past the limit should be rejected")
	}
}

func TestPollLimiterSeparateAuditsSeparateBudgets(t *testing.T) {
	l := NewPollLimiter(1, time.Minute)

	if !l.Allow("u1", "a1") {
		t.Fatal("first poll of a1 should be allowed")
	}
	if !l.Allow("u1", "a2") {
		t.Fatal("first poll of a2 should be allowed")
	}
	if l.Allow("u1", "a1") {
		t.Fatal("second poll of a1 should be rejected")
	}
}

func TestPollLimiterWindowResets(t *testing.T) {
	l := NewPollLimiter(1, 30*time.Millisecond)

	if !l.Allow("u1", "a1") {
		t.Fatal("first poll should be allowed")
	}
	if l.Allow("u1", "a1") {
		t.Fatal("second poll inside window should be rejected")
	}
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("u1", "a1") {
		t.Fatal("poll after window expiry should be allowed")
	}
}

func TestPollLimiterNilAllowsAll(t *testing.T) {
	var l *PollLimiter
	if !l.Allow("u1", "a1") {
		t.Fatal("nil limiter must not block")
	}
}
