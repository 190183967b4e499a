package server

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func testLimiter() (*loginLimiter, *time.Time, *[]time.Duration) {
	l := newLoginLimiter()
	now := time.Now()
	slept := []time.Duration{}
	l.now = func() time.Time { return now }
	l.sleep = func(d time.Duration) { slept = append(slept, d) }
	return l, &now, &slept
}

func TestLoginLimiterRecordClear(t *testing.T) {
	l, _, slept := testLimiter()
	buf := &bytes.Buffer{}

	if got := l.waitIfNeeded("testuser", buf); got != 0 {
		t.Errorf("got %v, want no wait before any failure", got)
	}
	l.recordFailure("testuser")
	if got := l.waitIfNeeded("TestUser", buf); got != loginAttemptInterval {
		t.Errorf("got %v, want %v", got, loginAttemptInterval)
	}
	if !strings.Contains(buf.String(), "Please wait 10s") {
		t.Errorf("got %q", buf.String())
	}
	l.clearFailure("testuser")
	if got := l.waitIfNeeded("testuser", buf); got != 0 {
		t.Errorf("got %v after clear, want 0", got)
	}
	if len(*slept) != 1 {
		t.Errorf("got %v sleeps, want 1", *slept)
	}
}

func TestLoginLimiterPartialWait(t *testing.T) {
	l, now, _ := testLimiter()
	l.recordFailure("user1")
	l.recordFailure("user2")
	*now = now.Add(4 * time.Second)
	if got := l.waitIfNeeded("user1", &bytes.Buffer{}); got != 6*time.Second {
		t.Errorf("got %v, want 6s", got)
	}
	l.clearFailure("user2")
	if got := l.waitIfNeeded("user2", &bytes.Buffer{}); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
	*now = now.Add(loginAttemptInterval)
	if got := l.waitIfNeeded("user1", &bytes.Buffer{}); got != 0 {
		t.Errorf("got %v after interval, want 0", got)
	}
}
