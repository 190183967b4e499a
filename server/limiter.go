package server

import (
	"fmt"
	"io"
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
)

const (
	loginAttemptInterval = 10 * time.Second
	loginAttemptMaxKeys  = 10000
)

// loginLimiter delays login attempts for names that recently failed one.
// Entries expire after loginAttemptInterval and the number of tracked names
// is bounded.
type loginLimiter struct {
	attempts cache.Cache[string, time.Time]
	sleep    func(time.Duration)
	now      func() time.Time
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{
		attempts: cache.NewCache[string, time.Time]().WithTTL(loginAttemptInterval).WithMaxKeys(loginAttemptMaxKeys).WithLRU(),
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// waitIfNeeded blocks if a recent failed attempt exists for name, and
// returns how long it waited.
func (l *loginLimiter) waitIfNeeded(name string, w io.Writer) time.Duration {
	last, ok := l.attempts.Get(strings.ToLower(name))
	if !ok {
		return 0
	}
	wait := loginAttemptInterval - l.now().Sub(last)
	if wait <= 0 {
		return 0
	}
	fmt.Fprintf(w, "Please wait %v before trying again.\n", wait.Round(time.Second))
	l.sleep(wait)
	return wait
}

func (l *loginLimiter) recordFailure(name string) {
	l.attempts.Set(strings.ToLower(name), l.now(), 0)
}

func (l *loginLimiter) clearFailure(name string) {
	l.attempts.Invalidate(strings.ToLower(name))
}
