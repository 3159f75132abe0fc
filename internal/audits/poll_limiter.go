package audits

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultPollLimit  = 30
	defaultPollWindow = time.Minute
)

// PollLimiter bounds how often a client may poll one audit's status. Clients
// are expected to poll every few seconds; anything past the limit inside a
// window is cut off.
type PollLimiter struct {
	counters *gocache.Cache
	limit    int
	window   time.Duration
}

func NewPollLimiter(limit int, window time.Duration) *PollLimiter {
	if limit <= 0 {
		limit = defaultPollLimit
	}
	if window <= 0 {
		window = defaultPollWindow
	}
	return &PollLimiter{
		counters: gocache.New(gocache.NoExpiration, 5*time.Minute),
		limit:    limit,
		window:   window,
	}
}

// Allow counts one poll of auditID by userID.
func (l *PollLimiter) Allow(userID, auditID string) bool {
	if l == nil {
		return true
	}
	key := userID + "|" + auditID
	if err := l.counters.Add(key, int64(1), l.window); err == nil {
		return true
	}
	n, err := l.counters.IncrementInt64(key, 1)
	if err != nil {
		l.counters.Set(key, int64(1), l.window)
		return true
	}
	return n <= int64(l.limit)
}
