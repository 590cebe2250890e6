package objectstore

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// quotaTracker remembers the backend's rate limit headers. Once the quota
// is known to be exhausted, calls fail fast until the reset time instead of
// spending a round trip on a guaranteed rejection.
type quotaTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool
	now       func() time.Time
}

func newQuotaTracker(now func() time.Time) *quotaTracker {
	if now == nil {
		now = time.Now
	}
	return &quotaTracker{now: now}
}

func (q *quotaTracker) update(header http.Header) {
	remainingStr := header.Get("X-RateLimit-Remaining")
	resetStr := header.Get("X-RateLimit-Reset")
	if remainingStr == "" || resetStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.remaining = remaining
	q.reset = time.Unix(resetUnix, 0)
	q.known = true
}

// exhausted returns the time left until reset when no quota remains.
func (q *quotaTracker) exhausted() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.known || q.remaining > 0 {
		return 0, false
	}
	left := q.reset.Sub(q.now())
	if left <= 0 {
		q.known = false
		return 0, false
	}
	return left, true
}
