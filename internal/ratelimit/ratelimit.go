// Package ratelimit paces calls to external services.
//
// A Limiter enforces a minimum interval between successive calls. When the
// service reports its quota (GitHub's X-RateLimit-* headers) the interval is
// stretched so the remaining requests are spread over the time left until
// the quota resets.
package ratelimit

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy describes how calls are spaced.
type Policy struct {
	// MinInterval is the delay used when the server gives no usable feedback.
	MinInterval time.Duration `yaml:"min_interval"`
	// Jitter adds a uniformly random delay in [0, Jitter).
	Jitter time.Duration `yaml:"jitter"`
	// ServerFeedback derives the delay from quota headers when present.
	ServerFeedback bool `yaml:"server_feedback"`
}

// Quota is the server's view of the remaining request budget.
type Quota struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// ParseQuota reads GitHub style rate limit headers. ok is false when the
// remaining count or reset time is missing.
func ParseQuota(h http.Header) (q Quota, ok bool) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return q, false
	}
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return q, false
	}
	q.Remaining = remaining
	q.Reset = time.Unix(reset, 0)
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		q.Limit = limit
	}
	return q, true
}

// Delay returns the wait before the next call given a quota observed at now.
func (p Policy) Delay(q Quota, now time.Time) time.Duration {
	if !p.ServerFeedback || !now.Before(q.Reset) {
		return p.MinInterval
	}
	untilReset := q.Reset.Sub(now)
	if q.Remaining <= 0 {
		return untilReset + time.Second
	}
	return time.Second + untilReset/time.Duration(q.Remaining)
}

// Limiter spaces calls according to a Policy.
type Limiter struct {
	policy Policy
	now    func() time.Time
	jitter func(time.Duration) time.Duration

	mu      sync.Mutex
	limiter *rate.Limiter
	last    time.Duration
}

// New returns a Limiter that lets the first call through immediately.
func New(p Policy) *Limiter {
	l := &Limiter{
		policy: p,
		now:    time.Now,
		jitter: func(max time.Duration) time.Duration {
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
	l.limiter = rate.NewLimiter(l.limitFor(p.MinInterval), 1)
	l.last = p.MinInterval
	return l
}

func (l *Limiter) limitFor(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

// Wait blocks until the next call is allowed.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	lim := l.limiter
	l.mu.Unlock()
	return lim.Wait(ctx)
}

// Observe updates the spacing after a call that produced h. A nil header
// re-applies the policy's fixed interval. It returns the interval now in
// force.
func (l *Limiter) Observe(h http.Header) time.Duration {
	d := l.policy.MinInterval
	if h != nil {
		if q, ok := ParseQuota(h); ok {
			d = l.policy.Delay(q, l.now())
		}
	}
	if l.policy.Jitter > 0 {
		d += l.jitter(l.policy.Jitter)
	}

	// the interval counts from this response, not from the last Wait
	lim := rate.NewLimiter(l.limitFor(d), 1)
	lim.AllowN(l.now(), 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = d
	l.limiter = lim
	return d
}

// Interval is the spacing currently enforced.
func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}
