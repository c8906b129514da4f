package httpserver

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/tagurl-go/internal/telemetry/metric"
	"github.com/yndnr/tagurl-go/pkg/cmap"
)

// DefaultLimiterIdle is how long an unused client limiter is kept.
const DefaultLimiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	clients *cmap.Map[string, *clientLimiter]
	metrics *metric.Registry

	lastSweep atomic.Int64
	now       func() time.Time
}

// NewRateLimiter allows each client perSecond requests per second with
// bursts of up to burst requests. metrics may be nil.
func NewRateLimiter(perSecond float64, burst int, metrics *metric.Registry) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    DefaultLimiterIdle,
		clients: cmap.New[string, *clientLimiter](cmap.DefaultShardCount, cmap.HashString),
		metrics: metrics,
		now:     time.Now,
	}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

// Allow reports whether a request from client may proceed.
func (l *RateLimiter) Allow(client string) bool {
	now := l.now()
	l.sweep(now)

	c := l.clients.Update(client, func(old *clientLimiter, exists bool) *clientLimiter {
		if exists {
			return old
		}
		return &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
	})
	c.lastSeen.Store(now.UnixNano())

	if c.limiter.AllowN(now, 1) {
		return true
	}
	if l.metrics != nil {
		l.metrics.IncRateLimited()
	}
	return false
}

// Clients returns the number of tracked clients.
func (l *RateLimiter) Clients() int {
	return l.clients.Len()
}

// sweep drops limiters idle for longer than l.idle, at most once per idle
// period.
func (l *RateLimiter) sweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idle) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-l.idle).UnixNano()
	l.clients.DeleteFunc(func(_ string, c *clientLimiter) bool {
		return c.lastSeen.Load() < cutoff
	})
}
