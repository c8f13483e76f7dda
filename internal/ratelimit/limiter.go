// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key, all sharing the configured
// rate and burst. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	nowFunc func() time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and
// burst size. A new key starts with a full burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Rate returns the refill rate in tokens per second.
func (l *Limiter) Rate() float64 { return float64(l.limit) }

// Burst returns the bucket size.
func (l *Limiter) Burst() int { return l.burst }

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}

// Allow reports whether a request for key may proceed now, consuming a token
// if so.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).AllowN(l.nowFunc(), 1)
}

// Per-tool limits. Simulations are CPU heavy, lookups are cheap.
const (
	ToolRun      = "contagion_run"
	ToolSweep    = "contagion_sweep"
	ToolBackfill = "contagion_backfill"
	ToolRuns     = "contagion_runs"
	ToolFileName = "contagion_filename"
)

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolRun:      NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		ToolSweep:    NewLimiter(2.0/60.0, 1),  // 2/minute, burst 1
		ToolBackfill: NewLimiter(1.0, 10),      // 60/minute, burst 10
		ToolRuns:     NewLimiter(1.0, 10),
		ToolFileName: NewLimiter(1.0, 10),
	}
}

// CheckLimit returns an error when toolName is over its limit. Tools without
// a limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
