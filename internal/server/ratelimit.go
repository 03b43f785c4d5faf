package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/cogsim/internal/common"
)

// rateLimiter is an in-memory sliding-window limiter: per key, the exact
// count of requests inside the trailing window decides refusal.
type rateLimiter struct {
	enabled     bool
	maxRequests int
	windowSec   int
	mu          sync.Mutex
	buckets     map[string][]time.Time
	now         func() time.Time
}

func newRateLimiter(cfg common.RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		enabled:     cfg.Enabled,
		maxRequests: cfg.MaxRequests,
		windowSec:   cfg.WindowSec,
		buckets:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow records the request unless the key's window is already full.
func (l *rateLimiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-time.Duration(l.windowSec) * time.Second)

	bucket := l.buckets[key]
	kept := bucket[:0]
	for _, ts := range bucket {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		l.buckets[key] = kept
		return false
	}

	l.buckets[key] = append(kept, now)
	return true
}

// clientKey identifies the caller: the API key when presented, else the
// client host.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "anonymous"
}
