package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/cogsim/internal/common"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	limiter := newRateLimiter(common.RateLimitConfig{Enabled: true, MaxRequests: 2, WindowSec: 10})

	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	assert.True(t, limiter.Allow("key"))
	assert.True(t, limiter.Allow("key"))
	assert.False(t, limiter.Allow("key"))

	// Other keys keep independent windows
	assert.True(t, limiter.Allow("other"))

	// Once the window slides past the first requests, capacity returns
	clock = clock.Add(11 * time.Second)
	assert.True(t, limiter.Allow("key"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := newRateLimiter(common.RateLimitConfig{Enabled: false, MaxRequests: 1, WindowSec: 10})

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("key"))
	}
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/jobs", nil)
	r.RemoteAddr = "192.168.1.9:4242"
	assert.Equal(t, "192.168.1.9", clientKey(r))

	r.Header.Set("X-API-Key", "abc")
	assert.Equal(t, "abc", clientKey(r))

	r2 := httptest.NewRequest("GET", "/jobs", nil)
	r2.RemoteAddr = ""
	assert.Equal(t, "anonymous", clientKey(r2))
}
