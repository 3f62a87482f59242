package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)
	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "buckets are per client")

	now = now.Add(1500 * time.Millisecond)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)
}

func TestRateLimiterEvict(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.Allow("old")
	now = now.Add(20 * time.Minute)
	rl.Allow("new")

	assert.Equal(t, 1, rl.Evict(now.Add(-10*time.Minute)))
	assert.Len(t, rl.buckets, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler := RateLimit(rl)(okHandler(nil))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/calendar/range", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/calendar/range", nil)
	req.RemoteAddr = "10.0.0.1:6666"
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, second.Body.String())

	other := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/calendar/range", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.2")
	handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}
