package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiterAt(clock *manualClock, rate float64, burst int) *RateLimiter {
	rl := NewRateLimiter(rate, burst)
	rl.now = clock.now
	return rl
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	handler := RateLimitWith(limiterAt(clock, 0.25, 2))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/patients/patient-1/chat", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, send().Code)
	require.Equal(t, http.StatusOK, send().Code)

	limited := send()
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "4", limited.Header().Get("Retry-After"), "one token at 0.25/s takes four seconds")
	assert.Equal(t, "application/json", limited.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"too many requests"}`, limited.Body.String())

	clock.advance(3 * time.Second)
	again := send()
	require.Equal(t, http.StatusTooManyRequests, again.Code)
	assert.Equal(t, "1", again.Header().Get("Retry-After"))

	clock.advance(time.Second)
	assert.Equal(t, http.StatusOK, send().Code)
}

func TestRateLimiterZeroValuesUseDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, defaultInboundRate, rl.rate)
	assert.Equal(t, defaultInboundBurst, rl.burst)

	clock := &manualClock{t: time.Unix(0, 0)}
	rl.now = clock.now
	for i := 0; i < defaultInboundBurst; i++ {
		ok, _ := rl.Reserve("10.0.0.2")
		require.True(t, ok, "request %d within the default burst", i+1)
	}
	ok, wait := rl.Reserve("10.0.0.2")
	assert.False(t, ok)
	assert.Equal(t, 100*time.Millisecond, wait)
}

func TestRateLimitIsPerClient(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	limiter := limiterAt(clock, 0.001, 1)

	okA, _ := limiter.Reserve("a")
	okB, _ := limiter.Reserve("b")
	require.True(t, okA && okB, "first request per client passes")

	okA, _ = limiter.Reserve("a")
	assert.False(t, okA)
}

func TestRateLimitKeysOnHostWithoutPort(t *testing.T) {
	first := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	first.RemoteAddr = "192.0.2.7:50001"
	second := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	second.RemoteAddr = "192.0.2.7:50002"

	assert.Equal(t, clientKey(first), clientKey(second))
	assert.Equal(t, "192.0.2.7", clientKey(first))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	limiter := limiterAt(clock, 1, 1)
	limiter.Reserve("idle")

	clock.advance(staleBucketAfter + time.Minute)
	limiter.Reserve("active")

	_, idleKept := limiter.buckets["idle"]
	assert.False(t, idleKept)
	assert.Len(t, limiter.buckets, 1)
}
