package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultInboundRate  = 10.0
	defaultInboundBurst = 20
	staleBucketAfter    = 10 * time.Minute
)

// RateLimiter is a per-client token bucket for inbound API requests. It is
// unrelated to the model provider gate in internal/ratelimit.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
	sweptAt time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seenAt  time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per
// client. Non-positive values fall back to the service defaults.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = defaultInboundRate
	}
	if burst <= 0 {
		burst = defaultInboundBurst
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rps,
		burst:   burst,
		now:     time.Now,
	}
}

// Reserve takes one token for key. When none is left it reports how long
// until the next token is available.
func (rl *RateLimiter) Reserve(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.rate), rl.burst)}
		rl.buckets[key] = b
	}
	b.seenAt = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops buckets idle long enough to have refilled.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.sweptAt) < staleBucketAfter {
		return
	}
	rl.sweptAt = now
	for key, b := range rl.buckets {
		if now.Sub(b.seenAt) > staleBucketAfter {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit rejects clients over the configured rate with 429 and a
// Retry-After header in whole seconds.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return RateLimitWith(NewRateLimiter(rps, burst))
}

// RateLimitWith wraps an existing limiter.
func RateLimitWith(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Reserve(clientKey(r))
			if !ok {
				seconds := int(math.Ceil(wait.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey prefers X-Real-Ip (set by chi's RealIP) and strips the port
// from RemoteAddr so one client maps to one bucket.
func clientKey(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
