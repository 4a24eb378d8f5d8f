package daemon

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// rateLimiter applies a per-client token bucket to write routes
type rateLimiter struct {
	limiter ratelimit.RateLimiter
}

// newRateLimiter allows perSecond sustained requests per client with a
// burst of three times that. A non-positive rate disables limiting.
func newRateLimiter(perSecond int) *rateLimiter {
	if perSecond <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     perSecond,
			Burst:    perSecond * 3,
			Interval: time.Second,
		}),
	}
}

func (rl *rateLimiter) allow(ctx context.Context, key string) bool {
	if rl.limiter == nil {
		return true
	}
	return rl.limiter.Allow(ctx, key)
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)

		if !rl.allow(r.Context(), key) {
			slog.Warn("rate limit exceeded",
				"correlation_id", GetCorrelationID(r.Context()),
				"client", key,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests","status":429}` + "\n"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close releases the limiter's resources
func (rl *rateLimiter) Close() error {
	if rl.limiter == nil {
		return nil
	}
	return rl.limiter.Close()
}

// clientIP extracts the client address from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
