package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/anniversary/internal/handlers"
	"github.com/HammerMeetNail/anniversary/internal/logging"
)

// Counter is the part of *redis.Client the limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// KeyFunc picks the identity a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimiter is a fixed-window counter in redis. Redis failures let the
// request through.
type RateLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	prefix  string
	keyFunc KeyFunc
	logger  *logging.Logger
	now     func() time.Time
}

func NewRateLimiter(counter Counter, limit int, window time.Duration, prefix string, keyFunc KeyFunc, logger *logging.Logger) *RateLimiter {
	if keyFunc == nil {
		keyFunc = UserOrIPKey
	}
	if logger == nil {
		logger = logging.Default
	}
	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		keyFunc: keyFunc,
		logger:  logger,
		now:     time.Now,
	}
}

// NewPairingRateLimiter limits pairing writes per user.
func NewPairingRateLimiter(counter Counter, limit int, window time.Duration, logger *logging.Logger) *RateLimiter {
	return NewRateLimiter(counter, limit, window, "ratelimit:pairing", UserOrIPKey, logger)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.counter == nil || rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, reset, err := rl.isAllowed(r.Context(), rl.keyFunc(r))
		if err != nil {
			rl.logger.Warn("Rate limiter unavailable", map[string]interface{}{"error": err})
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			retry := int64(reset.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, identity string) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.window)
	reset := windowStart.Add(rl.window)
	key := fmt.Sprintf("%s:%s:%d", rl.prefix, identity, windowStart.Unix())

	count, err := rl.counter.Incr(ctx, key).Result()
	if err != nil {
		return true, rl.limit, reset, fmt.Errorf("incrementing %s: %w", key, err)
	}
	if count == 1 {
		if err := rl.counter.Expire(ctx, key, rl.window).Err(); err != nil {
			return true, rl.limit, reset, fmt.Errorf("expiring %s: %w", key, err)
		}
	}

	remaining := rl.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= rl.limit, remaining, reset, nil
}

// UserOrIPKey counts authenticated requests per user and the rest per client IP.
func UserOrIPKey(r *http.Request) string {
	if user := handlers.GetUserFromContext(r.Context()); user != nil {
		return "user:" + user.ID.String()
	}
	return "ip:" + GetClientIP(r)
}

func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimitConfig is a limit per window. A zero Limit disables limiting.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}
