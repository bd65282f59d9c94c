package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/respond"
)

// RateLimiter decides whether key may act now. When it may not, retryAfter is how
// long until the next token is available.
type RateLimiter interface {
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter keeps one token bucket per key. Buckets idle longer than ttl are
// swept, at most once per ttl.
type keyedLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter constructs a per-key token bucket that refills cfg.Requests
// tokens per cfg.Window and holds up to cfg.Burst. Idle keys expire after ttl.
func NewIPRateLimiter(cfg config.RateLimitConfig, ttl time.Duration) RateLimiter {
	requests := max(cfg.Requests, 1)
	burst := max(cfg.Burst, 1)
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &keyedLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *keyedLimiter) Allow(key string) (bool, time.Duration) {
	if key == "" {
		key = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, l.ttl
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Limit rejects requests with 429 once the caller's IP exhausts its bucket for
// scope. A nil limiter disables the check.
func Limit(limiter RateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			if ok, retryAfter := limiter.Allow(scope + ":" + ClientIP(r)); !ok {
				w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
				respond.Error(r.Context(), w, apperrors.New(apperrors.KindTooManyRequests, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds d up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	return strconv.FormatInt(max(secs, 1), 10)
}

// ClientIP returns the host of r.RemoteAddr. Forwarding headers are not read
// here; TrustProxy rewrites RemoteAddr when they may be believed.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
