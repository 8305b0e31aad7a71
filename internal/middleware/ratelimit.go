package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-api-template/internal/ratelimit"
	"go-api-template/internal/response"
	"go-api-template/pkg/apierror"
)

const msgTooManyRequests = "Too many requests have been made, please try again later"

type authBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies the fixed-window limiter to every request and a
// stricter per-client token bucket to credential endpoints.
type RateLimitMiddleware struct {
	limiter    *ratelimit.Limiter
	authRPM    int
	authPrefix string
	errors     *response.Translator
	log        *slog.Logger

	mu      sync.Mutex
	buckets map[string]*authBucket
}

func NewRateLimitMiddleware(
	limiter *ratelimit.Limiter,
	authRPM int,
	authPrefix string,
	translator *response.Translator,
	log *slog.Logger,
) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter:    limiter,
		authRPM:    authRPM,
		authPrefix: strings.ToLower(authPrefix),
		errors:     translator,
		log:        log,
		buckets:    map[string]*authBucket{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		result, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			m.log.WarnContext(r.Context(), "rate limit store unavailable, allowing request", "client", key, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		header := w.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetUnix(), 10))

		if !result.Allowed {
			m.reject(w, r, result.RetryAfter())
			return
		}

		if m.authRPM > 0 && m.authPrefix != "" && strings.HasPrefix(strings.ToLower(r.URL.Path), m.authPrefix) {
			if wait := m.reserveAuth(key); wait > 0 {
				header.Set("X-RateLimit-Remaining", "0")
				m.reject(w, r, wait)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	seconds := int64(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	m.errors.Error(w, r, apierror.TooManyRequests(msgTooManyRequests))
}

// reserveAuth takes a token from the client's credential bucket. A positive
// return is how long the client has to wait; the reservation is cancelled.
func (m *RateLimitMiddleware) reserveAuth(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	bucket, exists := m.buckets[key]
	if !exists {
		bucket = &authBucket{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		}
		m.buckets[key] = bucket
	}
	bucket.lastSeen = now
	m.gcLocked(now)

	reservation := bucket.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return delay
	}
	return 0
}

func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.buckets) < 1000 {
		return
	}

	cutoff := now.Add(-10 * time.Minute)
	for key, bucket := range m.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}

// clientKey is the first X-Forwarded-For entry, or "unknown".
func clientKey(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded == "" {
		return "unknown"
	}

	first, _, _ := strings.Cut(forwarded, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return "unknown"
}
