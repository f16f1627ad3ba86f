package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/authcore/pkg/clientip"
)

// KeyFunc derives the limiter key from a request.
type KeyFunc func(r *http.Request) string

// ByClientIP keys limits on the resolved client IP.
func ByClientIP(r *http.Request) string {
	return clientip.FromRequest(r)
}

// Middleware enforces the limiter per request key and sets the usual
// X-RateLimit headers. Requests over the limit get 429 with Retry-After.
func Middleware(bucket *Bucket, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ByClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := bucket.Allow(keyFn(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				if retryAfter := int(time.Until(result.ResetAt).Seconds()); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
