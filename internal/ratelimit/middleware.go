package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/draftly-app/draftly/internal/httputil"
	"github.com/draftly-app/draftly/internal/telemetry"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// ClientKey derives the rate-limit key from the request's network address.
// chi's RealIP middleware rewrites RemoteAddr from forwarding headers before
// this runs.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware returns chi middleware that gates requests per client key.
func Middleware(limiter Limiter, maxRequests int, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// Fail open: admission control never takes the service down.
				slog.Error("rate limit check failed", "error", err, "client", key)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(maxRequests))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.Itoa(result.Remaining))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", w.Header().Get("X-Request-ID"),
					"client", key,
					"limit", maxRequests,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit()
				}
				retryAfter := int(time.Until(result.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(retryAfter))
				httputil.WriteRateLimitError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
