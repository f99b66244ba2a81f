package ratelimit

import (
	"net/http"
	"strconv"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/platform/httputil"
	"keeply/pkg/requestcontext"
)

// Middleware limits requests per client IP. Mount it on the auth routes
// only; telemetry and health endpoints stay unthrottled.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Allow(r.Context(), requestcontext.ClientIP(r.Context()))
			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
					"Muitas tentativas. Tente novamente em alguns segundos."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
