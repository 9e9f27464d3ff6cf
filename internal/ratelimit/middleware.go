package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/ignite/email-relay/internal/pkg/httputil"
	"github.com/ignite/email-relay/internal/pkg/logger"
)

// Middleware governs one route under the given policy. Every governed
// response carries X-RateLimit-* headers; rejections get Retry-After and a
// 429 body.
func Middleware(g *Governor, route string, pol Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ClientIdentity(r)
			d := g.Check(identity, route, pol)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", formatReset(d.ResetAt))

			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
				logger.Warn("rate limit exceeded", "route", route, "identity", identity)
				httputil.Error(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
