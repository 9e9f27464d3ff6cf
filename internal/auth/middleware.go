package auth

import (
	"net/http"

	"github.com/ignite/email-relay/internal/pkg/httputil"
	"github.com/ignite/email-relay/internal/relayerr"
)

// RequireToken guards operator routes with bearer-token verification.
// Missing or bad tokens get 401; a missing signing secret is the operator's
// misconfiguration and surfaces as 500.
func RequireToken(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				httputil.Unauthorized(w, "Missing authorization token")
				return
			}

			if _, err := v.VerifyToken(token); err != nil {
				if relayerr.KindOf(err) == relayerr.KindConfiguration {
					httputil.InternalError(w, err)
					return
				}
				httputil.Unauthorized(w, relayerr.PublicMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
