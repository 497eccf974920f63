package middleware

import (
	"net/http"
	"strings"

	"dataroom/internal/auth"
	"dataroom/internal/httputil"
)

// publicPaths are served without a token
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware validates the bearer token and stores the caller in the request context.
// CORS pre-flight requests pass through untouched. A client over its
// failed-attempt budget gets 429 until the limiter refills (nil disables it).
func AuthMiddleware(verifier auth.JWTVerifier, limiter *FailedAuthLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			client := clientID(r)
			if limiter != nil && limiter.Blocked(client) {
				httputil.RespondError(w, http.StatusTooManyRequests, "too many failed authentication attempts, try again later")
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				if limiter != nil {
					limiter.Failed(client)
				}
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if limiter != nil {
				limiter.Reset(client)
			}

			next.ServeHTTP(w, httputil.WithUser(r, claims.User()))
		})
	}
}
