package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "civreg/pkg/domain"
	"civreg/pkg/requestcontext"
)

// Claims represents what the token verifier hands back: the authenticated
// actor and the scope strings granted to them. The scope list is trusted
// verbatim; issuance is the auth service's concern, not ours.
type Claims struct {
	Subject string
	Scopes  []string
}

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// writeJSONError writes a JSON error response with the given status code.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token on every request and injects the
// actor and their scopes into the request context. Per-procedure scope checks
// happen downstream against the injected scope list.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			actor, err := id.ParseUserID(claims.Subject)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, actor, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
