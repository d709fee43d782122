package middlew

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/service"
	"fraud-detector/pkg/response"
)

// RequireObserverToken guards the alert stream. Browsers cannot set headers on
// a websocket handshake, so the token may also come in the token query parameter.
// A disabled auth service lets every request through.
func RequireObserverToken(auth service.ObserverAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			log := GetLogger(r.Context())

			tokenString, ok := extractToken(r)
			if !ok {
				log.Warn("missing or malformed observer token")
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Observer token is required")
				return
			}

			claims, err := auth.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, custom_err.ErrTokenExpired):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_expired", "Token has expired")
				case errors.Is(err, custom_err.ErrTokenNotActive):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_not_active", "Token not yet active")
				case errors.Is(err, custom_err.ErrInvalidToken):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "invalid_token", "Invalid token")
				default:
					log.Error("failed to validate token", slog.String("error", err.Error()))
					response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Internal error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), observerKey, claims.Subject)
			ctx = context.WithValue(ctx, loggerKey, log.With(slog.String("observer", claims.Subject)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// GetObserver returns the authenticated observer name, or "" when auth is off.
func GetObserver(ctx context.Context) string {
	observer, _ := ctx.Value(observerKey).(string)
	return observer
}
