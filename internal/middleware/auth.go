package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/service"
)

type contextKey string

const sessionKey contextKey = "session"

// Auth failure kinds reported in the WWW-Authenticate header.
const (
	KindMissingToken = "missing_token"
	KindInvalidToken = "invalid_token"
)

const (
	msgMissingToken = "Token de autorización requerido"
	msgInvalidToken = "Token inválido o expirado"
	msgInternal     = "Error interno del servidor"
)

// SessionValidator resolves a bearer token to its session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (model.SessionInfo, error)
}

// BearerToken returns the token of an `Authorization: Bearer <token>` header.
func BearerToken(r *http.Request) string {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// SessionAuth returns middleware that requires a valid session token. The
// body of a rejection is always the same generic error; the failure kind is
// only exposed in the WWW-Authenticate header.
func SessionAuth(sessions SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w, KindMissingToken, msgMissingToken)
				return
			}

			info, err := sessions.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrMissingToken) {
					unauthorized(w, KindInvalidToken, msgInvalidToken)
					return
				}
				logger.Error("session validation failed", "error", err)
				writeJSONError(w, http.StatusInternalServerError, msgInternal)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, kind, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+kind+`"`)
	writeJSONError(w, http.StatusUnauthorized, msg)
}

// SessionFromContext returns the session attached by SessionAuth.
func SessionFromContext(ctx context.Context) (model.SessionInfo, bool) {
	info, ok := ctx.Value(sessionKey).(model.SessionInfo)
	return info, ok
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	info, ok := SessionFromContext(ctx)
	return info.UserID, ok
}

// WithSession attaches info to ctx as SessionAuth does.
func WithSession(ctx context.Context, info model.SessionInfo) context.Context {
	return context.WithValue(ctx, sessionKey, info)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
