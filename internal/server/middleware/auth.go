package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/tradejournal/internal/auth"
	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "tj_token"

// Authenticator verifies a raw session token.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (auth.Session, error)
}

type sessionKey struct{}

// Auth returns middleware that requires a valid session token, read from the
// tj_token cookie or an Authorization: Bearer header. The verified session is
// stored in the request context; handlers read it with SessionFrom.
func Auth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			sess, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					logger.ErrorContext(r.Context(), "authenticate failed", slog.String("error", err.Error()))
					writeJSONError(w, http.StatusServiceUnavailable, "authentication unavailable")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the verified session stored by Auth.
func SessionFrom(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(auth.Session)
	return sess, ok
}

// UserID returns the authenticated user ID, or "" outside Auth.
func UserID(ctx context.Context) string {
	sess, _ := SessionFrom(ctx)
	return sess.UserID
}

// extractToken prefers the session cookie and falls back to the
// Authorization header (Bearer scheme).
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
