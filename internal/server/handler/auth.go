package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/auth"
	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/server/middleware"
	"github.com/alanyoungcy/tradejournal/internal/service"
)

// AuthService defines the methods that the auth handler requires from the
// service layer.
type AuthService interface {
	Signup(ctx context.Context, in service.SignupInput) (service.Session, error)
	Login(ctx context.Context, email, password, clientKey string) (service.Session, error)
	Logout(ctx context.Context, sess auth.Session) error
	Me(ctx context.Context, userID string) (domain.User, error)
}

// AuthHandler serves signup, login, logout and the current-user endpoint.
type AuthHandler struct {
	auth         AuthService
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieSecure marks the session
// cookie Secure (HTTPS only).
func NewAuthHandler(svc AuthService, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, cookieSecure: cookieSecure, logger: logger}
}

type sessionResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a user and starts a session.
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, "signup", err)
		return
	}
	sess, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, "signup", err)
		return
	}
	h.startSession(w, sess)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// Login starts a session for valid credentials.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, "login", err)
		return
	}
	sess, err := h.auth.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "login", err)
		return
	}
	h.startSession(w, sess)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// Logout revokes the current session and clears the cookie.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if err := h.auth.Logout(r.Context(), sess); err != nil {
		writeServiceError(w, r, h.logger, "logout", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), currentUser(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, sess service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    sess.Token.Value,
		Path:     "/",
		Expires:  sess.Token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newSessionResponse(sess service.Session) sessionResponse {
	return sessionResponse{User: sess.User, Token: sess.Token.Value, ExpiresAt: sess.Token.ExpiresAt}
}
