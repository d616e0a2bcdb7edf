package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nikhilbhutani/audioreader/internal/auth"
)

// LoginLimiter throttles failed logins per client address.
type LoginLimiter interface {
	Blocked(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id string) (int64, error)
	Reset(ctx context.Context, id string) error
}

type AuthHandler struct {
	svc        *auth.Service
	limiter    LoginLimiter
	cookieName string
	secure     bool
}

// NewAuthHandler accepts a nil limiter.
func NewAuthHandler(svc *auth.Service, limiter LoginLimiter, cookieName string, secure bool) *AuthHandler {
	return &AuthHandler{svc: svc, limiter: limiter, cookieName: cookieName, secure: secure}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if h.limiter != nil {
		blocked, err := h.limiter.Blocked(r.Context(), ip)
		if err != nil {
			slog.Warn("login limiter unavailable", "error", err)
		}
		if blocked {
			writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
			return
		}
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordFailure(r.Context(), ip)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(r.Context(), ip); err != nil {
			slog.Warn("failed to reset login attempts", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("user logged in", "user_id", session.User.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      session.User,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.UserFromContext(r.Context()))
}

func (h *AuthHandler) recordFailure(ctx context.Context, ip string) {
	if h.limiter == nil {
		return
	}
	if _, err := h.limiter.Fail(ctx, ip); err != nil {
		slog.Warn("failed to record login attempt", "error", err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
