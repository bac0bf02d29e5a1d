package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/CrazyWorldPL/IVshop/internal/auth"
)

const stateCookie = "ivshop_oauth_state"

// LoginProvider runs the OAuth2 code flow against an identity provider.
type LoginProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.User, error)
}

// AuthHandler handles Discord login and token introspection.
type AuthHandler struct {
	provider LoginProvider
	tokens   *auth.TokenIssuer
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(provider LoginProvider, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login handles GET /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/v1/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /api/v1/auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.logger.WarnContext(r.Context(), "OAuth state mismatch", "remote_addr", r.RemoteAddr)
		respondError(w, http.StatusBadRequest, "Nieprawidłowy stan logowania.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/v1/auth", MaxAge: -1})

	user, err := h.provider.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "Discord login failed", "error", err)
		respondError(w, http.StatusUnauthorized, "Logowanie przez Discord nie powiodło się.")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to issue token", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Wystąpił niespodziewany błąd.")
		return
	}

	h.logger.InfoContext(r.Context(), "User logged in", "user_id", user.ID, "username", user.Username)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Brak tokenu autoryzacji.")
		return
	}

	respondJSON(w, http.StatusOK, auth.User{ID: claims.UserID, Username: claims.Username})
}
