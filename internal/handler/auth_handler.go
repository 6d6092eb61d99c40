package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"github.com/casbin/casbin/v2"

	"github.com/owaso30/ManualApp/internal/auth"
	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/session"
)

// UserUpserter persists a user on login.
type UserUpserter interface {
	Upsert(ctx context.Context, user *data.User) error
}

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	auth      *auth.Authenticator
	users     UserUpserter
	sessions  session.Manager
	enforcer  casbin.IEnforcer
	adminRole string
	log       logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a *auth.Authenticator, users UserUpserter, sessions session.Manager, enforcer casbin.IEnforcer, adminRole string, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: a, users: users, sessions: sessions, enforcer: enforcer, adminRole: adminRole, log: log}
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback is the redirect URL for the OIDC provider. It exchanges
// the code, verifies the ID token, upserts the user and establishes the
// server-side session.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("state")
	if err != nil {
		http.Error(w, "state cookie not found", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	oauth2Token, err := h.auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "No id_token field in oauth2 token", http.StatusInternalServerError)
		return
	}
	idToken, err := h.auth.IDTokenVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, "Failed to verify ID Token", http.StatusInternalServerError)
		return
	}

	var claims struct {
		Email string   `json:"email"`
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "Failed to parse ID Token claims", http.StatusInternalServerError)
		return
	}
	isAdmin := false
	for _, role := range claims.Roles {
		if role == h.adminRole {
			isAdmin = true
			break
		}
	}
	displayName := claims.Name
	if displayName == "" {
		displayName = claims.Email
	}

	user := &data.User{ID: idToken.Subject, Email: claims.Email, DisplayName: displayName, IsAdmin: isAdmin}
	if err := h.users.Upsert(r.Context(), user); err != nil {
		h.log.Error(err, "failed to upsert user on login")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Rotate the session token on privilege change to prevent fixation.
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		h.log.Error(err, "failed to renew session token")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.sessions.Put(r.Context(), middleware.SessionKeyUserSubject, idToken.Subject)
	h.sessions.Put(r.Context(), middleware.SessionKeyIsAdmin, isAdmin)

	if err := auth.GrantLoginRoles(h.enforcer, idToken.Subject, isAdmin); err != nil {
		h.log.Error(err, "failed to grant login roles")
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		h.log.Error(err, "failed to destroy session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
