// internal/httpserver/auth.go
//
// Auth routes and player identity.
//   - POST /auth/signup, /auth/login, /auth/logout; GET /auth/me (requires auth).
//   - Optional auth decorates requests with the account when a valid token is
//     present (Authorization: Bearer or the auth cookie); guests still pass.
//   - Guests get a long-lived anonymous cookie so their sessions and results
//     stay attached to the same player id.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/hugolynch/double-speak/internal/account"
	"github.com/hugolynch/double-speak/internal/catalog"
)

const (
	authCookieName = "ds_token"
	anonCookieName = "ds_anon"
	anonLifetime   = 180 * 24 * time.Hour

	// anonPrefix keeps guest player ids apart from account ids, so a cookie
	// can never name an account's sessions or results.
	anonPrefix = "anon:"
)

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuthRoutes registers /auth/*.
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)
	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, userFrom(r))
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := s.accounts.Create(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, account.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken")
		return
	case errors.Is(err, account.ErrBadSignup):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("create user")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.issue(w, r, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := s.accounts.Authenticate(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, account.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "bad_credentials")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("authenticate")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.issue(w, r, u)
}

// issue signs a token for u, sets the auth cookie and returns the user with the token.
func (s *Server) issue(w http.ResponseWriter, r *http.Request, u *account.User) {
	tok, exp, err := s.accounts.Issue(u)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setCookie(w, authCookieName, tok, exp)
	writeJSON(w, map[string]any{"id": u.ID, "username": u.Username, "token": tok})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, authCookieName, "", time.Time{})
	writeJSON(w, map[string]bool{"ok": true})
}

// --------------------------- middleware ------------------------------------

// authenticate resolves the request's token to a live account, or nil.
func (s *Server) authenticate(r *http.Request) *authUser {
	tok := bearerOrCookie(r)
	if tok == "" {
		return nil
	}
	claims, err := s.accounts.Parse(tok)
	if err != nil {
		return nil
	}
	u, err := s.accounts.ByID(r.Context(), claims.UserID)
	if err != nil {
		return nil
	}
	return &authUser{ID: u.ID, Username: u.Username}
}

// withOptionalAuth decorates requests with user context if a valid token is present.
// It never 401s.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if me := s.authenticate(r); me != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid token for a user that still exists.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me := s.authenticate(r)
			if me == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me)))
		})
	}
}

func userFrom(r *http.Request) *authUser {
	u, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return u
}

// playerID is the account id when signed in, else "anon:" plus the anonymous
// cookie id (issued on first use). A cookie holding an account id is replaced.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if me := userFrom(r); me != nil {
		return me.ID
	}
	if c, err := r.Cookie(anonCookieName); err == nil && catalog.ValidID(c.Value) && !s.isAccount(r, c.Value) {
		return anonPrefix + c.Value
	}
	id := account.NewID()
	s.setCookie(w, anonCookieName, id, time.Now().Add(anonLifetime))
	return anonPrefix + id
}

func (s *Server) isAccount(r *http.Request, id string) bool {
	_, err := s.accounts.ByID(r.Context(), id)
	return err == nil
}

// ------------------------------ cookies ------------------------------------

// setCookie writes an HttpOnly cookie; an empty value deletes it.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: sameSite,
		Expires:  exp,
	}
	if value == "" {
		c.Expires = time.Time{}
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a bearer token from the Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); len(a) > 7 && strings.EqualFold(a[:7], "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(authCookieName); err == nil {
		return c.Value
	}
	return ""
}
