package api

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gurubase-cli/internal/config"
)

// Auth decorates outgoing requests for one deployment mode. scoped is the
// per-question credential from the summary; it may be empty.
type Auth interface {
	Apply(req *http.Request, scoped string)
	Mode() string
}

// BearerAuth is the hosted mode: Authorization header only.
type BearerAuth struct {
	Token string
}

func (a BearerAuth) Apply(req *http.Request, scoped string) {
	token := a.Token
	if scoped != "" {
		token = scoped
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (a BearerAuth) Mode() string { return "hosted" }

// SessionAuth is the self-hosted mode: Django session cookie plus CSRF header.
type SessionAuth struct {
	CSRFToken string
	SessionID string
}

func (a SessionAuth) Apply(req *http.Request, _ string) {
	if a.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: a.SessionID})
	}
	if a.CSRFToken != "" {
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: a.CSRFToken})
		req.Header.Set("X-CSRFToken", a.CSRFToken)
	}
}

func (a SessionAuth) Mode() string { return "self-hosted" }

// AuthFor picks the strategy for the configured deployment mode.
func AuthFor(cfg *config.Config) Auth {
	if cfg.SelfHosted {
		return SessionAuth{CSRFToken: cfg.CSRFToken, SessionID: cfg.SessionID}
	}
	return BearerAuth{Token: cfg.Token}
}

// ScopedTokenExpiry reads the exp claim of the summary's jwt without
// verifying it; the backend is the only party holding the key.
func ScopedTokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
