package auth

import (
	"net/http"
	"time"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// SessionCookie builds the cookie that carries a session id.
func SessionCookie(cfg CookieConfig, sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds a cookie that removes the session cookie.
func ClearCookie(cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
