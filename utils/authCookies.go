package utils

import (
	"SmartDentist/config"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const csrfCookieLifetime = 365 * 24 * time.Hour

// Cookies older clients may still carry; logout clears them too.
var legacySessionCookies = []string{"is_staff", "X-CSRFToken"}

// SessionCookies writes the session cookies according to the configured policy.
type SessionCookies struct {
	cfg config.SessionConfig
}

func NewSessionCookies(cfg config.SessionConfig) *SessionCookies {
	return &SessionCookies{cfg: cfg}
}

func (s *SessionCookies) Config() config.SessionConfig {
	return s.cfg
}

// SetTokens (re)writes the access and refresh cookies.
func (s *SessionCookies) SetTokens(c *gin.Context, accessToken, refreshToken string) {
	s.setCookie(c, s.cfg.AccessCookie, accessToken, s.cfg.AccessLifetime, s.cfg.HTTPOnly, s.cfg.SameSite)
	s.setCookie(c, s.cfg.RefreshCookie, refreshToken, s.cfg.RefreshLifetime, s.cfg.HTTPOnly, s.cfg.SameSite)
}

// SetLogin writes everything a fresh session needs and exposes the CSRF token header.
func (s *SessionCookies) SetLogin(c *gin.Context, accessToken, refreshToken string, staff bool, csrfToken string) {
	s.SetTokens(c, accessToken, refreshToken)

	role := "worker"
	if staff {
		role = "admin"
	}
	s.setCookie(c, s.cfg.RoleCookie, role, s.cfg.AccessLifetime, true, http.SameSiteLaxMode)

	s.SetCSRF(c, csrfToken)
}

// SetCSRF stores the token in a script-readable cookie and echoes it in the header.
func (s *SessionCookies) SetCSRF(c *gin.Context, csrfToken string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cfg.CSRFCookie,
		Value:    csrfToken,
		Path:     "/",
		Domain:   s.cfg.CookieDomain,
		MaxAge:   int(csrfCookieLifetime.Seconds()),
		Expires:  time.Now().Add(csrfCookieLifetime),
		Secure:   s.cfg.Secure,
		HttpOnly: false,
		SameSite: s.cfg.SameSite,
	})
	c.Header(s.cfg.CSRFHeader, csrfToken)
}

// Clear expires every cookie set at login plus the CSRF cookie.
func (s *SessionCookies) Clear(c *gin.Context) {
	for _, name := range []string{s.cfg.AccessCookie, s.cfg.RefreshCookie, s.cfg.RoleCookie} {
		s.clearCookie(c, name, s.cfg.CookiePath)
	}
	for _, name := range legacySessionCookies {
		s.clearCookie(c, name, s.cfg.CookiePath)
	}
	s.clearCookie(c, s.cfg.CSRFCookie, "/")
}

// HasSession reports whether the request carries a session cookie.
func (s *SessionCookies) HasSession(r *http.Request) bool {
	for _, name := range []string{s.cfg.AccessCookie, s.cfg.RefreshCookie} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return true
		}
	}
	return false
}

// CookieValue returns the named cookie or "".
func CookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *SessionCookies) setCookie(c *gin.Context, name, value string, lifetime time.Duration, httpOnly bool, sameSite http.SameSite) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cfg.CookiePath,
		Domain:   s.cfg.CookieDomain,
		MaxAge:   int(lifetime.Seconds()),
		Expires:  time.Now().Add(lifetime),
		Secure:   s.cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: sameSite,
	})
}

func (s *SessionCookies) clearCookie(c *gin.Context, name, path string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   s.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		SameSite: s.cfg.SameSite,
	})
}

// GenerateCSRFToken returns a fresh random token.
func GenerateCSRFToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CSRFTokensMatch compares two tokens in constant time; empty never matches.
func CSRFTokensMatch(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
