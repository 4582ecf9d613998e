package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maeknit/dashboard/internal/access"
)

const sessionCookieName = "maeknit_session"

// sessionManager issues signed, expiring session cookies that carry the
// signed-in email.
type sessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func newSessionManager(secret string, ttl time.Duration, secure bool) *sessionManager {
	return &sessionManager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

func (m *sessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *sessionManager) createSessionValue(email string) string {
	expires := m.now().Add(m.ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(email)) + "." + strconv.FormatInt(expires, 10)
	return payload + "." + m.sign(payload)
}

func (m *sessionManager) verifySessionValue(value string) (string, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", false
	}

	payload := parts[0] + "." + parts[1]
	provided, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(m.sign(payload))
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || !m.now().Before(time.Unix(expires, 0)) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(decoded) == 0 {
		return "", false
	}

	return string(decoded), true
}

func (m *sessionManager) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    m.createSessionValue(email),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *sessionManager) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// principal returns the session email if the session is valid and the email
// is currently on the allowlist.
func (s *server) principal(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", access.ErrUnauthorized
	}
	email, ok := s.sessions.verifySessionValue(cookie.Value)
	if !ok || !s.gate.Allows(email) {
		return "", access.ErrUnauthorized
	}
	return email, nil
}

// apiAuth rejects requests without an allowed identity before any handler
// runs.
func (s *server) apiAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := s.principal(r)
		if err != nil {
			s.metrics.Denied("api")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), email)))
	})
}

// pageAuth redirects browsers without an allowed identity to the login page.
func (s *server) pageAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := s.principal(r)
		if err != nil {
			s.metrics.Denied("page")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), email)))
	})
}

type loginViewData struct {
	ErrorMessage  string
	Email         string
	GoogleEnabled bool
	GuestEnabled  bool
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.principal(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := s.loginView()
	if r.URL.Query().Get("error") == "AccessDenied" {
		data.ErrorMessage = "This account is not allowed to use the dashboard."
	}
	s.renderTemplate(w, "login.html", data)
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	identity, err := s.gate.Guest().Authenticate(email, r.FormValue("password"))
	if err == nil && !s.gate.Allows(identity) {
		err = access.ErrUnauthorized
	}
	if err != nil {
		log.Warn().Str("email", email).Err(err).Msg("guest login rejected")
		s.metrics.Denied("login")
		data := s.loginView()
		data.Email = email
		data.ErrorMessage = "Invalid email or password."
		s.renderStatus(w, http.StatusUnauthorized, "login.html", data)
		return
	}

	log.Info().Str("email", identity).Msg("guest signed in")
	s.sessions.setSessionCookie(w, identity)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) loginView() loginViewData {
	return loginViewData{
		GoogleEnabled: s.oauth != nil,
		GuestEnabled:  s.gate.Guest().Enabled(),
	}
}
