package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/maeknit/dashboard/internal/config"
)

const (
	oauthStateCookieName = "maeknit_oauth_state"
	googleUserInfoURL    = "https://openidconnect.googleapis.com/v1/userinfo"
)

// oauthProvider signs users in with Google and hands the verified email to
// the allowlist.
type oauthProvider struct {
	config      *oauth2.Config
	userInfoURL string
	secure      bool
}

func newGoogleProvider(cfg config.Config) *oauthProvider {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email"},
		},
		userInfoURL: googleUserInfoURL,
		secure:      !cfg.IsDev(),
	}
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (p *oauthProvider) fetchEmail(ctx context.Context, code string) (string, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange oauth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := p.config.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if !info.EmailVerified {
		return "", fmt.Errorf("email %q is not verified", info.Email)
	}
	return info.Email, nil
}

func (s *server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.NotFound(w, r)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   s.oauth.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

func (s *server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.NotFound(w, r)
		return
	}

	cookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookieName, Path: "/auth/google", MaxAge: -1})

	email, err := s.oauth.fetchEmail(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Warn().Err(err).Msg("google sign-in failed")
		http.Redirect(w, r, "/login?error=AccessDenied", http.StatusSeeOther)
		return
	}
	if !s.gate.Allows(email) {
		log.Warn().Str("email", email).Int("allowlist_version", s.gate.Version()).Msg("google sign-in denied")
		s.metrics.Denied("oauth")
		http.Redirect(w, r, "/login?error=AccessDenied", http.StatusSeeOther)
		return
	}

	log.Info().Str("email", email).Msg("google sign-in")
	s.sessions.setSessionCookie(w, email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
