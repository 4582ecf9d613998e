// Package access decides which signed-in identities may use the dashboard.
package access

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnauthorized is returned when a request has no allowed identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned when a guest login does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Guest is the single credentials login. Only the bcrypt hash is stored.
type Guest struct {
	Email        string `toml:"email"`
	PasswordHash string `toml:"password_hash"`
}

// Enabled reports whether a guest login is configured.
func (g Guest) Enabled() bool {
	return g.Email != "" && g.PasswordHash != ""
}

// Authenticate checks email and password against the guest credential and
// returns the identity to put in the session.
func (g Guest) Authenticate(email, password string) (string, error) {
	if !g.Enabled() || email != g.Email {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return g.Email, nil
}

// HashPassword returns a bcrypt hash suitable for Guest.PasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Policy is the allowlist as read from the access file.
type Policy struct {
	Version int      `toml:"version"`
	Emails  []string `toml:"emails"`
	Guest   Guest    `toml:"guest"`
}

// Gate answers allowlist questions for every call site.
type Gate struct {
	version int
	emails  map[string]struct{}
	guest   Guest
}

func NewGate(p Policy) *Gate {
	emails := make(map[string]struct{}, len(p.Emails))
	for _, e := range p.Emails {
		if e != "" {
			emails[e] = struct{}{}
		}
	}
	return &Gate{version: p.Version, emails: emails, guest: p.Guest}
}

// Allows reports whether email is on the allowlist. Matching is exact and
// case-sensitive. The empty string is never allowed.
func (g *Gate) Allows(email string) bool {
	if email == "" {
		return false
	}
	_, ok := g.emails[email]
	return ok
}

// Version is the allowlist version from the access file.
func (g *Gate) Version() int {
	return g.version
}

// Guest returns the configured guest credential.
func (g *Gate) Guest() Guest {
	return g.guest
}

// Len returns the number of allowed emails.
func (g *Gate) Len() int {
	return len(g.emails)
}

type principalKey struct{}

// WithPrincipal returns ctx carrying the signed-in email.
func WithPrincipal(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, principalKey{}, email)
}

// Principal returns the signed-in email stored by WithPrincipal.
func Principal(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(principalKey{}).(string)
	return email, ok && email != ""
}
