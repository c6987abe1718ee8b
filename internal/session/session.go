// Package session orchestrates the login/refresh/logout lifecycle. No
// session state is persisted server-side: everything lives in the two tokens
// the client holds — a short-lived access token returned in the response body
// and a refresh token delivered via an HTTP-only cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/patric-chuzhbe/shrtnr/internal/token"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

// ErrInvalidCredentials collapses unknown-user and wrong-password outcomes so
// the response carries no user-enumeration signal.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRefreshToken is returned when the refresh cookie is absent,
// tampered with, or expired.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type userFinder interface {
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
}

type passwordVerifier interface {
	Verify(password, hash string) bool
}

// Manager issues and rotates the token pair. Refresh-token rotation is
// cookie-level only: a replayed old refresh token stays cryptographically
// valid until its own expiry because no revocation list exists.
type Manager struct {
	db         userFinder
	hasher     passwordVerifier
	tokens     *token.Service
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New creates a session Manager. accessTTL bounds access tokens and
// non-persistent refresh tokens; refreshTTL bounds persistent refresh tokens.
func New(
	db userFinder,
	hasher passwordVerifier,
	tokens *token.Service,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Manager {
	return &Manager{
		db:         db,
		hasher:     hasher,
		tokens:     tokens,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login checks the credentials and, on success, returns a fresh access token
// and the refresh cookie to set. The refresh token lives refreshTTL when
// persistent is true and accessTTL otherwise.
func (m *Manager) Login(
	ctx context.Context,
	username string,
	password string,
	persistent bool,
) (string, *http.Cookie, error) {
	usr, found, err := m.db.FindUserByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("looking up user: %w", err)
	}
	if !found || !m.hasher.Verify(password, usr.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	return m.issuePair(username, persistent)
}

// Refresh verifies the refresh token and mints a new access/refresh pair,
// re-applying the persistence flag carried in the original claims.
func (m *Manager) Refresh(refreshToken string) (string, *http.Cookie, error) {
	claims, err := m.tokens.Verify(refreshToken)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}

	return m.issuePair(claims.Subject, claims.Persistent)
}

// LogoutCookie returns the deletion cookie instructing the client to drop the
// refresh token. Removal is a hint only: a kept copy of the token stays valid
// until its natural expiry.
func (m *Manager) LogoutCookie() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) issuePair(username string, persistent bool) (string, *http.Cookie, error) {
	accessToken, err := m.tokens.Issue(token.NewClaims(username, m.accessTTL, persistent))
	if err != nil {
		return "", nil, err
	}

	refreshTTL := m.accessTTL
	if persistent {
		refreshTTL = m.refreshTTL
	}

	refreshToken, err := m.tokens.Issue(token.NewClaims(username, refreshTTL, persistent))
	if err != nil {
		return "", nil, err
	}

	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL / time.Second),
		Expires:  time.Now().Add(refreshTTL),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}

	return accessToken, cookie, nil
}
