package session

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/shrtnr/internal/hasher"
	"github.com/patric-chuzhbe/shrtnr/internal/token"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

const (
	testAccessTTL  = time.Hour
	testRefreshTTL = 720 * time.Hour
)

type fixedUserFinder struct {
	users map[string]*user.User
}

func (f *fixedUserFinder) FindUserByUsername(_ context.Context, username string) (*user.User, bool, error) {
	usr, found := f.users[username]
	return usr, found, nil
}

func newTestManager(t *testing.T) (*Manager, *token.Service) {
	t.Helper()

	keys, err := token.NewStaticKeyProvider(bytes.Repeat([]byte{1}, token.SigningKeySize))
	require.NoError(t, err)
	tokens := token.New(keys)

	passwordHasher := hasher.NewBcrypt(4)
	passwordHash, err := passwordHasher.Hash("s3cret")
	require.NoError(t, err)

	db := &fixedUserFinder{users: map[string]*user.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: passwordHash},
	}}

	return New(db, passwordHasher, tokens, testAccessTTL, testRefreshTTL), tokens
}

func TestLogin(t *testing.T) {
	manager, tokens := newTestManager(t)

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown_user", "nobody", "s3cret"},
		{"wrong_password", "alice", "wrong"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			accessToken, cookie, err := manager.Login(context.Background(), testCase.username, testCase.password, false)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, accessToken)
			assert.Nil(t, cookie)
		})
	}

	t.Run("valid_credentials", func(t *testing.T) {
		accessToken, cookie, err := manager.Login(context.Background(), "alice", "s3cret", false)
		require.NoError(t, err)

		claims, err := tokens.Verify(accessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.False(t, claims.Persistent)

		require.NotNil(t, cookie)
		assert.Equal(t, RefreshCookieName, cookie.Name)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
	})
}

func TestRefreshCookieLifetime(t *testing.T) {
	manager, _ := newTestManager(t)

	testCases := []struct {
		name       string
		persistent bool
		wantTTL    time.Duration
	}{
		{"session_only", false, testAccessTTL},
		{"persistent", true, testRefreshTTL},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, cookie, err := manager.Login(context.Background(), "alice", "s3cret", testCase.persistent)
			require.NoError(t, err)
			require.NotNil(t, cookie)

			assert.Equal(t, int(testCase.wantTTL/time.Second), cookie.MaxAge)
			assert.WithinDuration(t, time.Now().Add(testCase.wantTTL), cookie.Expires, time.Minute)
		})
	}
}

func TestRefreshRotation(t *testing.T) {
	manager, tokens := newTestManager(t)

	_, cookie, err := manager.Login(context.Background(), "alice", "s3cret", true)
	require.NoError(t, err)

	accessToken, rotated, err := manager.Refresh(cookie.Value)
	require.NoError(t, err)

	claims, err := tokens.Verify(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.Persistent, "persistence must survive rotation")

	refreshClaims, err := tokens.Verify(rotated.Value)
	require.NoError(t, err)
	assert.True(t, refreshClaims.Persistent)
	assert.Equal(t, int(testRefreshTTL/time.Second), rotated.MaxAge)
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	manager, tokens := newTestManager(t)

	expired, err := tokens.Issue(token.NewClaims("alice", -time.Minute, false))
	require.NoError(t, err)

	testCases := []struct {
		name         string
		refreshToken string
	}{
		{"empty", ""},
		{"garbage", "not a token"},
		{"expired", expired},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			accessToken, cookie, err := manager.Refresh(testCase.refreshToken)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
			assert.Empty(t, accessToken)
			assert.Nil(t, cookie)
		})
	}
}

func TestLogoutCookie(t *testing.T) {
	manager, _ := newTestManager(t)

	cookie := manager.LogoutCookie()
	assert.Equal(t, RefreshCookieName, cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
}
