package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/shrtnr/internal/token"
)

func newTestGuard(t *testing.T) (*Guard, *token.Service) {
	t.Helper()

	keys, err := token.NewStaticKeyProvider(bytes.Repeat([]byte{9}, token.SigningKeySize))
	require.NoError(t, err)
	tokens := token.New(keys)

	reject := func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	return New(tokens, reject), tokens
}

func TestRequireAuth(t *testing.T) {
	guard, tokens := newTestGuard(t)

	valid, err := tokens.Issue(token.NewClaims("alice", time.Hour, false))
	require.NoError(t, err)
	expired, err := tokens.Issue(token.NewClaims("alice", -time.Minute, false))
	require.NoError(t, err)

	var observed *token.Claims
	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		observed = claims
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name          string
		authorization string
		wantStatus    int
		wantSubject   string
	}{
		{
			name:          "bearer_prefix",
			authorization: "Bearer " + valid,
			wantStatus:    http.StatusOK,
			wantSubject:   "alice",
		},
		{
			name:          "bare_token",
			authorization: valid,
			wantStatus:    http.StatusOK,
			wantSubject:   "alice",
		},
		{
			name:          "missing_header",
			authorization: "",
			wantStatus:    http.StatusUnauthorized,
		},
		{
			name:          "garbage_token",
			authorization: "Bearer not-a-token",
			wantStatus:    http.StatusUnauthorized,
		},
		{
			name:          "expired_token",
			authorization: "Bearer " + expired,
			wantStatus:    http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			observed = nil

			request := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if testCase.authorization != "" {
				request.Header.Set("Authorization", testCase.authorization)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.wantStatus, recorder.Code)
			if testCase.wantSubject != "" {
				require.NotNil(t, observed)
				assert.Equal(t, testCase.wantSubject, observed.Subject)
			} else {
				assert.Nil(t, observed)
			}
		})
	}
}

func TestClaimsFromContextWithoutGuard(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	claims, ok := ClaimsFromContext(request.Context())
	assert.False(t, ok)
	assert.Nil(t, claims)
}
