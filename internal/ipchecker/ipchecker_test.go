package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadCIDR(t *testing.T) {
	checker, err := New("not a subnet")
	assert.Error(t, err)
	assert.Nil(t, checker)
}

func TestIsTrusted(t *testing.T) {
	testCases := []struct {
		name          string
		trustedSubnet string
		realIP        string
		remoteAddr    string
		want          bool
	}{
		{
			name:          "real_ip_inside_subnet",
			trustedSubnet: "10.0.0.0/8",
			realIP:        "10.1.2.3",
			remoteAddr:    "203.0.113.1:4242",
			want:          true,
		},
		{
			name:          "real_ip_outside_subnet",
			trustedSubnet: "10.0.0.0/8",
			realIP:        "192.168.0.1",
			remoteAddr:    "10.1.2.3:4242",
			want:          false,
		},
		{
			name:          "remote_addr_fallback",
			trustedSubnet: "10.0.0.0/8",
			remoteAddr:    "10.1.2.3:4242",
			want:          true,
		},
		{
			name:          "unparseable_real_ip",
			trustedSubnet: "10.0.0.0/8",
			realIP:        "not an ip",
			remoteAddr:    "10.1.2.3:4242",
			want:          false,
		},
		{
			name:          "disabled_checker_trusts_nothing",
			trustedSubnet: "",
			realIP:        "10.1.2.3",
			remoteAddr:    "10.1.2.3:4242",
			want:          false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			checker, err := New(testCase.trustedSubnet)
			require.NoError(t, err)

			request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			request.RemoteAddr = testCase.remoteAddr
			if testCase.realIP != "" {
				request.Header.Set("X-Real-IP", testCase.realIP)
			}

			assert.Equal(t, testCase.want, checker.IsTrusted(request))
		})
	}
}

func TestRequireTrusted(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	handler := checker.RequireTrusted(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("trusted", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		request.Header.Set("X-Real-IP", "10.1.2.3")
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("untrusted", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		request.Header.Set("X-Real-IP", "203.0.113.1")
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}
