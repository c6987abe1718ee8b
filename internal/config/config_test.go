package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "http://localhost:8080", cfg.ShortURLBase)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "*", cfg.CORSAllowedOrigin)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Empty(t, cfg.JWTSigningSecretKey)
	assert.Empty(t, cfg.TrustedSubnet)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":3000")
	t.Setenv("BASE_URL", "http://env.example.com")
	t.Setenv("DATABASE_DSN", "env-dsn")
	t.Setenv("JWT_SIGNING_SECRET_KEY", "c2VjcmV0")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")
	t.Setenv("TRUSTED_SUBNET", "10.0.0.0/8")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "http://env.example.com", cfg.ShortURLBase)
	assert.Equal(t, "env-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "c2VjcmV0", cfg.JWTSigningSecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name     string
		envName  string
		envValue string
	}{
		{"bad_run_addr", "SERVER_ADDRESS", "not an address"},
		{"bad_base_url", "BASE_URL", "not a url"},
		{"bad_log_level", "LOG_LEVEL", "verbose"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv(testCase.envName, testCase.envValue)

			cfg, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestValidateLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warning", "error", "fatal"} {
		t.Run(level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", level)

			cfg, err := New(WithDisableFlagsParsing(true))
			require.NoError(t, err)
			assert.Equal(t, level, cfg.LogLevel)
		})
	}
}
