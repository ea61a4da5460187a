package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "vestibule")
	t.Setenv("DB_PASSWORD", "test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
		{"SessionTimeout", cfg.Session.Timeout, 1800 * time.Second},
		{"DBIdleTeardown", cfg.Database.MaxConnIdleTime, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.actual)
		})
	}

	assert.Equal(t, "postgres", cfg.Session.Store)
	assert.Equal(t, "vestibule_session", cfg.Session.CookieName)
	assert.Equal(t, "none", cfg.Mail.Driver)
	assert.False(t, cfg.Session.CookieSecure)
}

func TestLoad_SessionTimeoutSeconds(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TIMEOUT_LIMIT", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Session.Timeout)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_NonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "zero session timeout", key: "SESSION_TIMEOUT_LIMIT", value: "0", wantErr: "SESSION_TIMEOUT_LIMIT"},
		{name: "negative session timeout", key: "SESSION_TIMEOUT_LIMIT", value: "-5", wantErr: "SESSION_TIMEOUT_LIMIT"},
		{name: "zero cleanup interval", key: "CLEANUP_INTERVAL", value: "0s", wantErr: "CLEANUP_INTERVAL"},
		{name: "negative cleanup interval", key: "CLEANUP_INTERVAL", value: "-1m", wantErr: "CLEANUP_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingPassword(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoad_RedisStoreRequiresURL(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_STORE", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Session.Store)
}

func TestLoad_UnknownMailDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("MAIL_DRIVER", "carrier-pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TrustedProxies(t *testing.T) {
	setRequired(t)
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.1 , ,192.168.0.0/16")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.Server.TrustedProxies)
}

func TestLoad_ProductionForcesSecureCookie(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Session.CookieSecure)
}
