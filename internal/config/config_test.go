package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("RCON_TIMEOUT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Second, cfg.RCONTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.DockerEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("RCON_TIMEOUT", "2s")
	t.Setenv("DOCKER_ENABLED", "true")
	t.Setenv("CORS_ORIGINS", "https://ivshop.pl, https://panel.ivshop.pl,")
	t.Setenv("REDEEM_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.RCONTimeout)
	assert.True(t, cfg.DockerEnabled)
	assert.Equal(t, []string{"https://ivshop.pl", "https://panel.ivshop.pl"}, cfg.CORSOrigins)
	assert.Equal(t, 10, cfg.RedeemRateLimit)
}

func TestValidate_JWTSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		err    error
	}{
		{"unset", "", ErrMissingJWTSecret},
		{"too short", "change-me", ErrMissingJWTSecret},
		{"strong", "0123456789abcdef0123456789abcdef", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.JWTSecret)
			if tt.err != nil {
				assert.ErrorIs(t, cfg.Validate(), tt.err)
				return
			}
			assert.NoError(t, cfg.Validate())
		})
	}
}
