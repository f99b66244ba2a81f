package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://project.supabase.co", cfg.Identity.URL)
	assert.Equal(t, 10*time.Second, cfg.Identity.RequestTimeout)
	assert.Equal(t, "v1", cfg.Legal.TermsVersion)
	assert.Equal(t, "v1", cfg.Legal.PrivacyVersion)
	assert.Empty(t, cfg.Audit.PostgresDSN)
	assert.Empty(t, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	tests := []struct{ name, unset string }{
		{"url", "SUPABASE_URL"},
		{"anon key", "SUPABASE_ANON_KEY"},
		{"service key", "SUPABASE_SERVICE_ROLE_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("KEEPLY_ADDR", ":9090")
	t.Setenv("IDENTITY_REQUEST_TIMEOUT", "2s")
	t.Setenv("LEGAL_TERMS_VERSION", "2026-01")
	t.Setenv("AUDIT_KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("RATELIMIT_REQUESTS", "5")
	t.Setenv("RATELIMIT_WINDOW", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.Identity.RequestTimeout)
	assert.Equal(t, "2026-01", cfg.Legal.TermsVersion)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestFromEnv_InvalidDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("IDENTITY_REQUEST_TIMEOUT", "not-a-duration")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Identity.RequestTimeout)
}
