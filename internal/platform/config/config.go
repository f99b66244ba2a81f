// Package config builds the service configuration from environment
// variables so main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Identity configures access to the upstream identity service. The anon key
// authenticates public signup/login calls; the service key authenticates
// admin visibility checks and profile-store writes.
type Identity struct {
	URL        string
	AnonKey    string
	ServiceKey string
	// JWTSecret verifies access tokens the identity service issues (HS256).
	JWTSecret      string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Legal carries the document versions recorded alongside consent flags.
type Legal struct {
	TermsVersion   string
	PrivacyVersion string
}

// Audit configures the optional registration outcome trail.
type Audit struct {
	// PostgresDSN enables the append-only attempt log when set.
	PostgresDSN string
	// KafkaBrokers enables event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// RateLimit configures the per-identifier auth limiter.
type RateLimit struct {
	// RedisURL enables the shared counter store; empty falls back to the
	// in-process store.
	RedisURL string
	Requests int
	Window   time.Duration
}

// Config is the full server configuration.
type Config struct {
	Addr      string
	Identity  Identity
	Legal     Legal
	Audit     Audit
	RateLimit RateLimit
}

// FromEnv reads configuration from the environment. Identity URL and keys
// are mandatory; everything else has defaults or degrades to disabled.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr: envOr("KEEPLY_ADDR", ":8080"),
		Identity: Identity{
			URL:            os.Getenv("SUPABASE_URL"),
			AnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
			ServiceKey:     os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
			JWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
			ConnectTimeout: envDuration("IDENTITY_CONNECT_TIMEOUT", 5*time.Second),
			RequestTimeout: envDuration("IDENTITY_REQUEST_TIMEOUT", 10*time.Second),
		},
		Legal: Legal{
			TermsVersion:   envOr("LEGAL_TERMS_VERSION", "v1"),
			PrivacyVersion: envOr("LEGAL_PRIVACY_VERSION", "v1"),
		},
		Audit: Audit{
			PostgresDSN:  os.Getenv("AUDIT_POSTGRES_DSN"),
			KafkaBrokers: splitNonEmpty(os.Getenv("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   envOr("AUDIT_KAFKA_TOPIC", "keeply.audit"),
		},
		RateLimit: RateLimit{
			RedisURL: os.Getenv("RATELIMIT_REDIS_URL"),
			Requests: envInt("RATELIMIT_REQUESTS", 30),
			Window:   envDuration("RATELIMIT_WINDOW", time.Minute),
		},
	}

	if cfg.Identity.URL == "" {
		return Config{}, fmt.Errorf("config ausente: SUPABASE_URL")
	}
	if cfg.Identity.AnonKey == "" {
		return Config{}, fmt.Errorf("config ausente: SUPABASE_ANON_KEY")
	}
	if cfg.Identity.ServiceKey == "" {
		return Config{}, fmt.Errorf("config ausente: SUPABASE_SERVICE_ROLE_KEY")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
