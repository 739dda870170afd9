// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Authentication backend identifiers accepted by REVIEWDESK_AUTH_BACKEND.
const (
	AuthBackendBuiltin = "builtin"
	AuthBackendDigest  = "digest"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	AuthBackend   string
	DigestFile    string
	DigestRealm   string
	GitHubToken   string
	SessionTTL    time.Duration
	SecureCookies bool
}

// HasGitHubToken returns true when a GitHub token is configured. Without one
// changeset lookups still work against public repositories, at a much lower
// rate limit.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional:
// REVIEWDESK_LISTEN_ADDR (127.0.0.1:8080), REVIEWDESK_DB_PATH (reviewdesk.db),
// REVIEWDESK_AUTH_BACKEND (builtin), REVIEWDESK_DIGEST_FILE (required for digest),
// REVIEWDESK_DIGEST_REALM (reviewdesk), REVIEWDESK_GITHUB_TOKEN,
// REVIEWDESK_SESSION_TTL (336h), REVIEWDESK_SECURE_COOKIES (false).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  "127.0.0.1:8080",
		DBPath:      "reviewdesk.db",
		AuthBackend: AuthBackendBuiltin,
		DigestRealm: "reviewdesk",
		GitHubToken: os.Getenv("REVIEWDESK_GITHUB_TOKEN"),
		SessionTTL:  14 * 24 * time.Hour,
	}

	if v, ok := os.LookupEnv("REVIEWDESK_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("REVIEWDESK_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("REVIEWDESK_AUTH_BACKEND"); ok && v != "" {
		switch v {
		case AuthBackendBuiltin, AuthBackendDigest:
			cfg.AuthBackend = v
		default:
			return nil, fmt.Errorf("REVIEWDESK_AUTH_BACKEND must be %q or %q, got %q", AuthBackendBuiltin, AuthBackendDigest, v)
		}
	}

	cfg.DigestFile = os.Getenv("REVIEWDESK_DIGEST_FILE")
	if cfg.AuthBackend == AuthBackendDigest && cfg.DigestFile == "" {
		return nil, fmt.Errorf("REVIEWDESK_DIGEST_FILE is required when REVIEWDESK_AUTH_BACKEND is %q", AuthBackendDigest)
	}

	if v, ok := os.LookupEnv("REVIEWDESK_DIGEST_REALM"); ok && v != "" {
		cfg.DigestRealm = v
	}

	if v, ok := os.LookupEnv("REVIEWDESK_SESSION_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWDESK_SESSION_TTL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("REVIEWDESK_SESSION_TTL must be positive, got %s", parsed)
		}
		cfg.SessionTTL = parsed
	}

	if v, ok := os.LookupEnv("REVIEWDESK_SECURE_COOKIES"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWDESK_SECURE_COOKIES has invalid boolean %q: %w", v, err)
		}
		cfg.SecureCookies = parsed
	}

	return cfg, nil
}
