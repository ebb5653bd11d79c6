// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service reads from the environment. TTLs use
// Go duration syntax; a zero session TTL means sessions only end on logout.
type Config struct {
	Addr        string `env:"ZKVAULT_ADDR"        envDefault:":9000"`
	Environment string `env:"ZKVAULT_ENV"         envDefault:"development"`
	RedisURL    string `env:"ZKVAULT_REDIS_URL"`
	SentryDSN   string `env:"ZKVAULT_SENTRY_DSN"`

	// Group selects the arithmetic backend: secp256k1, modp2048 or demo.
	Group string `env:"ZKVAULT_GROUP" envDefault:"secp256k1"`

	// TokenFormat selects the session token flavor: opaque or jwt.
	TokenFormat string `env:"ZKVAULT_TOKEN_FORMAT" envDefault:"opaque"`

	// ChallengeBinding derives the effective challenge as H(c||R||Y) mod n
	// instead of using the server's raw c.
	ChallengeBinding bool `env:"ZKVAULT_CHALLENGE_BINDING" envDefault:"true"`

	ChallengeTTL  time.Duration `env:"ZKVAULT_CHALLENGE_TTL"  envDefault:"120s"`
	SessionTTL    time.Duration `env:"ZKVAULT_SESSION_TTL"    envDefault:"0"`
	MaxAttempts   int           `env:"ZKVAULT_MAX_ATTEMPTS"   envDefault:"5"`
	BlockDuration time.Duration `env:"ZKVAULT_BLOCK_DURATION" envDefault:"15m"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Group {
	case "secp256k1", "modp2048", "demo":
	default:
		return nil, fmt.Errorf("unknown group %q", cfg.Group)
	}
	switch cfg.TokenFormat {
	case "opaque", "jwt":
	default:
		return nil, fmt.Errorf("unknown token format %q", cfg.TokenFormat)
	}
	return &cfg, nil
}
