package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zkvault/zkvault/adapters/directory"
	"github.com/zkvault/zkvault/adapters/events"
	"github.com/zkvault/zkvault/adapters/store"
	"github.com/zkvault/zkvault/adapters/tokenizer"
	"github.com/zkvault/zkvault/adapters/vault"
	"github.com/zkvault/zkvault/config"
	"github.com/zkvault/zkvault/group"
	"github.com/zkvault/zkvault/observability"
	"github.com/zkvault/zkvault/ports"
	"github.com/zkvault/zkvault/service"
	transport "github.com/zkvault/zkvault/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger()
	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}
	defer observability.FlushSentry()

	var grp group.Group
	switch cfg.Group {
	case "modp2048":
		grp = group.ModP2048()
	case "demo":
		grp = group.Demo1019()
	default:
		grp = group.NewSecp256k1()
	}

	svcCfg := service.Config{
		Group:            grp,
		Logger:           logger,
		ChallengeTTL:     cfg.ChallengeTTL,
		SessionTTL:       cfg.SessionTTL,
		MaxAttempts:      cfg.MaxAttempts,
		BlockDuration:    cfg.BlockDuration,
		ChallengeBinding: cfg.ChallengeBinding,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}

		svcCfg.Directory = directory.NewRedisDirectory(client)
		svcCfg.Vault = vault.NewRedisVault(client)
		svcCfg.Challenges = store.NewRedisChallengeStore(client)
		svcCfg.Sessions = store.NewRedisSessionStore(client)
		svcCfg.Attempts = store.NewRedisAttemptStore(client)
		svcCfg.Events = events.NewWatermillPublisher(publisher)
	} else {
		logger.Warn("redis_not_configured", map[string]any{"mode": "in-memory, single instance"})
		svcCfg.Directory = directory.NewMemoryDirectory()
		svcCfg.Vault = vault.NewMemoryVault()
		svcCfg.Challenges = store.NewMemoryChallengeStore()
		svcCfg.Sessions = store.NewMemorySessionStore()
		svcCfg.Attempts = store.NewMemoryAttemptStore()
	}

	svcCfg.Tokenizer = buildTokenizer(cfg)

	authService := service.NewAuthService(svcCfg)
	router := transport.SetupRouter(authService)

	logger.Info("server_starting", map[string]any{
		"addr":    cfg.Addr,
		"group":   grp.Name(),
		"tokens":  cfg.TokenFormat,
		"binding": cfg.ChallengeBinding,
	})
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildTokenizer(cfg *config.Config) ports.Tokenizer {
	if cfg.TokenFormat != "jwt" {
		return tokenizer.NewOpaqueTokenizer()
	}
	// An ephemeral signing key means JWTs from before a restart stop
	// verifying; load a persistent key here when that matters.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}
	return tokenizer.NewJWTTokenizer(signKey)
}
