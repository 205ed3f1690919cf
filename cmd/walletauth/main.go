package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/floppfun/walletauth/adapters/events"
	"github.com/floppfun/walletauth/adapters/store"
	"github.com/floppfun/walletauth/adapters/tokenizer"
	"github.com/floppfun/walletauth/config"
	"github.com/floppfun/walletauth/core"
	"github.com/floppfun/walletauth/ports"
	"github.com/floppfun/walletauth/service"
	transport "github.com/floppfun/walletauth/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := watermill.NewStdLogger(cfg.Debug, false)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Service stopped", err, nil)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger watermill.LoggerAdapter) error {
	signKey, err := loadSigningKey(cfg.JWTSigningKeyFile)
	if err != nil {
		return err
	}
	if cfg.JWTSigningKeyFile == "" && cfg.SessionMode == config.SessionModeJWT {
		logger.Info("No signing key configured, sessions will not survive a restart", nil)
	}

	var (
		challenges ports.ChallengeStore
		sessions   ports.SessionStore
		eventPub   ports.EventPublisher = events.NopPublisher{}
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}

		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach Redis: %w", err)
		}

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		defer publisher.Close()

		rs := store.NewRedisStore(redisClient)
		challenges, sessions = rs, rs
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		logger.Info("REDIS_URL not set, using in-memory stores", nil)

		mem := store.NewMemoryStore()
		go mem.RunSweeper(ctx, time.Minute)
		challenges, sessions = mem, mem
	}

	var tok ports.Tokenizer
	switch cfg.SessionMode {
	case config.SessionModeOpaque:
		tok = tokenizer.NewOpaqueTokenizer(sessions)
	default:
		tok = tokenizer.NewJWTTokenizer(signKey)
	}

	authService := service.NewAuthService(tok, challenges, sessions, eventPub,
		service.WithReplayGuard(core.ReplayGuard{MaxAge: cfg.ChallengeMaxAge, ClockSkew: cfg.ClockSkew}),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithLogger(logger),
	)

	var limiter *transport.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = transport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           transport.SetupRouter(authService, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", watermill.LogFields{"addr": cfg.ListenAddr, "session_mode": cfg.SessionMode})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down", nil)
	return srv.Shutdown(shutdownCtx)
}

// loadSigningKey reads a PEM encoded EC key, or generates one when path is empty
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	return key, nil
}
