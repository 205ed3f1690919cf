package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	SessionModeJWT    = "jwt"
	SessionModeOpaque = "opaque"
)

// Config holds the service settings read from the environment
type Config struct {
	ListenAddr        string
	RedisURL          string
	SessionMode       string
	SessionTTL        time.Duration
	ChallengeMaxAge   time.Duration
	ClockSkew         time.Duration
	JWTSigningKeyFile string
	RateLimitRPS      float64
	RateLimitBurst    int
	Debug             bool
}

// Default returns the settings used when no variable is set
func Default() Config {
	return Config{
		ListenAddr:      ":9000",
		SessionMode:     SessionModeJWT,
		SessionTTL:      24 * time.Hour,
		ChallengeMaxAge: 5 * time.Minute,
		ClockSkew:       time.Minute,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
	}
}

// Load reads the configuration from the process environment
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup, which behaves like os.LookupEnv
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup("LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		cfg.RedisURL = v
	}
	if v, ok := lookup("SESSION_MODE"); ok && v != "" {
		cfg.SessionMode = v
	}
	if v, ok := lookup("JWT_SIGNING_KEY_FILE"); ok {
		cfg.JWTSigningKeyFile = v
	}

	var err error
	if cfg.SessionTTL, err = duration(lookup, "SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.ChallengeMaxAge, err = duration(lookup, "CHALLENGE_MAX_AGE", cfg.ChallengeMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.ClockSkew, err = duration(lookup, "CLOCK_SKEW", cfg.ClockSkew); err != nil {
		return Config{}, err
	}

	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		if cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok && v != "" {
		if cfg.RateLimitBurst, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
	}
	if v, ok := lookup("LOG_DEBUG"); ok && v != "" {
		if cfg.Debug, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("LOG_DEBUG: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address cannot be empty")
	}
	if c.SessionMode != SessionModeJWT && c.SessionMode != SessionModeOpaque {
		return fmt.Errorf("unknown session mode %q", c.SessionMode)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.ChallengeMaxAge <= 0 {
		return errors.New("challenge max age must be positive")
	}
	if c.ClockSkew < 0 {
		return errors.New("clock skew cannot be negative")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("rate limit settings cannot be negative")
	}
	return nil
}

func duration(lookup func(string) (string, bool), key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
