package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "SolbetCustody"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSolanaRPCURL   = "https://api.mainnet-beta.solana.com"

	// Amounts are lamports (1 SOL = 1_000_000_000 lamports).
	defaultMinAmount          = int64(1_000_000)      // 0.001 SOL
	defaultMaxSingleAmount    = int64(50_000_000_000) // 50 SOL
	defaultDailyLimit         = int64(100_000_000_000)
	defaultHouseWalletReserve = int64(1_000_000_000)

	defaultConfirmationTimeout = 60 * time.Second
	defaultSubmitRetries       = 3
	defaultSweepInterval       = 5 * time.Minute
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Settlement engine options.
	SolanaRPCURL        string
	HouseWalletKey      string // base58-encoded ed25519 secret key
	MinAmount           int64
	MaxSingleAmount     int64
	DailyWithdrawLimit  int64
	DailyTransferLimit  int64
	HouseWalletReserve  int64
	ConfirmationTimeout time.Duration
	SubmitRetries       int
	LimitFailClosed     bool
	SweepInterval       time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,

		SolanaRPCURL:        getEnv("SOLANA_RPC_URL", defaultSolanaRPCURL),
		HouseWalletKey:      os.Getenv("HOUSE_WALLET_KEY"),
		MinAmount:           defaultMinAmount,
		MaxSingleAmount:     defaultMaxSingleAmount,
		DailyWithdrawLimit:  defaultDailyLimit,
		DailyTransferLimit:  defaultDailyLimit,
		HouseWalletReserve:  defaultHouseWalletReserve,
		ConfirmationTimeout: defaultConfirmationTimeout,
		SubmitRetries:       defaultSubmitRetries,
		SweepInterval:       defaultSweepInterval,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmationTimeout, err = durationEnv("CONFIRMATION_TIMEOUT", cfg.ConfirmationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationEnv("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return Config{}, err
	}

	if cfg.MinAmount, err = int64Env("MIN_AMOUNT", cfg.MinAmount); err != nil {
		return Config{}, err
	}
	if cfg.MaxSingleAmount, err = int64Env("MAX_SINGLE_AMOUNT", cfg.MaxSingleAmount); err != nil {
		return Config{}, err
	}

	daily, err := int64Env("DAILY_LIMIT", defaultDailyLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.DailyWithdrawLimit = daily
	cfg.DailyTransferLimit = daily
	if cfg.DailyWithdrawLimit, err = int64Env("DAILY_WITHDRAW_LIMIT", cfg.DailyWithdrawLimit); err != nil {
		return Config{}, err
	}
	if cfg.DailyTransferLimit, err = int64Env("DAILY_TRANSFER_LIMIT", cfg.DailyTransferLimit); err != nil {
		return Config{}, err
	}

	if cfg.HouseWalletReserve, err = int64Env("HOUSE_WALLET_RESERVE", cfg.HouseWalletReserve); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("MAX_SUBMIT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid MAX_SUBMIT_RETRIES: %q", v)
		}
		cfg.SubmitRetries = n
	}

	if v := os.Getenv("LIMIT_FAIL_CLOSED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LIMIT_FAIL_CLOSED: %q", v)
		}
		cfg.LimitFailClosed = b
	}

	if cfg.MinAmount <= 0 || cfg.MaxSingleAmount < cfg.MinAmount {
		return Config{}, fmt.Errorf("amount bounds misconfigured: min=%d max=%d", cfg.MinAmount, cfg.MaxSingleAmount)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.HouseWalletKey == "" {
		return Config{}, fmt.Errorf("HOUSE_WALLET_KEY must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// DailyLimit returns the configured daily cap for a settlement kind.
func (c Config) DailyLimit(kind string) int64 {
	if kind == "internal_transfer" {
		return c.DailyTransferLimit
	}
	return c.DailyWithdrawLimit
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
