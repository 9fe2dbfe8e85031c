package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"atrDipBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// SizingMode selects how order quantities are derived.
type SizingMode string

const (
	SizingFixed          SizingMode = "fixed"
	SizingBalancePercent SizingMode = "balance_percent"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	Symbol              string
	QuoteAsset          string
	SizingMode          SizingMode
	Quantity            float64 // Fixed-quantity mode
	BalancePercent      float64 // Balance-percentage mode
	TargetProfitPercent float64
	CommissionPercent   float64
	MinNotional         float64

	// Level Parameters
	ATRPeriod     int
	ATRMultiplier float64
	KlineInterval string
	KlineLimit    int

	// Loop timing
	PollInterval    time.Duration
	BackoffInterval time.Duration

	// Sell placement retry after a buy fill
	SellRetryMaxAttempts int

	// Notifications (optional; empty disables the notifier)
	TelegramToken  string
	TelegramChatID string

	// Database (empty disables trade recording)
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Trading Parameters
	cfg.Symbol = getEnv("SYMBOL", "BTCUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")
	if cfg.QuoteAsset == "" {
		errs = append(errs, "QUOTE_ASSET must be set")
	}

	// Exactly one sizing mode must be configured.
	cfg.Quantity, err = getEnvAsFloatRequired("QUANTITY", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid QUANTITY: %v", err))
	}
	cfg.BalancePercent, err = getEnvAsFloatRequired("BALANCE_PERCENT", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BALANCE_PERCENT: %v", err))
	}
	switch {
	case cfg.Quantity > 0 && cfg.BalancePercent > 0:
		errs = append(errs, "QUANTITY and BALANCE_PERCENT are mutually exclusive; set only one")
	case cfg.Quantity > 0:
		cfg.SizingMode = SizingFixed
	case cfg.BalancePercent > 0:
		cfg.SizingMode = SizingBalancePercent
		if cfg.BalancePercent > 100 {
			errs = append(errs, "BALANCE_PERCENT must not exceed 100")
		}
	default:
		errs = append(errs, "either QUANTITY or BALANCE_PERCENT must be set")
	}

	cfg.TargetProfitPercent, err = getEnvAsFloatRequired("TARGET_PROFIT_PERCENT", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TARGET_PROFIT_PERCENT: %v", err))
	} else if cfg.TargetProfitPercent <= 0 {
		errs = append(errs, "TARGET_PROFIT_PERCENT must be positive")
	}

	cfg.CommissionPercent, err = getEnvAsFloatRequired("COMMISSION_PERCENT", 0.1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COMMISSION_PERCENT: %v", err))
	} else if cfg.CommissionPercent < 0 {
		errs = append(errs, "COMMISSION_PERCENT cannot be negative")
	}

	cfg.MinNotional, err = getEnvAsFloatRequired("MIN_NOTIONAL", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_NOTIONAL: %v", err))
	} else if cfg.MinNotional < 0 {
		errs = append(errs, "MIN_NOTIONAL cannot be negative")
	}

	// Level Parameters (using defaults if not set)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 14)
	cfg.ATRMultiplier = getEnvAsFloat("ATR_MULTIPLIER", 1.5)
	if cfg.ATRPeriod <= 0 {
		errs = append(errs, "ATR_PERIOD must be positive")
	}
	if cfg.ATRMultiplier <= 0 {
		errs = append(errs, "ATR_MULTIPLIER must be positive")
	}
	cfg.KlineInterval = getEnv("KLINE_INTERVAL", "1h")
	cfg.KlineLimit = getEnvAsInt("KLINE_LIMIT", 100)
	if cfg.KlineLimit <= cfg.ATRPeriod {
		errs = append(errs, "KLINE_LIMIT must exceed ATR_PERIOD")
	}

	// Loop timing
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 30)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	backoffSeconds := getEnvAsInt("BACKOFF_INTERVAL_SECONDS", 60)
	if backoffSeconds <= 0 {
		errs = append(errs, "BACKOFF_INTERVAL_SECONDS must be positive")
	}
	cfg.BackoffInterval = time.Duration(backoffSeconds) * time.Second

	cfg.SellRetryMaxAttempts = getEnvAsInt("SELL_RETRY_MAX_ATTEMPTS", 10)
	if cfg.SellRetryMaxAttempts <= 0 {
		errs = append(errs, "SELL_RETRY_MAX_ATTEMPTS must be positive")
	}

	// Notifications: absence is not an error, the notifier is simply disabled.
	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/atrdipbot.db")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// NotifierEnabled reports whether Telegram delivery is fully configured.
func (c *Config) NotifierEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
