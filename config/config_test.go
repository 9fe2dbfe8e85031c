package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBaseEnv establishes a minimal valid environment; tests override
// individual keys on top of it.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BINANCE_API_KEY", "test-key")
	t.Setenv("BINANCE_API_SECRET", "test-secret")
	t.Setenv("QUANTITY", "0.5")
	t.Setenv("BALANCE_PERCENT", "")
	t.Setenv("SYMBOL", "")
	t.Setenv("QUOTE_ASSET", "")
	t.Setenv("TARGET_PROFIT_PERCENT", "")
	t.Setenv("COMMISSION_PERCENT", "")
	t.Setenv("MIN_NOTIONAL", "")
	t.Setenv("ATR_PERIOD", "")
	t.Setenv("ATR_MULTIPLIER", "")
	t.Setenv("KLINE_INTERVAL", "")
	t.Setenv("KLINE_LIMIT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("BACKOFF_INTERVAL_SECONDS", "")
	t.Setenv("SELL_RETRY_MAX_ATTEMPTS", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("IS_TESTNET", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, SizingFixed, cfg.SizingMode)
	assert.Equal(t, 0.5, cfg.Quantity)
	assert.Equal(t, 1.0, cfg.TargetProfitPercent)
	assert.Equal(t, 0.1, cfg.CommissionPercent)
	assert.Equal(t, 10.0, cfg.MinNotional)
	assert.Equal(t, 14, cfg.ATRPeriod)
	assert.Equal(t, 1.5, cfg.ATRMultiplier)
	assert.Equal(t, "1h", cfg.KlineInterval)
	assert.Equal(t, 100, cfg.KlineLimit)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.BackoffInterval)
	assert.Equal(t, 10, cfg.SellRetryMaxAttempts)
	assert.False(t, cfg.NotifierEnabled())
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")
	assert.Contains(t, err.Error(), "BINANCE_API_SECRET")
}

func TestLoadConfig_SizingModes(t *testing.T) {
	t.Run("balance percent mode", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("QUANTITY", "")
		t.Setenv("BALANCE_PERCENT", "25")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, SizingBalancePercent, cfg.SizingMode)
		assert.Equal(t, 25.0, cfg.BalancePercent)
	})

	t.Run("both modes set is rejected", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("QUANTITY", "0.5")
		t.Setenv("BALANCE_PERCENT", "25")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("neither mode set is rejected", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("QUANTITY", "")
		t.Setenv("BALANCE_PERCENT", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "either QUANTITY or BALANCE_PERCENT")
	})

	t.Run("balance percent above 100 is rejected", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("QUANTITY", "")
		t.Setenv("BALANCE_PERCENT", "150")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not exceed 100")
	})
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{name: "non-numeric quantity", key: "QUANTITY", value: "abc", wantMsg: "invalid QUANTITY"},
		{name: "zero profit target", key: "TARGET_PROFIT_PERCENT", value: "0", wantMsg: "TARGET_PROFIT_PERCENT must be positive"},
		{name: "negative commission", key: "COMMISSION_PERCENT", value: "-1", wantMsg: "COMMISSION_PERCENT cannot be negative"},
		{name: "kline limit below period", key: "KLINE_LIMIT", value: "10", wantMsg: "KLINE_LIMIT must exceed ATR_PERIOD"},
		{name: "zero poll interval", key: "POLL_INTERVAL_SECONDS", value: "0", wantMsg: "POLL_INTERVAL_SECONDS must be positive"},
		{name: "zero retry budget", key: "SELL_RETRY_MAX_ATTEMPTS", value: "0", wantMsg: "SELL_RETRY_MAX_ATTEMPTS must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_NotifierEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.NotifierEnabled())

	cfg.TelegramChatID = ""
	assert.False(t, cfg.NotifierEnabled())
}
