package levels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrDipBot/internal/domain"
)

// constantKlines builds count candles with fixed high/low/close.
func constantKlines(count int, high, low, close float64) []*domain.Kline {
	klines := make([]*domain.Kline, count)
	baseTime := time.Now().Add(-time.Duration(count) * time.Hour)
	for i := 0; i < count; i++ {
		klines[i] = &domain.Kline{
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			OpenTime:  baseTime.Add(time.Duration(i) * time.Hour),
			CloseTime: baseTime.Add(time.Duration(i+1) * time.Hour),
			Open:      close,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    100.0,
		}
	}
	return klines
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid defaults",
			cfg:     Config{Period: DefaultPeriod, Multiplier: DefaultMultiplier, PricePrecision: DefaultPricePrecision},
			wantErr: false,
		},
		{
			name:    "zero period",
			cfg:     Config{Period: 0, Multiplier: 1.5, PricePrecision: 2},
			wantErr: true,
		},
		{
			name:    "negative multiplier",
			cfg:     Config{Period: 14, Multiplier: -1, PricePrecision: 2},
			wantErr: true,
		},
		{
			name:    "negative precision",
			cfg:     Config{Period: 14, Multiplier: 1.5, PricePrecision: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, calc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, calc)
			}
		})
	}
}

func TestBuyTrigger_InsufficientData(t *testing.T) {
	calc, err := New(Config{Period: 14, Multiplier: 1.5, PricePrecision: 2})
	require.NoError(t, err)

	// Every length below the required window yields no trigger.
	for count := 0; count < calc.RequiredDataPoints(); count++ {
		price, ok := calc.BuyTrigger(constantKlines(count, 105, 95, 100))
		assert.False(t, ok, "count=%d", count)
		assert.Zero(t, price, "count=%d", count)
	}
}

func TestBuyTrigger_ConstantRange(t *testing.T) {
	calc, err := New(Config{Period: 14, Multiplier: 1.5, PricePrecision: 2})
	require.NoError(t, err)

	// 20 periods of high=105, low=95, close=100: every true range is 10,
	// so the ATR converges to exactly 10 and the trigger is 100 - 1.5*10.
	klines := constantKlines(20, 105, 95, 100)

	atr, ok := calc.ATR(klines)
	require.True(t, ok)
	assert.InDelta(t, 10.0, atr, 1e-9)

	price, ok := calc.BuyTrigger(klines)
	require.True(t, ok)
	assert.Equal(t, 85.00, price)
}

func TestBuyTrigger_Deterministic(t *testing.T) {
	calc, err := New(Config{Period: 14, Multiplier: 1.5, PricePrecision: 2})
	require.NoError(t, err)

	klines := constantKlines(30, 110, 90, 100)
	first, ok1 := calc.BuyTrigger(klines)
	second, ok2 := calc.BuyTrigger(klines)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestBuyTrigger_NonPositivePrice(t *testing.T) {
	calc, err := New(Config{Period: 14, Multiplier: 1.5, PricePrecision: 2})
	require.NoError(t, err)

	// Volatility so large that close - 1.5*ATR goes negative: no signal.
	klines := constantKlines(20, 200, 1, 2)
	price, ok := calc.BuyTrigger(klines)
	assert.False(t, ok)
	assert.Zero(t, price)
}

func TestBuyTrigger_Rounding(t *testing.T) {
	calc, err := New(Config{Period: 14, Multiplier: 1.5, PricePrecision: 2})
	require.NoError(t, err)

	// TR is constant 3.333..., trigger = 100 - 5.0 = 95.00 after rounding.
	klines := constantKlines(20, 101.6667, 98.3334, 100)
	price, ok := calc.BuyTrigger(klines)
	require.True(t, ok)
	assert.InDelta(t, 95.00, price, 0.01)
	// Result carries at most two decimals.
	assert.Equal(t, price, float64(int(price*100))/100)
}
