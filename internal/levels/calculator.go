package levels

import (
	"fmt"
	"math"

	"atrDipBot/internal/domain"
)

const (
	// DefaultPeriod is the ATR lookback window.
	DefaultPeriod = 14
	// DefaultMultiplier scales the ATR below the last close to form the buy trigger.
	DefaultMultiplier = 1.5
	// DefaultPricePrecision is the quote-currency display precision.
	DefaultPricePrecision = 2
)

// Config holds parameters for the level calculator.
type Config struct {
	Period         int     // ATR window, e.g. 14
	Multiplier     float64 // e.g. 1.5
	PricePrecision int     // Decimal digits for the trigger price
}

// Calculator derives a limit buy trigger price from candle history using
// the Average True Range volatility band.
type Calculator struct {
	cfg Config
}

// New creates a new Calculator instance.
func New(cfg Config) (*Calculator, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("ATR period must be positive, got %d", cfg.Period)
	}
	if cfg.Multiplier <= 0 {
		return nil, fmt.Errorf("ATR multiplier must be positive, got %f", cfg.Multiplier)
	}
	if cfg.PricePrecision < 0 {
		return nil, fmt.Errorf("price precision cannot be negative, got %d", cfg.PricePrecision)
	}
	return &Calculator{cfg: cfg}, nil
}

// RequiredDataPoints returns the minimum number of klines needed to
// produce a trigger.
func (c *Calculator) RequiredDataPoints() int {
	return c.cfg.Period + 1
}

// BuyTrigger computes the buy trigger price for the given kline history
// (ordered oldest first). It returns ok=false when the history is too
// short or the derived price is not positive; that is "no signal", not an
// error.
func (c *Calculator) BuyTrigger(klines []*domain.Kline) (float64, bool) {
	if len(klines) < c.RequiredDataPoints() {
		return 0, false
	}

	atr := c.atr(klines)
	lastClose := klines[len(klines)-1].Close
	price := roundTo(lastClose-c.cfg.Multiplier*atr, c.cfg.PricePrecision)
	if price <= 0 {
		return 0, false
	}
	return price, true
}

// ATR computes the Average True Range over the trailing window.
// It returns ok=false when the history is shorter than the window.
func (c *Calculator) ATR(klines []*domain.Kline) (float64, bool) {
	if len(klines) < c.RequiredDataPoints() {
		return 0, false
	}
	return c.atr(klines), true
}

// atr uses Wilder's smoothing: the first ATR is a simple average of the
// first 'period' true ranges, subsequent values apply
// atr = (atr*(period-1) + tr) / period.
func (c *Calculator) atr(klines []*domain.Kline) float64 {
	period := c.cfg.Period

	trueRanges := make([]float64, len(klines))

	// First TR is just the high-low range
	trueRanges[0] = klines[0].High - klines[0].Low

	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)

		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(klines); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.Round(v*scale) / scale
}
