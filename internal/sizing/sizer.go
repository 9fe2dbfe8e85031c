package sizing

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"atrDipBot/internal/domain"
	"atrDipBot/internal/ports"
)

// Fixed returns the configured quantity verbatim for every order.
type Fixed struct {
	Qty float64
}

// NewFixed creates a fixed-quantity sizer.
func NewFixed(qty float64) (*Fixed, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("fixed quantity must be positive, got %f", qty)
	}
	return &Fixed{Qty: qty}, nil
}

// Quantity implements ports.Sizer.
func (f *Fixed) Quantity(ctx context.Context, buyPrice float64) (float64, error) {
	return f.Qty, nil
}

// BalancePercentConfig holds parameters for the balance-percentage sizer.
type BalancePercentConfig struct {
	QuoteAsset  string  // Asset whose free balance funds buys, e.g. "USDT"
	Percent     float64 // Allocation percentage of the free balance
	MinNotional float64 // Reject spends below this quote amount
}

// BalancePercent sizes each order as a percentage of the free quote
// balance, floored to the exchange's lot step.
type BalancePercent struct {
	cfg      BalancePercentConfig
	exchange ports.ExchangeClient
	symbol   string
	logger   ports.Logger

	mu  sync.Mutex
	lot *domain.LotSize // Cached after first successful fetch
}

// NewBalancePercent creates a balance-percentage sizer.
func NewBalancePercent(cfg BalancePercentConfig, symbol string, exchange ports.ExchangeClient, logger ports.Logger) (*BalancePercent, error) {
	if exchange == nil || logger == nil {
		return nil, fmt.Errorf("exchange and logger are required for balance-percent sizer")
	}
	if cfg.Percent <= 0 || cfg.Percent > 100 {
		return nil, fmt.Errorf("balance percent must be in (0, 100], got %f", cfg.Percent)
	}
	if cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("quote asset is required for balance-percent sizer")
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required for balance-percent sizer")
	}
	return &BalancePercent{cfg: cfg, exchange: exchange, symbol: symbol, logger: logger}, nil
}

// Quantity implements ports.Sizer. It returns ports.ErrBelowMinNotional
// when the allocated spend is below the minimum tradable notional and
// ports.ErrBelowMinQty when the lot-floored quantity is below the
// exchange minimum. Both mean "skip this cycle".
func (b *BalancePercent) Quantity(ctx context.Context, buyPrice float64) (float64, error) {
	if buyPrice <= 0 {
		return 0, fmt.Errorf("%w: buy price must be positive, got %f", ports.ErrInvalidRequest, buyPrice)
	}

	balance, err := b.exchange.GetQuoteBalance(ctx, b.cfg.QuoteAsset)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s balance: %w", b.cfg.QuoteAsset, err)
	}

	spend := balance * (b.cfg.Percent / 100)
	if spend < b.cfg.MinNotional {
		b.logger.Warn(ctx, "Allocated spend below minimum tradable notional", map[string]interface{}{
			"balance":     balance,
			"percent":     b.cfg.Percent,
			"spend":       spend,
			"minNotional": b.cfg.MinNotional,
		})
		return 0, fmt.Errorf("%w: spend %.4f < %.2f %s", ports.ErrBelowMinNotional, spend, b.cfg.MinNotional, b.cfg.QuoteAsset)
	}

	lot, err := b.lotSize(ctx)
	if err != nil {
		return 0, err
	}

	qty := floorToStep(spend/buyPrice, lot.StepSize)
	if qty < lot.MinQty {
		b.logger.Warn(ctx, "Computed quantity below exchange minimum", map[string]interface{}{
			"quantity": qty,
			"minQty":   lot.MinQty,
			"spend":    spend,
			"buyPrice": buyPrice,
		})
		return 0, fmt.Errorf("%w: %.8f < %.8f", ports.ErrBelowMinQty, qty, lot.MinQty)
	}

	return qty, nil
}

func (b *BalancePercent) lotSize(ctx context.Context) (*domain.LotSize, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lot != nil {
		return b.lot, nil
	}
	lot, err := b.exchange.GetLotSize(ctx, b.symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get lot size for %s: %w", b.symbol, err)
	}
	b.lot = lot
	b.logger.Info(ctx, "Lot size filter loaded", map[string]interface{}{
		"symbol":   b.symbol,
		"stepSize": lot.StepSize,
		"minQty":   lot.MinQty,
	})
	return lot, nil
}

// floorToStep rounds qty down to the nearest multiple of step.
// decimal arithmetic avoids the float dust that a naive
// math.Floor(qty/step)*step would leave on steps like 0.001.
func floorToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	floored := q.Div(s).Floor().Mul(s)
	f, _ := floored.Float64()
	return f
}
