package ports

import (
	"context"

	"atrDipBot/internal/domain"
)

// ExchangeClient defines the interface for interacting with a cryptocurrency exchange.
// This abstraction allows decoupling the core bot logic from specific exchange implementations.
type ExchangeClient interface {
	// GetKlines retrieves historical klines/candlestick data for the given symbol,
	// ordered oldest first.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)

	// GetQuoteBalance retrieves the free balance of the quote asset (e.g., "USDT").
	GetQuoteBalance(ctx context.Context, asset string) (float64, error)

	// GetLotSize retrieves the quantity constraints for a symbol.
	GetLotSize(ctx context.Context, symbol string) (*domain.LotSize, error)

	// PlaceLimitOrder places a GTC limit order and returns its handle.
	PlaceLimitOrder(ctx context.Context, intent domain.OrderIntent) (*domain.OrderHandle, error)

	// GetOrderStatus polls the current status of an order by its exchange ID.
	GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*domain.OrderState, error)

	// CancelOrder cancels an existing open order by its ID.
	CancelOrder(ctx context.Context, symbol string, orderID int64) error

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error
}
