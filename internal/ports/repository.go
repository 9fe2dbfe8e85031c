package ports

import (
	"context"

	"atrDipBot/internal/domain"
)

// TradeRepository defines the interface for the durable trade audit log.
type TradeRepository interface {
	// Record appends an executed fill and returns its assigned ID.
	Record(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindRecent retrieves the most recent trades for a given symbol, up to a limit.
	FindRecent(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// RealizedProfit computes sell notional minus buy notional over all
	// recorded trades for a symbol.
	RealizedProfit(ctx context.Context, symbol string) (float64, error)
}
