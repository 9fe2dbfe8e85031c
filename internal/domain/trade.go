package domain

import "time"

// Trade is a single executed fill recorded in the audit log.
type Trade struct {
	ID         int64       // Unique identifier (from DB)
	Symbol     string      // Trading symbol (e.g., "BTCUSDT")
	Action     TradeAction // BUY or SELL leg
	Price      float64     // Actual execution price
	Quantity   float64
	OrderID    int64     // Exchange order ID that produced the fill
	ExecutedAt time.Time // Fill timestamp
}

// Notional returns price * quantity, the monetary size of the fill.
func (t *Trade) Notional() float64 {
	return t.Price * t.Quantity
}
