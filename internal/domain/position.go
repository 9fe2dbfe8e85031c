package domain

import "time"

// Position represents the single position the bot may hold.
// Invariant: a non-nil Position always has EntryPrice and Quantity set;
// the state machine never holds a position and an active buy order at the
// same time.
type Position struct {
	Symbol     string
	EntryPrice float64   // Actual fill price of the buy order
	Quantity   float64
	SellPrice  float64   // Target limit sell price for this position
	EntryTime  time.Time
}

// SellTarget derives the limit sell price for an entry price.
// profitPct and commissionPct are percentages (e.g. 1.0 for 1%).
// Commission is charged on the sum of the buy notional and the naive sell
// notional and folded into the price as a single addition. This
// over-approximates the round-trip fee so that the net profit is at least
// profitPct of the entry price.
func SellTarget(entryPrice, profitPct, commissionPct float64) float64 {
	profitMargin := entryPrice * (profitPct / 100)
	commission := (entryPrice + (entryPrice + profitMargin)) * (commissionPct / 100)
	return entryPrice + profitMargin + commission
}
