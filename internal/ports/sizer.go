package ports

import "context"

// Sizer converts a candidate buy price into an order quantity.
// Implementations may consult the exchange (balance, lot constraints).
// Sizing rejections are reported via ErrBelowMinNotional / ErrBelowMinQty
// and are business outcomes, not failures: the caller skips the cycle.
type Sizer interface {
	Quantity(ctx context.Context, buyPrice float64) (float64, error)
}
