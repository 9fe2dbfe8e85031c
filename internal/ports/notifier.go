package ports

import "context"

// Notifier delivers human-readable status messages to an external channel.
// Delivery is best-effort: implementations must log failures internally and
// never return them, so the trading loop cannot depend on notification
// success.
type Notifier interface {
	Notify(ctx context.Context, text string)
}
