package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderStatus is the lifecycle status of an order as seen by the bot.
// Partial fills are not modelled: an order is pending until it is fully
// filled or reaches a terminal cancel state.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusUnknown  OrderStatus = "UNKNOWN"
)

// TradeAction identifies which leg of the round trip a trade record belongs to.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)
