package domain

// OrderIntent describes a limit order the bot wants to place.
// It is constructed by the core logic and consumed by the exchange gateway.
type OrderIntent struct {
	Symbol   string
	Side     OrderSide
	Price    float64
	Quantity float64
}

// OrderHandle identifies an order resting on the exchange.
// The state machine owns a handle while the order is active and discards it
// once the order reaches a terminal status.
type OrderHandle struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Price         float64 // Requested limit price
	Quantity      float64
	Status        OrderStatus
}

// OrderState is a status snapshot returned when polling an order.
// FillPrice is the actual execution price and may differ from the
// requested limit price (slippage, price improvement).
type OrderState struct {
	Status    OrderStatus
	FillPrice float64
}

// LotSize holds the exchange's quantity constraints for a symbol.
type LotSize struct {
	StepSize     float64 // Quantity granularity
	MinQty       float64 // Minimum tradable quantity
	QtyPrecision int     // Decimal digits derived from StepSize
}
