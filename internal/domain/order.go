package domain

import "github.com/shopspring/decimal"

// OrderAction is the side of a new order request. The wheel strategy
// only ever sells options and, on assignment, holds or liquidates the
// underlying equity at the broker's discretion — it never buys to open.
type OrderAction string

const (
	ActionSellToOpen  OrderAction = "SELL_TO_OPEN"
	ActionBuyToClose  OrderAction = "BUY_TO_CLOSE"
)

// PlaceOrderRequest is everything the executor sends the broker for a
// single contract. Quantity is always in contracts, never shares.
type PlaceOrderRequest struct {
	OCCSymbol  string
	Action     OrderAction
	Quantity   int
	LimitPrice decimal.Decimal
}

// PlacedOrder is the broker's acknowledgement of a submitted order. It
// is intentionally thin: the executor keeps it on the submission outcome
// and never re-reads its status; later cycles see the order's state
// through GetOrders, in the position guard's open-order check.
type PlacedOrder struct {
	OrderID    string
	OCCSymbol  string
	Status     OrderStatus
	LimitPrice decimal.Decimal
}
