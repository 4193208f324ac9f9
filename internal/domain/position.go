package domain

// AssetClass distinguishes equity holdings from option positions in a
// broker position snapshot.
type AssetClass string

const (
	AssetEquity AssetClass = "EQUITY"
	AssetOption AssetClass = "OPTION"
)

// Position is a broker-reported holding. It is never cached across
// cycle boundaries — every read goes straight back to the broker so
// the wheel phase always reflects the broker's current book.
type Position struct {
	Symbol        string
	Underlying    string
	AssetClass    AssetClass
	Right         Right // zero value for equities
	Quantity      float64
	EntryPrice    float64
	MarketValue   float64
	UnrealizedPnL float64
}

// IsShort reports whether this position is a short option (negative
// quantity by broker convention).
func (p Position) IsShort() bool {
	return p.AssetClass == AssetOption && p.Quantity < 0
}

// OrderStatus is the lifecycle of a broker order.
type OrderStatus string

const (
	OrderPendingNew OrderStatus = "PENDING_NEW"
	OrderOpen       OrderStatus = "OPEN"
	OrderFilled     OrderStatus = "FILLED"
	OrderCanceled   OrderStatus = "CANCELED"
	OrderRejected   OrderStatus = "REJECTED"
)

// OpenOrder is a broker-reported order. Like Position, it is observed
// fresh on every call, never persisted locally across cycles.
type OpenOrder struct {
	OrderID    string
	Symbol     string
	Underlying string
	Status     OrderStatus
	Side       string
	Quantity   float64
	LimitPrice float64
}

// Pending reports whether the order still counts against the duplicate-
// order guard's broker-open-orders check: the broker has not yet
// confirmed it as filled, canceled, or rejected.
func (o OpenOrder) Pending() bool {
	return o.Status == OrderOpen || o.Status == OrderPendingNew
}
