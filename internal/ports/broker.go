package ports

import (
	"context"
	"time"

	"github.com/mwagner-dev/wheelengine/internal/domain"
)

// Feed selects which market-data subscription tier a quote or bar
// request should be served from. It is a per-call parameter rather
// than a client-wide setting because a deployment may hold a paid
// feed for options but only a free feed for equities, or vice versa.
type Feed string

const (
	FeedIEX  Feed = "iex"
	FeedSIP  Feed = "sip"
	FeedOPRA Feed = "opra"
)

// TimeInForce is the broker order duration qualifier.
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
)

// Quote is a top-of-book snapshot for a single symbol.
type Quote struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	PrevClose float64
	Timestamp time.Time
}

// OrderStatus filter values accepted by GetOrders. An empty string
// means "all statuses".
type OrderStatusFilter string

const (
	OrderStatusOpen OrderStatusFilter = "open"
	OrderStatusAll  OrderStatusFilter = "all"
)

// Broker is the brokerage API surface the pipeline and executor
// depend on. Every method may fail with a transient or permanent
// error; callers classify failures with apperr, not by inspecting the
// broker's own error type.
type Broker interface {
	GetAccount(ctx context.Context) (domain.Account, error)
	GetQuote(ctx context.Context, symbol string, feed Feed) (Quote, error)
	GetBars(ctx context.Context, symbol string, start, end time.Time, feed Feed) ([]domain.Bar, error)
	GetOptionChain(ctx context.Context, underlying string) ([]domain.OptionContract, error)
	GetPositions(ctx context.Context) ([]domain.Position, error)
	GetOrders(ctx context.Context, status OrderStatusFilter) ([]domain.OpenOrder, error)
	SubmitOrder(ctx context.Context, req domain.PlaceOrderRequest, tif TimeInForce) (domain.PlacedOrder, error)
}
