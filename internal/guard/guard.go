// Package guard implements the three-tier duplicate-order check that
// sits in front of every new order submission. Earlier strategy
// implementations checked only the broker's filled-position view,
// which let a second order for the same underlying reach the broker
// while the first was still an unfilled open order in the prior
// cycle. All three tiers must be checked, and a broker query failure
// on any tier is itself treated as a conflict.
package guard

import (
	"context"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

const (
	ReasonPendingInCycle   = "pending_order_in_cycle"
	ReasonOpenOrderExists  = "open_order_exists"
	ReasonFilledPosition   = "filled_position_exists"
	ReasonQueryFailed      = "position_guard_query_failed"
)

// Guard checks for an existing order or position on an underlying
// across all three tiers. CyclePending is the in-cycle set of
// underlyings already selected for execution this cycle; the caller
// owns it and clears it at the start of every execute cycle.
type Guard struct {
	broker ports.Broker
}

func New(broker ports.Broker) *Guard {
	return &Guard{broker: broker}
}

// Check returns (conflict, reason). A false conflict with an empty
// reason means the underlying is clear to trade.
func (g *Guard) Check(ctx context.Context, underlying string, cyclePending map[string]bool) (bool, string) {
	if cyclePending[underlying] {
		return true, ReasonPendingInCycle
	}

	orders, err := g.broker.GetOrders(ctx, ports.OrderStatusOpen)
	if err != nil {
		return true, ReasonQueryFailed
	}
	for _, o := range orders {
		if o.Underlying == underlying && o.Pending() {
			return true, ReasonOpenOrderExists
		}
	}

	positions, err := g.broker.GetPositions(ctx)
	if err != nil {
		return true, ReasonQueryFailed
	}
	for _, p := range positions {
		if p.Underlying == underlying && p.AssetClass == domain.AssetOption {
			return true, ReasonFilledPosition
		}
	}

	return false, ""
}
