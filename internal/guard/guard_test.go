package guard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwagner-dev/wheelengine/internal/adapters/paper"
	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/guard"

	"github.com/shopspring/decimal"
)

func TestGuard_Check_Clear(t *testing.T) {
	broker := paper.New(decimal.NewFromInt(100000))
	g := guard.New(broker)

	conflict, reason := g.Check(context.Background(), "AMD", map[string]bool{})
	assert.False(t, conflict)
	assert.Empty(t, reason)
}

func TestGuard_Check_PendingInCycle(t *testing.T) {
	broker := paper.New(decimal.NewFromInt(100000))
	g := guard.New(broker)

	conflict, reason := g.Check(context.Background(), "AMD", map[string]bool{"AMD": true})
	assert.True(t, conflict)
	assert.Equal(t, guard.ReasonPendingInCycle, reason)
}

func TestGuard_Check_OpenOrderExists(t *testing.T) {
	broker := paper.New(decimal.NewFromInt(100000))
	broker.SeedOrder(domain.OpenOrder{
		OrderID:    "o1",
		Symbol:     "AMD250117P00145000",
		Underlying: "AMD",
		Status:     domain.OrderOpen,
	})
	g := guard.New(broker)

	conflict, reason := g.Check(context.Background(), "AMD", map[string]bool{})
	assert.True(t, conflict)
	assert.Equal(t, guard.ReasonOpenOrderExists, reason)
}

func TestGuard_Check_FilledPositionExists(t *testing.T) {
	broker := paper.New(decimal.NewFromInt(100000))
	broker.SeedPosition(domain.Position{
		Symbol:     "AMD250117P00145000",
		Underlying: "AMD",
		AssetClass: domain.AssetOption,
		Quantity:   -1,
	})
	g := guard.New(broker)

	conflict, reason := g.Check(context.Background(), "AMD", map[string]bool{})
	assert.True(t, conflict)
	assert.Equal(t, guard.ReasonFilledPosition, reason)
}

func TestGuard_Check_UnrelatedUnderlyingDoesNotConflict(t *testing.T) {
	broker := paper.New(decimal.NewFromInt(100000))
	broker.SeedPosition(domain.Position{
		Symbol:     "MSFT250117P00400000",
		Underlying: "MSFT",
		AssetClass: domain.AssetOption,
		Quantity:   -1,
	})
	g := guard.New(broker)

	conflict, reason := g.Check(context.Background(), "AMD", map[string]bool{})
	require.False(t, conflict)
	assert.Empty(t, reason)
}

func TestGuard_Check_EquityPositionDoesNotConflict(t *testing.T) {
	broker := paper.New(decimal.NewFromInt(100000))
	broker.SeedPosition(domain.Position{
		Symbol:     "AMD",
		Underlying: "AMD",
		AssetClass: domain.AssetEquity,
		Quantity:   100,
	})
	g := guard.New(broker)

	conflict, _ := g.Check(context.Background(), "AMD", map[string]bool{})
	assert.False(t, conflict)
}
