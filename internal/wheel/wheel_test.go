package wheel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/wheel"
)

func TestDerive_NoPositions_Idle(t *testing.T) {
	phase := wheel.Derive("AMD", nil, nil)
	assert.Equal(t, domain.PhaseIdle, phase)
}

func TestDerive_ShortPut_SellingPuts(t *testing.T) {
	positions := []domain.Position{
		{Underlying: "AMD", AssetClass: domain.AssetOption, Right: domain.RightPut, Quantity: -1},
	}
	phase := wheel.Derive("AMD", positions, nil)
	assert.Equal(t, domain.PhaseSellingPuts, phase)
}

func TestDerive_Stock_HoldingStock(t *testing.T) {
	positions := []domain.Position{
		{Underlying: "AMD", AssetClass: domain.AssetEquity, Quantity: 100},
	}
	phase := wheel.Derive("AMD", positions, nil)
	assert.Equal(t, domain.PhaseHoldingStock, phase)
}

func TestDerive_StockAndShortCall_SellingCalls(t *testing.T) {
	positions := []domain.Position{
		{Underlying: "AMD", AssetClass: domain.AssetEquity, Quantity: 100},
		{Underlying: "AMD", AssetClass: domain.AssetOption, Right: domain.RightCall, Quantity: -1},
	}
	phase := wheel.Derive("AMD", positions, nil)
	assert.Equal(t, domain.PhaseSellingCalls, phase)
}

func TestDerive_LongOptionIgnored(t *testing.T) {
	positions := []domain.Position{
		{Underlying: "AMD", AssetClass: domain.AssetOption, Right: domain.RightPut, Quantity: 1},
	}
	phase := wheel.Derive("AMD", positions, nil)
	assert.Equal(t, domain.PhaseIdle, phase)
}

func TestDerive_IgnoresOtherUnderlyings(t *testing.T) {
	positions := []domain.Position{
		{Underlying: "MSFT", AssetClass: domain.AssetEquity, Quantity: 100},
	}
	phase := wheel.Derive("AMD", positions, nil)
	assert.Equal(t, domain.PhaseIdle, phase)
}

func TestCanSellPut(t *testing.T) {
	assert.True(t, wheel.CanSellPut(domain.PhaseIdle))
	assert.True(t, wheel.CanSellPut(domain.PhaseSellingPuts))
	assert.False(t, wheel.CanSellPut(domain.PhaseHoldingStock))
	assert.False(t, wheel.CanSellPut(domain.PhaseSellingCalls))
}

func TestCanSellCall(t *testing.T) {
	assert.True(t, wheel.CanSellCall(domain.PhaseHoldingStock))
	assert.False(t, wheel.CanSellCall(domain.PhaseIdle))
	assert.False(t, wheel.CanSellCall(domain.PhaseSellingPuts))
}

func TestCanCloseOption(t *testing.T) {
	assert.True(t, wheel.CanCloseOption(domain.RightPut, domain.PhaseSellingPuts))
	assert.False(t, wheel.CanCloseOption(domain.RightPut, domain.PhaseSellingCalls))
	assert.True(t, wheel.CanCloseOption(domain.RightCall, domain.PhaseSellingCalls))
	assert.False(t, wheel.CanCloseOption(domain.RightCall, domain.PhaseIdle))
}
