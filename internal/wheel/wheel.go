// Package wheel derives the per-underlying wheel phase from live
// broker state and decides which operations are admissible from that
// phase. Phase is never stored: two calls against identical broker
// state must yield identical phases, which is what lets the service
// restart mid-strategy without any recovery step.
package wheel

import "github.com/mwagner-dev/wheelengine/internal/domain"

// Derive computes the wheel phase for a single underlying from the
// positions the broker currently reports. Only positions matching
// underlying are relevant; callers may pass the full unfiltered broker
// snapshot. orders is accepted but not consulted: the phase depends on
// positions alone.
func Derive(underlying string, positions []domain.Position, orders []domain.OpenOrder) domain.WheelPhase {
	hasStock := false
	hasShortPut := false
	hasShortCall := false

	for _, p := range positions {
		if p.Underlying != underlying {
			continue
		}
		switch p.AssetClass {
		case domain.AssetEquity:
			if p.Quantity > 0 {
				hasStock = true
			}
		case domain.AssetOption:
			if !p.IsShort() {
				continue
			}
			switch p.Right {
			case domain.RightPut:
				hasShortPut = true
			case domain.RightCall:
				hasShortCall = true
			}
		}
	}

	switch {
	case hasStock && hasShortCall:
		return domain.PhaseSellingCalls
	case hasStock:
		return domain.PhaseHoldingStock
	case hasShortPut:
		return domain.PhaseSellingPuts
	default:
		return domain.PhaseIdle
	}
}

// CanSellPut reports whether opening a new short put is admissible
// from the given phase.
func CanSellPut(phase domain.WheelPhase) bool {
	return phase == domain.PhaseIdle || phase == domain.PhaseSellingPuts
}

// CanSellCall reports whether opening a new covered call is
// admissible from the given phase.
func CanSellCall(phase domain.WheelPhase) bool {
	return phase == domain.PhaseHoldingStock
}

// CanCloseOption reports whether an early-close buy-to-close is
// admissible for the given option right and phase.
func CanCloseOption(right domain.Right, phase domain.WheelPhase) bool {
	switch right {
	case domain.RightPut:
		return phase == domain.PhaseSellingPuts
	case domain.RightCall:
		return phase == domain.PhaseSellingCalls
	default:
		return false
	}
}
