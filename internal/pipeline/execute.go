package pipeline

import (
	"context"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/guard"
	"github.com/mwagner-dev/wheelengine/internal/ports"
	"github.com/mwagner-dev/wheelengine/internal/wheel"
)

// contractsPerOrder is fixed at one contract per admitted opportunity.
// The pipeline ranks by per-contract return, not by capital deployed,
// so scaling an individual order up is a sizing decision this pass
// intentionally leaves to a future allocator rather than guessing at
// a multiplier here.
const contractsPerOrder = 1

// Admitted is one opportunity that survived stages 4-9, carrying the
// collateral the executor will revalidate against live buying power
// immediately before submission.
type Admitted struct {
	Opportunity domain.Opportunity
	Collateral  float64
}

// ExecuteResult is the aggregate outcome of one execute cycle's pass
// through stages 4-9.
type ExecuteResult struct {
	Admitted   []Admitted
	Candidates []*CandidateResult
}

// Execute runs stages 4, 5, 6, 8, 9 over a ranked list of opportunities
// already retrieved from the Store. account.Equity/BuyingPower are a
// single snapshot taken once at the start of the cycle; the executor
// re-fetches live buying power before each individual submission.
func (e *Engine) Execute(ctx context.Context, opportunities []domain.Opportunity, account domain.Account, cfg Config) ExecuteResult {
	g := guard.New(e.broker)
	result := ExecuteResult{}

	cyclePending := make(map[string]bool)
	remainingBuyingPower, _ := account.BuyingPower.Float64()
	equity, _ := account.Equity.Float64()
	allocatedTotal := 0.0
	exposureByUnderlying := make(map[string]float64)
	admittedCount := 0

	for _, opp := range opportunities {
		cr := newCandidateResult(opp.Contract.OCCSymbol)
		underlying := opp.Underlying()

		if newPositionsCapped(cfg.MaxNewPositionsPerCycle) && admittedCount >= *cfg.MaxNewPositionsPerCycle {
			cr.record("stage_9", Block("cycle_cap_reached"))
			result.Candidates = append(result.Candidates, cr)
			continue
		}

		v4 := e.stage4ExecutionGap(ctx, underlying, cfg)
		cr.record("stage_4", v4)
		if !v4.Passed {
			result.Candidates = append(result.Candidates, cr)
			continue
		}

		positions, posErr := e.broker.GetPositions(ctx)
		orders, ordErr := e.broker.GetOrders(ctx, ports.OrderStatusOpen)
		if posErr != nil || ordErr != nil {
			cr.record("stage_5", Block("stage_5_detection_error"))
			result.Candidates = append(result.Candidates, cr)
			continue
		}
		phase := wheel.Derive(underlying, positions, orders)

		v5 := stage5WheelState(opp.Contract.Right, phase)
		cr.record("stage_5", v5)
		if !v5.Passed {
			result.Candidates = append(result.Candidates, cr)
			continue
		}

		conflict, reason := g.Check(ctx, underlying, cyclePending)
		if conflict {
			cr.record("stage_6", Block(reason))
			result.Candidates = append(result.Candidates, cr)
			continue
		}
		cr.record("stage_6", Pass())

		collateral := collateralFor(opp, contractsPerOrder)
		v8 := stage8Sizing(collateral, remainingBuyingPower, exposureByUnderlying[underlying], allocatedTotal, equity, cfg)
		cr.record("stage_8", v8)
		if !v8.Passed {
			result.Candidates = append(result.Candidates, cr)
			continue
		}

		cyclePending[underlying] = true
		remainingBuyingPower -= collateral
		allocatedTotal += collateral
		exposureByUnderlying[underlying] += collateral
		admittedCount++

		cr.record("stage_9", Pass())
		result.Candidates = append(result.Candidates, cr)
		result.Admitted = append(result.Admitted, Admitted{Opportunity: opp, Collateral: collateral})
	}

	return result
}

func (e *Engine) stage4ExecutionGap(ctx context.Context, underlying string, cfg Config) Verdict {
	th := gapThresholds(cfg)
	passed, reason := e.gap.CheckExecution(ctx, underlying, th)
	if !passed {
		return Block(reason)
	}
	return Pass()
}

func stage5WheelState(right domain.Right, phase domain.WheelPhase) Verdict {
	switch right {
	case domain.RightPut:
		if wheel.CanSellPut(phase) {
			return Pass()
		}
		return Block("wheel_phase_disallows_put")
	case domain.RightCall:
		if wheel.CanSellCall(phase) {
			return Pass()
		}
		return Block("wheel_phase_disallows_call")
	default:
		return Block("stage_5_detection_error")
	}
}

func stage8Sizing(collateral, buyingPower, exposureSoFar, allocatedSoFar, equity float64, cfg Config) Verdict {
	if collateral > buyingPower {
		return Block("insufficient_buying_power")
	}
	if exposureSoFar+collateral > cfg.MaxExposurePerTicker {
		return Block("exceeds_max_exposure_per_ticker")
	}
	if equity > 0 && (allocatedSoFar+collateral)/equity > cfg.MaxPortfolioAllocation {
		return Block("exceeds_max_portfolio_allocation")
	}
	return Pass()
}

func collateralFor(opp domain.Opportunity, contracts int) float64 {
	strike, _ := opp.Contract.Strike.Float64()
	return strike * 100 * float64(contracts)
}
