package pipeline

import (
	"context"
	"log/slog"
	"sort"

	"github.com/mwagner-dev/wheelengine/internal/chain"
	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/gaprisk"
	"github.com/mwagner-dev/wheelengine/internal/ports"
	"github.com/mwagner-dev/wheelengine/internal/wheel"
)

// Engine runs the scan and execute halves of the pipeline against
// injected collaborators. It holds no cross-cycle state of its own.
type Engine struct {
	broker ports.Broker
	gap    *gaprisk.Filter
	clock  ports.Clock
}

func NewEngine(broker ports.Broker, gap *gaprisk.Filter, clock ports.Clock) *Engine {
	return &Engine{broker: broker, gap: gap, clock: clock}
}

// ScanResult is the aggregate outcome of one scan cycle.
type ScanResult struct {
	Opportunities []domain.Opportunity
	Candidates    []*CandidateResult
	Rejections    domain.RejectionHistogram
}

// Scan runs stages 1, 2, 3, 7 across the configured universe and
// returns the ranked, persistable set of opportunities.
func (e *Engine) Scan(ctx context.Context, underlyings []domain.Underlying, cfg Config) ScanResult {
	result := ScanResult{Rejections: make(domain.RejectionHistogram)}

	stage2Passed := make([]domain.Underlying, 0, len(underlyings))
	crByUnderlying := make(map[string]*CandidateResult, len(underlyings))
	for _, u := range underlyings {
		cr := newCandidateResult(u.Symbol)
		result.Candidates = append(result.Candidates, cr)
		crByUnderlying[u.Symbol] = cr

		v1 := stage1PriceVolume(u, cfg)
		cr.record("stage_1", v1)
		if !v1.Passed {
			continue
		}

		v2 := e.stage2GapRisk(ctx, u, cfg)
		cr.record("stage_2", v2)
		if !v2.Passed {
			continue
		}

		stage2Passed = append(stage2Passed, u)
	}

	stage3Passed := stage3EvaluationCap(stage2Passed, cfg)

	for _, u := range stage3Passed {
		cr := crByUnderlying[u.Symbol]
		opps, rejections := e.stage7ChainSelection(ctx, u, cfg, cr)
		for reason, count := range rejections {
			result.Rejections[reason] += count
		}
		result.Opportunities = append(result.Opportunities, opps...)
	}

	sort.SliceStable(result.Opportunities, func(i, j int) bool {
		return domain.Less(result.Opportunities[i], result.Opportunities[j])
	})

	return result
}

func stage1PriceVolume(u domain.Underlying, cfg Config) Verdict {
	if u.Price < cfg.MinStockPrice || u.Price > cfg.MaxStockPrice {
		return Block("stage_1_price_out_of_range")
	}
	if u.AvgVolume < cfg.MinAvgVolume {
		return Block("stage_1_volume_too_low")
	}
	return Pass()
}

func (e *Engine) stage2GapRisk(ctx context.Context, u domain.Underlying, cfg Config) Verdict {
	res := e.gap.CheckHistorical(ctx, u.Symbol, gapThresholds(cfg))
	if !res.Passed {
		return Block(res.Reason)
	}
	return Pass()
}

// stage3EvaluationCap retains the top-N candidates by average volume
// (the scan's best available liquidity signal before a chain has even
// been fetched) when max_evaluated is configured; otherwise every
// Stage-2 survivor proceeds.
func stage3EvaluationCap(in []domain.Underlying, cfg Config) []domain.Underlying {
	if evaluatedPassThrough(cfg.MaxEvaluated) {
		return in
	}
	cap := *cfg.MaxEvaluated
	if cap >= len(in) {
		return in
	}

	ranked := make([]domain.Underlying, len(in))
	copy(ranked, in)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvgVolume > ranked[j].AvgVolume
	})
	return ranked[:cap]
}

// stage7ChainSelection derives the underlying's current wheel phase to
// decide whether to look for puts or calls, fetches the chain, and
// applies the Stage 7 liquidity/delta/DTE/premium criteria. cr is the
// same CandidateResult carried over from stages 1/2 for u: a broker
// query failure here is recorded as a BLOCKED verdict on it, never a
// silently dropped candidate.
func (e *Engine) stage7ChainSelection(ctx context.Context, u domain.Underlying, cfg Config, cr *CandidateResult) ([]domain.Opportunity, domain.RejectionHistogram) {
	positions, posErr := e.broker.GetPositions(ctx)
	orders, ordErr := e.broker.GetOrders(ctx, ports.OrderStatusOpen)
	if posErr != nil || ordErr != nil {
		slog.Warn("stage_7 phase lookup failed, skipping underlying", "underlying", u.Symbol)
		cr.record("stage_7", Block("stage_7_detection_error"))
		return nil, nil
	}
	phase := wheel.Derive(u.Symbol, positions, orders)

	contracts, err := e.broker.GetOptionChain(ctx, u.Symbol)
	if err != nil {
		slog.Warn("stage_7_detection_error", "underlying", u.Symbol, "err", err)
		cr.record("stage_7", Block("stage_7_detection_error"))
		return nil, nil
	}

	switch {
	case wheel.CanSellCall(phase):
		costBasis := costBasisFor(u.Symbol, positions)
		res := chain.SelectCalls(contracts, cfg.Chain, costBasis)
		cr.record("stage_7", Pass())
		return res.Opportunities, res.Rejections
	case wheel.CanSellPut(phase):
		res := chain.SelectPuts(contracts, cfg.Chain)
		cr.record("stage_7", Pass())
		return res.Opportunities, res.Rejections
	default:
		cr.record("stage_7", Block("stage_7_no_eligible_action"))
		return nil, nil
	}
}

func costBasisFor(underlying string, positions []domain.Position) float64 {
	for _, p := range positions {
		if p.Underlying == underlying && p.AssetClass == domain.AssetEquity && p.Quantity > 0 {
			return p.EntryPrice
		}
	}
	return 0
}
