// Package executor submits the pipeline's admitted opportunities to
// the broker, sequentially, re-validating buying power immediately
// before every individual order. A previous concurrent-submission
// design sized every order against the same stale buying-power figure
// and saw an 84.5% order failure rate once the broker started
// rejecting orders that had already been outspent by earlier fills in
// the same batch; sequential submission with per-order revalidation
// is the fix, not a performance optimization, and there is no
// configuration flag that reverts to the concurrent path.
package executor

import (
	"context"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/pipeline"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// tickSize is the minimum price increment for listed option quotes.
const tickSize = 0.01

// Executor submits an admitted batch sequentially and drives the
// early-close monitor pass.
type Executor struct {
	broker         ports.Broker
	clock          ports.Clock
	breaker        *domain.CircuitBreaker
	slippageFactor float64
	profitTarget   float64
}

func New(broker ports.Broker, clock ports.Clock, breaker *domain.CircuitBreaker, slippageFactor, profitTarget float64) *Executor {
	return &Executor{broker: broker, clock: clock, breaker: breaker, slippageFactor: slippageFactor, profitTarget: profitTarget}
}

// Breaker returns a snapshot of the current circuit breaker state, for
// callers that persist it across process restarts.
func (x *Executor) Breaker() domain.CircuitBreaker {
	return *x.breaker
}

// Outcome is the per-opportunity result of one submission attempt.
type Outcome struct {
	Opportunity domain.Opportunity
	Submitted   bool
	Skipped     bool
	Reason      string
	Order       domain.PlacedOrder
}

// RunResult is the aggregate /run response shape.
type RunResult struct {
	Outcomes         []Outcome
	TradesExecuted   int
	TradesFailed     int
	BuyingPowerStart float64
	BuyingPowerEnd   float64
}

// Submit walks admitted in rank order, revalidating buying power
// against a fresh account query before every single order.
func (x *Executor) Submit(ctx context.Context, admitted []pipeline.Admitted) RunResult {
	result := RunResult{}

	startAcct, err := x.broker.GetAccount(ctx)
	if err == nil {
		bp, _ := startAcct.BuyingPower.Float64()
		result.BuyingPowerStart = bp
		result.BuyingPowerEnd = bp
	}

	if !x.breaker.Open(x.clock.Now()) {
		slog.Warn("executor: circuit breaker open, skipping all submissions", "reason", x.breaker.TriggeredReason)
		for _, a := range admitted {
			result.Outcomes = append(result.Outcomes, Outcome{Opportunity: a.Opportunity, Skipped: true, Reason: "circuit_breaker_open"})
		}
		return result
	}

	for _, a := range admitted {
		outcome := x.submitOne(ctx, a)
		result.Outcomes = append(result.Outcomes, outcome)

		if outcome.Submitted {
			result.TradesExecuted++
			x.breaker.RecordSuccess(x.clock.Now())
		} else if !outcome.Skipped {
			result.TradesFailed++
			x.breaker.RecordFailure(x.clock.Now())
		}

		acct, err := x.broker.GetAccount(ctx)
		if err == nil {
			bp, _ := acct.BuyingPower.Float64()
			result.BuyingPowerEnd = bp
		}
	}

	return result
}

func (x *Executor) submitOne(ctx context.Context, a pipeline.Admitted) Outcome {
	acct, err := x.broker.GetAccount(ctx)
	if err != nil {
		return Outcome{Opportunity: a.Opportunity, Reason: "buying_power_query_failed"}
	}
	liveBP, _ := acct.BuyingPower.Float64()
	if a.Collateral > liveBP {
		return Outcome{Opportunity: a.Opportunity, Skipped: true, Reason: "insufficient_buying_power"}
	}

	limitPrice := roundToTick(a.Opportunity.Mid() * (1 - x.slippageFactor))

	req := domain.PlaceOrderRequest{
		OCCSymbol:  a.Opportunity.Contract.OCCSymbol,
		Action:     domain.ActionSellToOpen,
		Quantity:   1,
		LimitPrice: decimal.NewFromFloat(limitPrice),
	}

	// Never retried: a retry here cannot tell a dropped acknowledgment
	// from a dropped request, so a retry risks submitting twice.
	placed, err := x.broker.SubmitOrder(ctx, req, ports.TIFDay)
	if err != nil {
		slog.Error("order submission failed", "symbol", req.OCCSymbol, "err", err)
		return Outcome{Opportunity: a.Opportunity, Reason: "broker_rejected"}
	}

	return Outcome{Opportunity: a.Opportunity, Submitted: true, Order: placed}
}

// MonitorResult is the aggregate /monitor response shape.
type MonitorResult struct {
	PositionsEvaluated int
	PositionsClosed    int
	Errors             int
}

// Monitor evaluates every open short-option position and submits a
// buy-to-close for any whose unrealized profit has reached the
// configured target. No new capital is deployed on this path.
func (x *Executor) Monitor(ctx context.Context) MonitorResult {
	result := MonitorResult{}

	positions, err := x.broker.GetPositions(ctx)
	if err != nil {
		result.Errors++
		return result
	}

	for _, p := range positions {
		if p.AssetClass != domain.AssetOption || !p.IsShort() {
			continue
		}
		result.PositionsEvaluated++

		if p.EntryPrice == 0 {
			// Broker-reported entry price of zero is indistinguishable
			// from "unknown" (seen after some corporate actions); skip
			// rather than risk closing at a fabricated profit figure.
			continue
		}

		quote, err := x.broker.GetQuote(ctx, p.Symbol, ports.FeedOPRA)
		if err != nil {
			result.Errors++
			continue
		}
		currentMid := (quote.Bid + quote.Ask) / 2
		profitPct := (p.EntryPrice - currentMid) / p.EntryPrice
		if profitPct < x.profitTarget {
			continue
		}

		req := domain.PlaceOrderRequest{
			OCCSymbol:  p.Symbol,
			Action:     domain.ActionBuyToClose,
			Quantity:   1,
			LimitPrice: decimal.NewFromFloat(roundToTick(currentMid)),
		}
		if _, err := x.broker.SubmitOrder(ctx, req, ports.TIFDay); err != nil {
			result.Errors++
			continue
		}
		result.PositionsClosed++
	}

	return result
}

func roundToTick(price float64) float64 {
	return math.Round(price/tickSize) * tickSize
}
