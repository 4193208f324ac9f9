// Package chain implements the option chain selector: Stage 7's strike,
// delta, DTE and liquidity filter over a broker's full chain for one
// underlying, plus the ranking metadata that the pipeline sorts on.
package chain

import (
	"github.com/mwagner-dev/wheelengine/internal/domain"
)

const (
	ReasonDTETooHigh    = "rejected_dte_too_high"
	ReasonPremiumTooLow = "rejected_premium_too_low"
	ReasonDeltaOutOfRange = "rejected_delta_out_of_range"
	ReasonNoLiquidity   = "rejected_no_liquidity"
)

// Criteria mirrors the Stage 7 configuration knobs.
type Criteria struct {
	TargetDTE      int
	MinPremium     float64
	DeltaMin       float64
	DeltaMax       float64
	MinOpenInterest int64
}

// Result is the outcome of selecting against one underlying's chain.
type Result struct {
	Opportunities []domain.Opportunity
	Rejections    domain.RejectionHistogram
}

// SelectPuts filters a chain down to puts eligible for a new
// cash-secured-put sale.
func SelectPuts(contracts []domain.OptionContract, c Criteria) Result {
	return selectRight(contracts, domain.RightPut, c, 0)
}

// SelectCalls filters a chain down to calls eligible for a new covered
// call, excluding any strike below the held stock's cost basis so
// assignment can never lock in a loss versus the shares' basis.
func SelectCalls(contracts []domain.OptionContract, c Criteria, costBasis float64) Result {
	return selectRight(contracts, domain.RightCall, c, costBasis)
}

func selectRight(contracts []domain.OptionContract, right domain.Right, c Criteria, costBasis float64) Result {
	res := Result{Rejections: make(domain.RejectionHistogram)}

	for _, contract := range contracts {
		if contract.Right != right {
			continue
		}
		if !contract.Valid() {
			// Structurally impossible quote (bid > ask, |delta| > 1):
			// a data-shape fault in the broker feed, not a liquidity
			// rejection. Dropped from ranking without a histogram
			// entry; nothing logs it, and the underlying's Stage 7
			// verdict is unaffected.
			continue
		}
		if right == domain.RightCall && costBasis > 0 {
			strike, _ := contract.Strike.Float64()
			if strike < costBasis {
				res.Rejections.Add(ReasonNoLiquidity)
				continue
			}
		}

		if contract.DTE > c.TargetDTE {
			res.Rejections.Add(ReasonDTETooHigh)
			continue
		}

		mid := contract.Mid()
		midF, _ := mid.Float64()
		if midF < c.MinPremium {
			res.Rejections.Add(ReasonPremiumTooLow)
			continue
		}

		absDelta := contract.AbsDelta()
		if absDelta < c.DeltaMin || absDelta > c.DeltaMax {
			res.Rejections.Add(ReasonDeltaOutOfRange)
			continue
		}

		if contract.OpenInterest < c.MinOpenInterest && contract.Volume <= 0 {
			res.Rejections.Add(ReasonNoLiquidity)
			continue
		}

		res.Opportunities = append(res.Opportunities, buildOpportunity(contract))
	}

	return res
}

func buildOpportunity(c domain.OptionContract) domain.Opportunity {
	mid, _ := c.Mid().Float64()
	strike, _ := c.Strike.Float64()

	annualReturn := 0.0
	if strike > 0 && c.DTE > 0 {
		annualReturn = (mid / strike) * (365.0 / float64(c.DTE))
	}

	return domain.Opportunity{
		Contract:             c,
		AnnualReturnEstimate: annualReturn,
		ExpectedPremium:      mid * 100,
		Score:                annualReturn * (1 - c.AbsDelta()),
	}
}
