package chain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwagner-dev/wheelengine/internal/chain"
	"github.com/mwagner-dev/wheelengine/internal/domain"
)

func baseCriteria() chain.Criteria {
	return chain.Criteria{
		TargetDTE:       10,
		MinPremium:      0.25,
		DeltaMin:        0.10,
		DeltaMax:        0.30,
		MinOpenInterest: 50,
	}
}

func contract(right domain.Right, strike, bid, ask, delta float64, dte int, oi int64) domain.OptionContract {
	return domain.OptionContract{
		OCCSymbol:    "AMD250117X00" + string(right),
		Underlying:   "AMD",
		Right:        right,
		Strike:       decimal.NewFromFloat(strike),
		Expiration:   time.Now().Add(time.Duration(dte) * 24 * time.Hour),
		DTE:          dte,
		Bid:          decimal.NewFromFloat(bid),
		Ask:          decimal.NewFromFloat(ask),
		Delta:        delta,
		OpenInterest: oi,
	}
}

func TestSelectPuts_AdmitsQualifyingContract(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightPut, 145, 1.40, 1.60, -0.18, 7, 100),
	}
	res := chain.SelectPuts(contracts, baseCriteria())
	require.Len(t, res.Opportunities, 1)
	assert.Equal(t, "AMD", res.Opportunities[0].Underlying())
	assert.Greater(t, res.Opportunities[0].Score, 0.0)
}

func TestSelectPuts_RejectsTooHighDTE(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightPut, 145, 1.40, 1.60, -0.18, 30, 100),
	}
	res := chain.SelectPuts(contracts, baseCriteria())
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 1, res.Rejections[chain.ReasonDTETooHigh])
}

func TestSelectPuts_RejectsLowPremium(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightPut, 145, 0.05, 0.08, -0.18, 7, 100),
	}
	res := chain.SelectPuts(contracts, baseCriteria())
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 1, res.Rejections[chain.ReasonPremiumTooLow])
}

func TestSelectPuts_RejectsDeltaOutOfRange(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightPut, 145, 1.40, 1.60, -0.60, 7, 100),
	}
	res := chain.SelectPuts(contracts, baseCriteria())
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 1, res.Rejections[chain.ReasonDeltaOutOfRange])
}

func TestSelectPuts_RejectsNoLiquidity(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightPut, 145, 1.40, 1.60, -0.18, 7, 5),
	}
	res := chain.SelectPuts(contracts, baseCriteria())
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 1, res.Rejections[chain.ReasonNoLiquidity])
}

func TestSelectPuts_IgnoresCalls(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightCall, 145, 1.40, 1.60, 0.18, 7, 100),
	}
	res := chain.SelectPuts(contracts, baseCriteria())
	assert.Empty(t, res.Opportunities)
	assert.Empty(t, res.Rejections)
}

func TestSelectPuts_DropsStructurallyInvalidContract(t *testing.T) {
	bad := contract(domain.RightPut, 145, 1.60, 1.40 /* bid > ask */, -0.18, 7, 100)
	res := chain.SelectPuts([]domain.OptionContract{bad}, baseCriteria())
	assert.Empty(t, res.Opportunities)
	assert.Empty(t, res.Rejections) // dropped silently, not counted as a rejection reason
}

func TestSelectCalls_RejectsStrikeBelowCostBasis(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightCall, 140, 1.40, 1.60, 0.18, 7, 100),
	}
	res := chain.SelectCalls(contracts, baseCriteria(), 150 /* cost basis above strike */)
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 1, res.Rejections[chain.ReasonNoLiquidity])
}

func TestSelectCalls_AdmitsStrikeAtOrAboveCostBasis(t *testing.T) {
	contracts := []domain.OptionContract{
		contract(domain.RightCall, 155, 1.40, 1.60, 0.18, 7, 100),
	}
	res := chain.SelectCalls(contracts, baseCriteria(), 150)
	require.Len(t, res.Opportunities, 1)
}
