package notify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwagner-dev/wheelengine/internal/adapters/notify"
	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

func makeOpp(underlying string, strike float64, delta float64) domain.Opportunity {
	return domain.Opportunity{
		Contract: domain.OptionContract{
			OCCSymbol:  underlying + "250117P00150000",
			Underlying: underlying,
			Right:      domain.RightPut,
			Strike:     decimal.NewFromFloat(strike),
			Bid:        decimal.NewFromFloat(1.50),
			Ask:        decimal.NewFromFloat(1.60),
			DTE:        7,
			Delta:      delta,
		},
		Score: 0.42,
	}
}

func TestConsole_NotifyScan_WithOpportunities(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	opps := []domain.Opportunity{makeOpp("AMD", 145, -0.18), makeOpp("MSFT", 400, -0.12)}

	err := n.NotifyScan(context.Background(), ports.ScanSummary{
		PutOpportunities:   2,
		TotalOpportunities: 2,
		StoredForExecution: true,
		Opportunities:      opps,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "AMD")
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "scan:")
}

func TestConsole_NotifyScan_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	err := n.NotifyScan(context.Background(), ports.ScanSummary{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scan:")
}

func TestConsole_NotifyRun(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.NotifyRun(context.Background(), ports.RunSummary{
		OpportunitiesEvaluated: 3,
		TradesExecuted:         1,
		TradesFailed:           0,
		BuyingPowerStart:       50000,
		BuyingPowerEnd:         35500,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "executed=1")
}
