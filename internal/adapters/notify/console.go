package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// Console implements ports.Notifier by printing a formatted summary
// line plus a table to a writer (stdout in production).
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

func (c *Console) NotifyScan(_ context.Context, s ports.ScanSummary) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] scan: %d puts, %d calls, %d total, stored=%v (%.2fs)\n",
		now, s.PutOpportunities, s.CallOpportunities, s.TotalOpportunities, s.StoredForExecution, s.DurationSeconds)

	if !c.table || len(s.Opportunities) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Underlying", "Right", "Strike", "Mid", "DTE", "Delta", "Score")
	for i, o := range s.Opportunities {
		strike, _ := o.Contract.Strike.Float64()
		table.Append(
			fmt.Sprintf("%d", i+1),
			o.Contract.Underlying,
			string(o.Contract.Right),
			fmt.Sprintf("%.2f", strike),
			fmt.Sprintf("%.2f", o.Mid()),
			fmt.Sprintf("%d", o.Contract.DTE),
			fmt.Sprintf("%.3f", o.Contract.Delta),
			fmt.Sprintf("%.4f", o.Score),
		)
	}
	table.Render()
	return nil
}

func (c *Console) NotifyRun(_ context.Context, s ports.RunSummary) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] run: evaluated=%d executed=%d failed=%d bp %.2f -> %.2f (%.2fs)\n",
		now, s.OpportunitiesEvaluated, s.TradesExecuted, s.TradesFailed,
		s.BuyingPowerStart, s.BuyingPowerEnd, s.DurationSeconds)
	return nil
}

func (c *Console) NotifyMonitor(_ context.Context, s ports.MonitorSummary) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] monitor: evaluated=%d closed=%d errors=%d (%.2fs)\n",
		now, s.PositionsEvaluated, s.PositionsClosed, s.Errors, s.DurationSeconds)
	return nil
}
