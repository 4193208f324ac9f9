package ports

import (
	"context"

	"github.com/mwagner-dev/wheelengine/internal/domain"
)

// Notifier reports cycle results to an operator-facing sink. The
// console implementation prints a formatted table; a future sink
// (webhook, pager) would satisfy the same interface.
type Notifier interface {
	NotifyScan(ctx context.Context, summary ScanSummary) error
	NotifyRun(ctx context.Context, summary RunSummary) error
	NotifyMonitor(ctx context.Context, summary MonitorSummary) error
}

// ScanSummary is what a /scan cycle reports for display.
type ScanSummary struct {
	ScanTime           string
	PutOpportunities   int
	CallOpportunities  int
	TotalOpportunities int
	DurationSeconds    float64
	StoredForExecution bool
	BlobPath           string
	Opportunities      []domain.Opportunity
}

// RunSummary is what a /run cycle reports for display.
type RunSummary struct {
	OpportunitiesEvaluated int
	TradesExecuted         int
	TradesFailed           int
	DurationSeconds        float64
	BuyingPowerStart       float64
	BuyingPowerEnd         float64
}

// MonitorSummary is what a /monitor cycle reports for display.
type MonitorSummary struct {
	PositionsEvaluated int
	PositionsClosed    int
	Errors             int
	DurationSeconds    float64
}
