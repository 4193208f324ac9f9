package pipeline

import (
	"time"

	"github.com/mwagner-dev/wheelengine/internal/chain"
	"github.com/mwagner-dev/wheelengine/internal/gaprisk"
)

// Config is the full set of threshold knobs the nine stages read.
// Every field is required unless noted; nullable caps use a pointer
// so "not configured" and "configured as zero" are distinguishable.
type Config struct {
	Universe []string

	MinStockPrice float64
	MaxStockPrice float64
	MinAvgVolume  float64

	MaxGapFrequency         float64
	MaxHistoricalVolatility float64
	MaxOvernightGapPercent  float64

	MaxEvaluated *int // nil or <=0 means pass-through

	ExecutionGapThreshold float64

	Chain chain.Criteria

	MaxExposurePerTicker    float64
	MaxPortfolioAllocation  float64
	MaxTotalPositions       int

	MaxNewPositionsPerCycle *int // nil means no limit

	SlippageFactor     float64
	OpportunityMaxAge  time.Duration
}

// evaluatedPassThrough reports whether the nullable evaluation cap is
// configured as pass-through (nil, or the zero-means-null convention).
func evaluatedPassThrough(cap *int) bool {
	return cap == nil || *cap <= 0
}

func newPositionsCapped(cap *int) bool {
	return cap != nil && *cap > 0
}

func gapThresholds(cfg Config) gaprisk.Thresholds {
	return gaprisk.Thresholds{
		MaxGapFrequency:         cfg.MaxGapFrequency,
		MaxHistoricalVolatility: cfg.MaxHistoricalVolatility,
		MaxOvernightGapPercent:  cfg.MaxOvernightGapPercent,
		ExecutionGapThreshold:   cfg.ExecutionGapThreshold,
	}
}
