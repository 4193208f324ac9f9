// Package gaprisk implements the historical and real-time gap checks
// that stand between a liquid underlying and a candidate for the
// option chain selector. A numerical fault anywhere in this package
// must surface as a blocked candidate, never a passed one — history
// in this strategy's predecessor includes an indexing bug in the
// historical-volatility calculation that silently passed a symbol it
// should have rejected.
package gaprisk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// Thresholds mirrors the Stage 2 / Stage 4 configuration knobs.
type Thresholds struct {
	MaxGapFrequency        float64
	MaxHistoricalVolatility float64
	MaxOvernightGapPercent  float64
	ExecutionGapThreshold   float64
}

// Filter evaluates historical and intraday gap risk for an underlying.
type Filter struct {
	broker  ports.Broker
	clock   ports.Clock
	lookback time.Duration
}

func New(broker ports.Broker, clock ports.Clock, lookback time.Duration) *Filter {
	return &Filter{broker: broker, clock: clock, lookback: lookback}
}

// HistoricalResult carries the metrics the historical check derives,
// so the caller can log them even on a pass.
type HistoricalResult struct {
	Passed            bool
	Reason            string
	GapFrequency      float64
	Volatility        float64
	CurrentGapPercent float64
}

// CheckHistorical is Stage 2: gap frequency, historical volatility, and
// the most recent overnight gap, all computed from daily bars. Any
// error fetching or reducing the bar series blocks the candidate with
// stage_2_detection_error — it never falls through to a pass.
func (f *Filter) CheckHistorical(ctx context.Context, underlying string, th Thresholds) HistoricalResult {
	end := f.clock.Now()
	start := end.Add(-f.lookback)

	bars, err := f.broker.GetBars(ctx, underlying, start, end, ports.FeedIEX)
	if err != nil {
		return HistoricalResult{Reason: "stage_2_detection_error"}
	}
	if len(bars) < 2 {
		return HistoricalResult{Reason: "stage_2_detection_error"}
	}

	gapFreq, err := gapFrequency(bars)
	if err != nil {
		return HistoricalResult{Reason: "stage_2_detection_error"}
	}
	hv, err := historicalVolatility(bars)
	if err != nil {
		return HistoricalResult{Reason: "stage_2_detection_error"}
	}
	currentGap, err := overnightGapPercent(bars)
	if err != nil {
		return HistoricalResult{Reason: "stage_2_detection_error"}
	}

	res := HistoricalResult{
		GapFrequency:      gapFreq,
		Volatility:        hv,
		CurrentGapPercent: currentGap,
	}

	if gapFreq > th.MaxGapFrequency {
		res.Reason = "gap_frequency_exceeded"
		return res
	}
	if hv > th.MaxHistoricalVolatility {
		res.Reason = "historical_volatility_exceeded"
		return res
	}
	if math.Abs(currentGap) > th.MaxOvernightGapPercent {
		res.Reason = "overnight_gap_exceeded"
		return res
	}

	res.Passed = true
	return res
}

// CheckExecution is Stage 4: the real-time intraday gap check run
// immediately before order submission, using the live quote rather
// than daily bars.
func (f *Filter) CheckExecution(ctx context.Context, underlying string, th Thresholds) (passed bool, reason string) {
	q, err := f.broker.GetQuote(ctx, underlying, ports.FeedIEX)
	if err != nil {
		return false, "stage_4_detection_error"
	}
	if q.PrevClose == 0 {
		return false, "stage_4_detection_error"
	}

	gapPct := (q.Last - q.PrevClose) / q.PrevClose
	if math.Abs(gapPct) > th.ExecutionGapThreshold {
		return false, "execution_gap_exceeded"
	}
	return true, ""
}

// gapFrequency is the fraction of sessions whose open differs from the
// prior session's close by more than 1%.
func gapFrequency(bars []domain.Bar) (float64, error) {
	if len(bars) < 2 {
		return 0, fmt.Errorf("gaprisk: need at least 2 bars, got %d", len(bars))
	}
	gaps := 0
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		if prevClose == 0 {
			return 0, fmt.Errorf("gaprisk: zero prior close at index %d", i-1)
		}
		gapPct := math.Abs((bars[i].Open - prevClose) / prevClose)
		if gapPct > 0.01 {
			gaps++
		}
	}
	return float64(gaps) / float64(len(bars)-1), nil
}

// historicalVolatility is the annualized standard deviation of daily
// close-to-close log returns.
func historicalVolatility(bars []domain.Bar) (float64, error) {
	if len(bars) < 2 {
		return 0, fmt.Errorf("gaprisk: need at least 2 bars, got %d", len(bars))
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close <= 0 || bars[i].Close <= 0 {
			return 0, fmt.Errorf("gaprisk: non-positive close at index %d or %d", i-1, i)
		}
		returns = append(returns, math.Log(bars[i].Close/bars[i-1].Close))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(252), nil
}

// overnightGapPercent is the most recent session's open-vs-prior-close
// gap, signed.
func overnightGapPercent(bars []domain.Bar) (float64, error) {
	n := len(bars)
	if n < 2 {
		return 0, fmt.Errorf("gaprisk: need at least 2 bars, got %d", n)
	}
	prevClose := bars[n-2].Close
	if prevClose == 0 {
		return 0, fmt.Errorf("gaprisk: zero prior close")
	}
	return (bars[n-1].Open - prevClose) / prevClose, nil
}
