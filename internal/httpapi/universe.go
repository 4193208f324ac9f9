package httpapi

// universe.go — builds Underlying snapshots for a scan cycle by
// fanning quote+bar fetches out across a worker pool. This is pure
// market-data fetch, never order submission, so the pipeline's
// sequential-submission guarantee is untouched: only scan-time data
// gathering runs in parallel.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// BrokerUniverse builds Underlying snapshots directly from a Broker's
// quote and daily-bar endpoints.
type BrokerUniverse struct {
	broker   ports.Broker
	clock    ports.Clock
	lookback time.Duration
	workers  int
}

func NewBrokerUniverse(broker ports.Broker, clock ports.Clock, lookback time.Duration, workers int) *BrokerUniverse {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &BrokerUniverse{broker: broker, clock: clock, lookback: lookback, workers: workers}
}

// Build fetches a fresh quote and bar history for every symbol,
// concurrently, and returns the subset that resolved successfully. A
// symbol whose data fetch fails is dropped rather than passed through
// with zeroed fields — Stage 1 would otherwise block it for the wrong
// reason.
func (u *BrokerUniverse) Build(ctx context.Context, symbols []string) []domain.Underlying {
	workCh := make(chan string, len(symbols))
	resultCh := make(chan domain.Underlying, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < u.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workCh {
				under, ok := u.fetch(ctx, symbol)
				if !ok {
					continue
				}
				resultCh <- under
			}
		}()
	}

	for _, s := range symbols {
		workCh <- s
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make([]domain.Underlying, 0, len(symbols))
	for under := range resultCh {
		out = append(out, under)
	}
	return out
}

func (u *BrokerUniverse) fetch(ctx context.Context, symbol string) (domain.Underlying, bool) {
	quote, err := u.broker.GetQuote(ctx, symbol, ports.FeedIEX)
	if err != nil {
		slog.Warn("universe: quote fetch failed, dropping symbol", "symbol", symbol, "err", err)
		return domain.Underlying{}, false
	}

	end := u.clock.Now()
	bars, err := u.broker.GetBars(ctx, symbol, end.Add(-u.lookback), end, ports.FeedIEX)
	if err != nil || len(bars) == 0 {
		slog.Warn("universe: bar fetch failed, dropping symbol", "symbol", symbol, "err", err)
		return domain.Underlying{}, false
	}

	var volSum float64
	for _, b := range bars {
		volSum += b.Volume
	}

	return domain.Underlying{
		Symbol:    symbol,
		Price:     quote.Last,
		AvgVolume: volSum / float64(len(bars)),
	}, true
}
