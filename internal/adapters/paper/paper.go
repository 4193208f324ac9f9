// Package paper implements ports.Broker entirely in memory, for
// running scan/execute/monitor cycles against synthetic quotes and
// chains without a live brokerage connection.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwagner-dev/wheelengine/internal/apperr"
	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// Broker is an in-memory ports.Broker. Quotes, bars and chains are
// supplied by the caller (a fixture loader or a thin wrapper around a
// free data feed); order/position/account state is simulated here.
type Broker struct {
	mu sync.Mutex

	buyingPower decimal.Decimal
	equity      decimal.Decimal

	quotes map[string]ports.Quote
	bars   map[string][]domain.Bar
	chains map[string][]domain.OptionContract

	positions map[string]domain.Position  // keyed by symbol
	orders    map[string]domain.OpenOrder // keyed by order id
}

func New(startingCash decimal.Decimal) *Broker {
	return &Broker{
		buyingPower: startingCash,
		equity:      startingCash,
		quotes:      make(map[string]ports.Quote),
		bars:        make(map[string][]domain.Bar),
		chains:      make(map[string][]domain.OptionContract),
		positions:   make(map[string]domain.Position),
		orders:      make(map[string]domain.OpenOrder),
	}
}

// SeedQuote, SeedBars and SeedChain let callers (tests or a fixture
// loader) populate the synthetic market this broker serves.
func (b *Broker) SeedQuote(symbol string, q ports.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[symbol] = q
}

func (b *Broker) SeedBars(symbol string, bars []domain.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bars[symbol] = bars
}

func (b *Broker) SeedChain(underlying string, contracts []domain.OptionContract) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chains[underlying] = contracts
}

// SeedPosition lets a test establish an existing broker position
// (e.g. a held stock or an already-short put) before a cycle runs.
func (b *Broker) SeedPosition(p domain.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[p.Symbol] = p
}

func (b *Broker) SeedOrder(o domain.OpenOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.OrderID] = o
}

func (b *Broker) GetAccount(ctx context.Context) (domain.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.Account{BuyingPower: b.buyingPower, Equity: b.equity}, nil
}

func (b *Broker) GetQuote(ctx context.Context, symbol string, feed ports.Feed) (ports.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quotes[symbol]
	if !ok {
		return ports.Quote{}, apperr.New(apperr.KindDataShape, "paper: no quote seeded for "+symbol)
	}
	return q, nil
}

func (b *Broker) GetBars(ctx context.Context, symbol string, start, end time.Time, feed ports.Feed) ([]domain.Bar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bars, ok := b.bars[symbol]
	if !ok {
		return nil, apperr.New(apperr.KindDataShape, "paper: no bars seeded for "+symbol)
	}
	out := make([]domain.Bar, 0, len(bars))
	for _, bar := range bars {
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func (b *Broker) GetOptionChain(ctx context.Context, underlying string) ([]domain.OptionContract, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.OptionContract(nil), b.chains[underlying]...), nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	return out, nil
}

func (b *Broker) GetOrders(ctx context.Context, status ports.OrderStatusFilter) ([]domain.OpenOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.OpenOrder, 0, len(b.orders))
	for _, o := range b.orders {
		if status == ports.OrderStatusOpen && !o.Pending() {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// SubmitOrder fills immediately at the limit price and updates
// buying power and the simulated position book. This broker never
// rejects for price reasons; it exists to exercise the pipeline and
// executor logic, not to model fill probability.
func (b *Broker) SubmitOrder(ctx context.Context, req domain.PlaceOrderRequest, tif ports.TimeInForce) (domain.PlacedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	limit, _ := req.LimitPrice.Float64()

	o := domain.OpenOrder{
		OrderID:    id,
		Symbol:     req.OCCSymbol,
		Underlying: underlyingOf(req.OCCSymbol),
		Status:     domain.OrderFilled,
		Side:       string(req.Action),
		Quantity:   float64(req.Quantity),
		LimitPrice: limit,
	}
	b.orders[id] = o

	qty := decimal.NewFromInt(int64(req.Quantity) * 100)
	switch req.Action {
	case domain.ActionSellToOpen:
		collateral := req.LimitPrice.Mul(qty)
		b.buyingPower = b.buyingPower.Sub(collateral.Abs())
		pos := b.positions[req.OCCSymbol]
		pos.Symbol = req.OCCSymbol
		pos.Underlying = underlyingOf(req.OCCSymbol)
		pos.AssetClass = domain.AssetOption
		pos.Quantity -= float64(req.Quantity)
		entry, _ := req.LimitPrice.Float64()
		pos.EntryPrice = entry
		b.positions[req.OCCSymbol] = pos
	case domain.ActionBuyToClose:
		delete(b.positions, req.OCCSymbol)
		proceeds := req.LimitPrice.Mul(qty)
		b.buyingPower = b.buyingPower.Add(proceeds.Abs())
	}

	return domain.PlacedOrder{OrderID: id, OCCSymbol: req.OCCSymbol, Status: domain.OrderFilled, LimitPrice: req.LimitPrice}, nil
}

func underlyingOf(occSymbol string) string {
	for i, c := range occSymbol {
		if c >= '0' && c <= '9' {
			return occSymbol[:i]
		}
	}
	return occSymbol
}
