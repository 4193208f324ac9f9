// Package alpaca adapts the Alpaca brokerage API client to
// ports.Broker. Every call is passed through a token-bucket limiter so
// a burst of chain fetches during a scan cannot trip Alpaca's
// per-minute rate limit and turn a slow cycle into a failed one.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"time"

	alpacasdk "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	marketdata "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mwagner-dev/wheelengine/internal/apperr"
	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// Config is the connection configuration for a single Alpaca account.
type Config struct {
	APIKey      string
	APISecret   string
	Paper       bool
	RateLimitRPS float64
	RateBurst    int
}

// Broker implements ports.Broker against the live (or paper) Alpaca
// trading and market-data APIs.
type Broker struct {
	trading *alpacasdk.Client
	data    *marketdata.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Broker {
	baseURL := "https://api.alpaca.markets"
	if cfg.Paper {
		baseURL = "https://paper-api.alpaca.markets"
	}

	trading := alpacasdk.NewClient(alpacasdk.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   baseURL,
	})
	data := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	})

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 3
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}

	return &Broker{trading: trading, data: data, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (b *Broker) wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.KindTransient, "alpaca: rate limiter wait", err)
	}
	return nil
}

func (b *Broker) GetAccount(ctx context.Context) (domain.Account, error) {
	if err := b.wait(ctx); err != nil {
		return domain.Account{}, err
	}
	acct, err := b.trading.GetAccount()
	if err != nil {
		return domain.Account{}, classify(err)
	}
	return domain.Account{
		BuyingPower: acct.BuyingPower,
		Equity:      acct.Equity,
		Blocked:     acct.TradingBlocked || acct.AccountBlocked,
	}, nil
}

func (b *Broker) GetQuote(ctx context.Context, symbol string, feed ports.Feed) (ports.Quote, error) {
	if err := b.wait(ctx); err != nil {
		return ports.Quote{}, err
	}
	q, err := b.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{Feed: toDataFeed(feed)})
	if err != nil {
		return ports.Quote{}, classify(err)
	}
	trade, err := b.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: toDataFeed(feed)})
	last := 0.0
	if err == nil {
		last = trade.Price
	}
	return ports.Quote{
		Symbol:    symbol,
		Bid:       q.BidPrice,
		Ask:       q.AskPrice,
		Last:      last,
		Timestamp: q.Timestamp,
	}, nil
}

func (b *Broker) GetBars(ctx context.Context, symbol string, start, end time.Time, feed ports.Feed) ([]domain.Bar, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	bars, err := b.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      toDataFeed(feed),
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.Bar, 0, len(bars))
	for _, bar := range bars {
		out = append(out, domain.Bar{
			Timestamp: bar.Timestamp,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    float64(bar.Volume),
		})
	}
	return out, nil
}

func (b *Broker) GetOptionChain(ctx context.Context, underlying string) ([]domain.OptionContract, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	contracts, err := b.trading.GetOptionContracts(alpacasdk.GetOptionContractsRequest{
		UnderlyingSymbols: []string{underlying},
		Status:            "active",
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		snapshot, serr := b.data.GetOptionSnapshot(c.Symbol, marketdata.GetOptionSnapshotRequest{})
		if serr != nil {
			continue
		}
		right := domain.RightPut
		if c.Type == "call" {
			right = domain.RightCall
		}
		exp, _ := time.Parse("2006-01-02", c.ExpirationDate)
		dte := int(time.Until(exp).Hours() / 24)

		delta := 0.0
		if snapshot.Greeks != nil {
			delta = snapshot.Greeks.Delta
		}

		var bid, ask decimal.Decimal
		if snapshot.LatestQuote != nil {
			bid = decimal.NewFromFloat(snapshot.LatestQuote.BidPrice)
			ask = decimal.NewFromFloat(snapshot.LatestQuote.AskPrice)
		}

		openInterest := int64(0)
		volume := int64(0)
		if snapshot.LatestTrade != nil {
			volume = int64(snapshot.LatestTrade.Size)
		}

		out = append(out, domain.OptionContract{
			OCCSymbol:    c.Symbol,
			Underlying:   underlying,
			Right:        right,
			Strike:       c.StrikePrice,
			Expiration:   exp,
			DTE:          dte,
			Bid:          bid,
			Ask:          ask,
			Delta:        delta,
			OpenInterest: openInterest,
			Volume:       volume,
		})
	}
	return out, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	positions, err := b.trading.GetPositions()
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		qty, _ := p.Qty.Float64()
		entry, _ := p.AvgEntryPrice.Float64()
		mv, _ := p.MarketValue.Float64()
		pnl, _ := p.UnrealizedPL.Float64()

		assetClass := domain.AssetEquity
		var right domain.Right
		underlying := p.Symbol
		if p.AssetClass == "us_option" {
			assetClass = domain.AssetOption
			underlying, right = parseOCC(p.Symbol)
		}

		out = append(out, domain.Position{
			Symbol:        p.Symbol,
			Underlying:    underlying,
			AssetClass:    assetClass,
			Right:         right,
			Quantity:      qty,
			EntryPrice:    entry,
			MarketValue:   mv,
			UnrealizedPnL: pnl,
		})
	}
	return out, nil
}

func (b *Broker) GetOrders(ctx context.Context, status ports.OrderStatusFilter) ([]domain.OpenOrder, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	req := alpacasdk.GetOrdersRequest{Status: "open"}
	if status == ports.OrderStatusAll || status == "" {
		req.Status = "all"
	}
	orders, err := b.trading.GetOrders(req)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.OpenOrder, 0, len(orders))
	for _, o := range orders {
		qty, _ := o.Qty.Float64()
		var limit float64
		if o.LimitPrice != nil {
			limit, _ = o.LimitPrice.Float64()
		}
		underlying, _ := parseOCC(o.Symbol)
		if underlying == "" {
			underlying = o.Symbol
		}
		out = append(out, domain.OpenOrder{
			OrderID:    o.ID,
			Symbol:     o.Symbol,
			Underlying: underlying,
			Status:     toOrderStatus(string(o.Status)),
			Side:       string(o.Side),
			Quantity:   qty,
			LimitPrice: limit,
		})
	}
	return out, nil
}

func (b *Broker) SubmitOrder(ctx context.Context, req domain.PlaceOrderRequest, tif ports.TimeInForce) (domain.PlacedOrder, error) {
	if err := b.wait(ctx); err != nil {
		return domain.PlacedOrder{}, err
	}

	side := alpacasdk.Sell
	if req.Action == domain.ActionBuyToClose {
		side = alpacasdk.Buy
	}

	qty := decimal.NewFromInt(int64(req.Quantity))
	limit := req.LimitPrice
	placeReq := alpacasdk.PlaceOrderRequest{
		Symbol:      req.OCCSymbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpacasdk.Limit,
		TimeInForce: toSDKTimeInForce(tif),
		LimitPrice:  &limit,
	}

	order, err := b.trading.PlaceOrder(placeReq)
	if err != nil {
		return domain.PlacedOrder{}, classify(err)
	}

	return domain.PlacedOrder{
		OrderID:    order.ID,
		OCCSymbol:  order.Symbol,
		Status:     toOrderStatus(string(order.Status)),
		LimitPrice: req.LimitPrice,
	}, nil
}

func toDataFeed(f ports.Feed) marketdata.Feed {
	switch f {
	case ports.FeedSIP:
		return marketdata.SIP
	case ports.FeedOPRA:
		return marketdata.OPRA
	default:
		return marketdata.IEX
	}
}

func toSDKTimeInForce(tif ports.TimeInForce) alpacasdk.TimeInForce {
	if tif == ports.TIFGTC {
		return alpacasdk.GTC
	}
	return alpacasdk.Day
}

func toOrderStatus(s string) domain.OrderStatus {
	switch s {
	case "new", "accepted", "pending_new":
		return domain.OrderPendingNew
	case "open", "accepted_for_bidding", "partially_filled":
		return domain.OrderOpen
	case "filled":
		return domain.OrderFilled
	case "canceled", "expired", "replaced":
		return domain.OrderCanceled
	case "rejected":
		return domain.OrderRejected
	default:
		return domain.OrderOpen
	}
}

// parseOCC splits an OCC option symbol into its root underlying and
// right. OCC symbols are ROOT + YYMMDD + C/P + strike*1000, so the
// right is the first non-digit character after the 6-digit date.
func parseOCC(symbol string) (underlying string, right domain.Right) {
	for i := len(symbol) - 1; i >= 0; i-- {
		c := symbol[i]
		if c == 'C' || c == 'P' {
			root := symbol[:i]
			for len(root) > 0 && root[len(root)-1] >= '0' && root[len(root)-1] <= '9' {
				root = root[:len(root)-1]
			}
			right = domain.RightPut
			if c == 'C' {
				right = domain.RightCall
			}
			return root, right
		}
	}
	return symbol, ""
}

// classify maps an Alpaca SDK error to our taxonomy. A 4xx APIError
// means the request itself was rejected (bad symbol, insufficient
// qualification, market closed for the order type) and retrying it
// unchanged would just be rejected again, so those are Permanent.
// Anything else — network errors, 5xx, timeouts — is Transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *alpacasdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apperr.Wrap(apperr.KindPermanent, fmt.Sprintf("alpaca: %v", err), err)
	}
	return apperr.Wrap(apperr.KindTransient, fmt.Sprintf("alpaca: %v", err), err)
}
