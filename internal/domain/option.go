package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Right is the side of an option contract.
type Right string

const (
	RightPut  Right = "PUT"
	RightCall Right = "CALL"
)

// OptionContract is a single contract returned by the broker's option
// chain endpoint. Bid/ask/strike use decimal.Decimal to avoid the
// rounding drift float64 introduces over 100-share multipliers; delta,
// open interest and volume are not money and stay as plain numbers.
type OptionContract struct {
	OCCSymbol    string
	Underlying   string
	Right        Right
	Strike       decimal.Decimal
	Expiration   time.Time
	DTE          int
	Bid          decimal.Decimal
	Ask          decimal.Decimal
	Delta        float64
	OpenInterest int64
	Volume       int64
}

// Mid is (bid+ask)/2, rounded to the cent — the broker quotes options in
// penny or nickel ticks, and a raw decimal midpoint can land on a
// half-cent that no order book actually prices at.
func (c OptionContract) Mid() decimal.Decimal {
	return c.Bid.Add(c.Ask).Div(decimal.NewFromInt(2)).Round(2)
}

// AbsDelta returns |delta|, the convention used throughout the pipeline
// for assignment-probability thresholds regardless of put/call sign.
func (c OptionContract) AbsDelta() float64 {
	if c.Delta < 0 {
		return -c.Delta
	}
	return c.Delta
}

// Valid checks the structural invariants a contract must satisfy before
// it can be scored: bid <= ask and |delta| <= 1. A violation here means
// the broker fed us an impossible quote; the option chain selector
// drops such a contract without counting or logging it.
func (c OptionContract) Valid() bool {
	if c.Bid.GreaterThan(c.Ask) {
		return false
	}
	if c.AbsDelta() > 1.0 {
		return false
	}
	return true
}
