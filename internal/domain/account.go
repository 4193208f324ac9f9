package domain

import "github.com/shopspring/decimal"

// Account is the broker's account snapshot, queried fresh at the start
// of every cycle and again before each order submission so buying
// power reflects fills the cycle itself has already made.
type Account struct {
	BuyingPower decimal.Decimal
	Equity      decimal.Decimal
	Blocked     bool // broker has frozen trading on this account
}
