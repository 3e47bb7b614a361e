/*
rules.go - Tunable business constants

PURPOSE:
  The knobs product owners may change without a code release. Defaults
  preserve the values the business runs on today; factory/ loads overrides
  from a JSON rules file.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rules carries the configurable business constants of the engine.
type Rules struct {
	// RoundingUnit is the flooring granularity for fixed-months schedules.
	RoundingUnit decimal.Decimal

	// ChequeClearance is how long a completing cheque is monitored before
	// the settlement may close.
	ChequeClearance time.Duration

	// CommissionRates maps a case's commission rule to the payout rate.
	// Rules not present fall back to DefaultCommissionRate.
	CommissionRates map[string]decimal.Decimal

	DefaultCommissionRate decimal.Decimal
}

// DefaultRules returns the rates and windows currently in production use.
func DefaultRules() Rules {
	return Rules{
		RoundingUnit:          decimal.NewFromInt(100),
		ChequeClearance:       14 * 24 * time.Hour,
		CommissionRates:       map[string]decimal.Decimal{},
		DefaultCommissionRate: decimal.NewFromFloat(0.1),
	}
}

// RateFor returns the commission rate for a case's commission rule.
func (r Rules) RateFor(rule string) decimal.Decimal {
	if rate, ok := r.CommissionRates[rule]; ok {
		return rate
	}
	return r.DefaultCommissionRate
}
