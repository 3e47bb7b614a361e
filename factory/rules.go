/*
Package factory provides JSON to Go business-rules conversion.

PURPOSE:
  Converts a JSON rules document into ledger.Rules. The tunable business
  constants - rounding unit, cheque clearance window, commission rates -
  can be changed by operations without a code release; absent fields keep
  the production defaults.

JSON SCHEMA:
  {
    "rounding_unit": "100",
    "cheque_clearance_days": 14,
    "default_commission_rate": "0.1",
    "commission_rates": {
      "standard": "0.1",
      "enterprise": "0.08"
    }
  }

USAGE:
  rules, err := factory.LoadRules("./config/rules.json")
  engine := ledger.NewEngine(stores, rules, logger)

SEE ALSO:
  - ledger/rules.go: the Rules type and defaults
  - cmd/server/main.go: wires the -rules flag
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
)

// RulesJSON is the JSON representation of the business rules.
type RulesJSON struct {
	RoundingUnit          string            `json:"rounding_unit,omitempty"`
	ChequeClearanceDays   int               `json:"cheque_clearance_days,omitempty"`
	DefaultCommissionRate string            `json:"default_commission_rate,omitempty"`
	CommissionRates       map[string]string `json:"commission_rates,omitempty"`
}

// ParseRules converts a JSON document into ledger.Rules, starting from
// the defaults and overriding only what the document sets.
func ParseRules(data []byte) (ledger.Rules, error) {
	rules := ledger.DefaultRules()

	var doc RulesJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return rules, fmt.Errorf("parsing rules document: %w", err)
	}

	if doc.RoundingUnit != "" {
		unit, err := decimal.NewFromString(doc.RoundingUnit)
		if err != nil {
			return rules, fmt.Errorf("invalid rounding_unit %q: %w", doc.RoundingUnit, err)
		}
		if unit.LessThanOrEqual(decimal.Zero) {
			return rules, fmt.Errorf("rounding_unit must be positive, got %s", unit)
		}
		rules.RoundingUnit = unit
	}

	if doc.ChequeClearanceDays < 0 {
		return rules, fmt.Errorf("cheque_clearance_days must not be negative, got %d", doc.ChequeClearanceDays)
	}
	if doc.ChequeClearanceDays > 0 {
		rules.ChequeClearance = time.Duration(doc.ChequeClearanceDays) * 24 * time.Hour
	}

	if doc.DefaultCommissionRate != "" {
		rate, err := decimal.NewFromString(doc.DefaultCommissionRate)
		if err != nil {
			return rules, fmt.Errorf("invalid default_commission_rate %q: %w", doc.DefaultCommissionRate, err)
		}
		rules.DefaultCommissionRate = rate
	}

	for rule, raw := range doc.CommissionRates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return rules, fmt.Errorf("invalid commission rate for %q: %w", rule, err)
		}
		if rate.IsNegative() {
			return rules, fmt.Errorf("commission rate for %q must not be negative", rule)
		}
		rules.CommissionRates[rule] = rate
	}

	return rules, nil
}

// LoadRules reads and parses a rules file. A missing path returns the
// defaults without error.
func LoadRules(path string) (ledger.Rules, error) {
	if path == "" {
		return ledger.DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ledger.DefaultRules(), nil
		}
		return ledger.Rules{}, fmt.Errorf("reading rules file %s: %w", path, err)
	}
	return ParseRules(data)
}
