/*
plan.go - Installment schedule generation

PURPOSE:
  Builds the ordered installment schedule from settlement terms. Two modes:

  Fixed months:
    Installment 1 is the initial amount. The remaining balance is divided
    across the other N-1 months, floored to the rounding unit so every
    mid-schedule installment is a round figure. Whatever the flooring
    shaved off is patched onto the final installment (itself floored to
    the unit), so the schedule lands on the settlement amount for
    unit-aligned inputs.

  Explicit list:
    Installment 1 is the initial amount; the remaining amounts are taken
    verbatim from the terms.

DATE RULE:
  The first installment is due on the last calendar day of the month after
  creation - unless the plan was created on the 1st, in which case the
  creation month's own last day is used. Every later installment falls on
  the last day of each following month.

SEE ALSO:
  - types.go: Plan/Installment definitions
  - ledger/match.go: installment attribution against this schedule
*/
package settlement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRoundingUnit is the flooring granularity for fixed-months
// schedules. A business constant; override via Generate's unit argument.
var DefaultRoundingUnit = decimal.NewFromInt(100)

// =============================================================================
// GENERATION
// =============================================================================

// Generate builds the installment schedule for the given terms.
// settlementAmount is the full amount to be recovered; createdOn anchors
// the due-date stepping; unit is the flooring granularity for fixed-months
// mode (pass DefaultRoundingUnit unless configured otherwise).
func Generate(terms Terms, settlementAmount decimal.Decimal, createdOn time.Time, unit decimal.Decimal) ([]Installment, error) {
	if len(terms.Amounts) > 0 {
		return generateExplicit(terms, createdOn)
	}
	return generateFixedMonths(terms, settlementAmount, createdOn, unit)
}

func generateFixedMonths(terms Terms, settlementAmount decimal.Decimal, createdOn time.Time, unit decimal.Decimal) ([]Installment, error) {
	n := terms.Months
	if n < 1 {
		return nil, &InvalidTermsError{Reason: fmt.Sprintf("total months must be at least 1, got %d", n)}
	}
	if unit.LessThanOrEqual(decimal.Zero) {
		return nil, &InvalidTermsError{Reason: "rounding unit must be positive"}
	}

	remaining := settlementAmount.Sub(terms.InitialAmount)

	// Floor-and-patch: every mid-schedule installment is a round multiple
	// of the unit; the residual lands on the final installment.
	monthly := decimal.Zero
	patch := decimal.Zero
	if n > 1 {
		monthly = floorToUnit(remaining.Div(decimal.NewFromInt(int64(n-1))), unit)
		floored := monthly.Mul(decimal.NewFromInt(int64(n - 1)))
		patch = floorToUnit(remaining.Sub(floored), unit)
	}

	firstDue := firstDueDate(createdOn)
	schedule := make([]Installment, 0, n)
	accumulated := decimal.Zero

	for i := 0; i < n; i++ {
		amount := monthly
		if i == 0 {
			amount = terms.InitialAmount
		}
		if i == n-1 && i > 0 {
			amount = amount.Add(patch)
		}
		accumulated = accumulated.Add(amount)
		schedule = append(schedule, Installment{
			Seq:          i + 1,
			SettleAmount: amount,
			Accumulated:  accumulated,
			DueDate:      lastDayOfMonth(addMonths(firstDue, i)),
		})
	}
	return schedule, nil
}

func generateExplicit(terms Terms, createdOn time.Time) ([]Installment, error) {
	firstDue := firstDueDate(createdOn)

	schedule := make([]Installment, 0, len(terms.Amounts)+1)
	accumulated := terms.InitialAmount
	schedule = append(schedule, Installment{
		Seq:          1,
		SettleAmount: terms.InitialAmount,
		Accumulated:  accumulated,
		DueDate:      firstDue,
	})

	for i, amount := range terms.Amounts {
		accumulated = accumulated.Add(amount)
		schedule = append(schedule, Installment{
			Seq:          i + 2,
			SettleAmount: amount,
			Accumulated:  accumulated,
			DueDate:      lastDayOfMonth(addMonths(firstDue, i+1)),
		})
	}
	return schedule, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the structural invariants of a generated schedule.
// Plans loaded from storage should pass through this before use.
func Validate(schedule []Installment) error {
	if len(schedule) == 0 {
		return &InvalidTermsError{Reason: "schedule has no installments"}
	}
	for i, inst := range schedule {
		if inst.Seq != i+1 {
			return &InvalidTermsError{Reason: fmt.Sprintf("installment seq %d at position %d: sequence must be contiguous from 1", inst.Seq, i)}
		}
		if i > 0 {
			prev := schedule[i-1]
			if !inst.Accumulated.GreaterThan(prev.Accumulated) {
				return &InvalidTermsError{Reason: fmt.Sprintf("installment %d: accumulated amount must increase", inst.Seq)}
			}
			if !inst.DueDate.After(prev.DueDate) {
				return &InvalidTermsError{Reason: fmt.Sprintf("installment %d: due date must increase", inst.Seq)}
			}
		}
	}
	return nil
}

// InvalidTermsError reports malformed settlement terms or a corrupt schedule.
type InvalidTermsError struct {
	Reason string
}

func (e *InvalidTermsError) Error() string {
	return "invalid settlement terms: " + e.Reason
}

// =============================================================================
// DATE HELPERS
// =============================================================================

// firstDueDate returns the due date of installment 1: the last day of the
// month following createdOn, or of createdOn's own month when created on
// the 1st.
func firstDueDate(createdOn time.Time) time.Time {
	if createdOn.Day() == 1 {
		return lastDayOfMonth(createdOn)
	}
	return lastDayOfMonth(addMonths(createdOn, 1))
}

// lastDayOfMonth returns midnight UTC on the final calendar day of t's month.
func lastDayOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// addMonths steps by calendar months without day-of-month overflow:
// stepping from Jan 31 lands in February, not March.
func addMonths(t time.Time, n int) time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, n, 0)
}

func floorToUnit(d, unit decimal.Decimal) decimal.Decimal {
	return d.Div(unit).Floor().Mul(unit)
}
