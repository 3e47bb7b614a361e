/*
match.go - Installment attribution

PURPOSE:
  Maps a cumulative settled balance onto the settlement plan's installment
  schedule. First installment (lowest seq) whose accumulated amount covers
  the balance wins; a balance beyond the final accumulated amount means the
  plan is over-satisfied and completion should fire.
*/
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// Match is the result of attributing a balance to the schedule.
type Match struct {
	// Seq is the attributed installment sequence; 0 when over-satisfied.
	Seq int

	// Exact is set when the balance lands exactly on the installment's
	// accumulated boundary. Drives the Commissioned/Unresolved split.
	Exact bool

	// OverSatisfied is set when the balance exceeds the final accumulated
	// amount; the caller should treat the plan as complete.
	OverSatisfied bool
}

// MatchInstallment scans the schedule in ascending sequence order and
// returns the smallest-seq installment whose accumulated amount is >= the
// balance. Monotonic: a larger balance never matches a smaller seq.
func MatchInstallment(schedule []settlement.Installment, balance decimal.Decimal) Match {
	for _, inst := range schedule {
		if inst.Accumulated.GreaterThanOrEqual(balance) {
			return Match{
				Seq:   inst.Seq,
				Exact: inst.Accumulated.Equal(balance),
			}
		}
	}
	return Match{OverSatisfied: true}
}
