/*
classify.go - Commission classification

PURPOSE:
  One authoritative decision procedure for a transaction's commission
  category. Pure function over an explicit input record, so every branch is
  unit-testable without stores.

PRIORITY ORDER:
  1. Debit types (Bill, Return Cheque) never earn commission.
  2. Commission only accrues in the pre-legal phases (Negotiation,
     Mediation Board) - both the case's and the plan's phase must qualify,
     and a plan must exist.
  3. First transaction of a pair: dated before the negotiation was created
     -> Pending Commission; amount short of the plan's initial amount ->
     Unresolved Commission; otherwise Commissioned.
  4. Follow-up transaction: installment 1 exactly satisfied, or any
     installment beyond 1 reached -> Commissioned; partial progress ->
     Unresolved Commission.

SEE ALSO:
  - engine.go: builds Classification from loaded state
  - recorder.go: fires on any payable category
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// Classification is everything the commission decision depends on.
// The engine assembles it from the loaded case, plan, and prior entry;
// tests construct it directly.
type Classification struct {
	Type      TransactionType
	CasePhase settlement.Phase

	HasPlan   bool
	PlanPhase settlement.Phase

	// FirstOfPair is set when no prior ledger entry exists for the
	// (case, settlement) pair.
	FirstOfPair bool

	// First-of-pair inputs.
	NegotiatedAt  time.Time
	TxDate        time.Time
	Amount        decimal.Decimal
	InitialAmount decimal.Decimal

	// Follow-up inputs, from MatchInstallment.
	InstallmentSeq int
	ExactBoundary  bool
}

// Classify returns the commission category for the given inputs.
func Classify(in Classification) CommissionCategory {
	if in.Type.IsDebit() {
		return NoCommission
	}
	if !in.HasPlan || !in.CasePhase.CommissionEligible() || !in.PlanPhase.CommissionEligible() {
		return NoCommission
	}

	if in.FirstOfPair {
		if in.TxDate.Before(in.NegotiatedAt) {
			return PendingCommission
		}
		if in.Amount.LessThan(in.InitialAmount) {
			return UnresolvedCommission
		}
		return Commissioned
	}

	if in.InstallmentSeq > 1 || (in.InstallmentSeq == 1 && in.ExactBoundary) {
		return Commissioned
	}
	return UnresolvedCommission
}
