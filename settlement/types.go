/*
Package settlement defines settlement plans and the installment schedule
generator.

PURPOSE:
  A settlement plan is the agreed repayment schedule for a case's arrears:
  an initial payment followed by monthly installments, each due on the last
  calendar day of its month. The plan is generated once at creation time and
  never mutated afterwards - the ledger engine only reads it to attribute
  incoming payments to installments.

KEY CONCEPTS:
  - Plan: the full settlement agreement (amount, phase, status, schedule)
  - Installment: one scheduled payment with a running accumulated total
  - Terms: how the schedule is derived (fixed month count or explicit list)

INVARIANTS:
  1. Installment sequence numbers are contiguous starting at 1.
  2. Accumulated amounts are strictly increasing.
  3. Due dates are strictly increasing, always the last day of a month.
  4. In fixed-months mode the final accumulated amount equals the
     settlement amount (given unit-aligned inputs, see plan.go).

SEE ALSO:
  - plan.go: schedule generation
  - ledger/: consumes the schedule for installment attribution
*/
package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SettlementID int64
type CaseID int64
type DRCID int64
type ROID int64

// =============================================================================
// PHASES AND STATUSES
// =============================================================================

// Phase is the recovery phase a case or settlement is in.
type Phase string

const (
	PhaseNegotiation    Phase = "Negotiation"
	PhaseMediationBoard Phase = "Mediation Board"
	PhaseLOD            Phase = "LOD"
	PhaseLitigation     Phase = "Litigation"
	PhaseWRIT           Phase = "WRIT"
)

// CommissionEligible reports whether recovery-agent commission can accrue
// in this phase. Only the two pre-legal phases qualify.
func (p Phase) CommissionEligible() bool {
	return p == PhaseNegotiation || p == PhaseMediationBoard
}

// Status is the lifecycle state of a settlement plan.
// Completed is terminal and entered exactly once.
type Status string

const (
	StatusOpen        Status = "Open"
	StatusOpenPending Status = "Open_Pending"
	StatusActive      Status = "Active"
	StatusWithDraw    Status = "WithDraw"
	StatusCompleted   Status = "Completed"
)

// PlanType selects how the installment schedule is derived from Terms.
type PlanType string

const (
	// TypeFixedMonths divides the post-initial balance evenly across a
	// fixed number of months, floored to the rounding unit.
	TypeFixedMonths PlanType = "Lump+FixedMonths"

	// TypeExplicitList takes the post-initial installment amounts verbatim.
	TypeExplicitList PlanType = "Lump+ExplicitList"
)

// =============================================================================
// PLAN AND INSTALLMENTS
// =============================================================================

// Installment is one scheduled payment. Immutable once generated.
type Installment struct {
	Seq          int             // 1-based, contiguous
	SettleAmount decimal.Decimal // amount due for this installment
	Accumulated  decimal.Decimal // running total through this installment
	DueDate      time.Time       // last calendar day of its month
}

// Plan is a settlement plan owned by a case.
type Plan struct {
	SettlementID SettlementID
	CaseID       CaseID
	Type         PlanType
	Phase        Phase
	Status       Status

	Amount        decimal.Decimal // total settlement amount
	InitialAmount decimal.Decimal // first payment (installment 1)
	Installments  []Installment

	DRCID DRCID
	ROID  ROID

	CreatedBy string
	CreatedOn time.Time
	StatusOn  time.Time
	ExpireAt  time.Time
}

// Final returns the last installment of the schedule.
// Callers must not invoke it on an empty schedule.
func (p *Plan) Final() Installment {
	return p.Installments[len(p.Installments)-1]
}

// Completed reports whether the plan has reached its terminal status.
func (p *Plan) Completed() bool {
	return p.Status == StatusCompleted
}

// Terms describes how the installment schedule should be built.
// Exactly one of Months / Amounts is meaningful, selected by the plan type:
// fixed-months mode uses Months, explicit-list mode uses Amounts.
type Terms struct {
	InitialAmount decimal.Decimal
	Months        int               // total installment count, including the initial
	Amounts       []decimal.Decimal // post-initial installment amounts, in order
}
