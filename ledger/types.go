/*
Package ledger implements the transaction-reconciliation engine.

PURPOSE:
  Every incoming money movement (cash, cheque, bill, adjustment, dispute,
  returned cheque) is applied against a case's settlement plan. The engine
  derives the new running balances, attributes an installment, classifies
  commission eligibility, records bonus/commission side effects, and closes
  the settlement when it is paid off.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: ledger entries are written once, never updated or deleted.
  2. CHAINED: each entry derives from the immediately preceding entry for the
     same (case, settlement) pair; "current state" is always the latest entry.
  3. SERIALIZED: reconciliation for one pair never runs concurrently with
     itself (engine.go holds a per-pair lock).
  4. Corrections are compensating records (Return Cheque reversal), not edits.

SEE ALSO:
  - balance.go: running-credit/debit derivation
  - classify.go: commission categories
  - engine.go: orchestration
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// TransactionType identifies a money movement.
type TransactionType string

const (
	TxBill         TransactionType = "Bill"
	TxAdjustment   TransactionType = "Adjustment"
	TxDispute      TransactionType = "Dispute"
	TxCash         TransactionType = "Cash"
	TxCheque       TransactionType = "Cheque"
	TxReturnCheque TransactionType = "Return Cheque"
)

// IsDebit reports whether the type always charges the debt side.
// Bill raises the outstanding debt; Return Cheque claws back a cheque credit.
func (t TransactionType) IsDebit() bool {
	return t == TxBill || t == TxReturnCheque
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxBill, TxAdjustment, TxDispute, TxCash, TxCheque, TxReturnCheque:
		return true
	}
	return false
}

// =============================================================================
// COMMISSION CATEGORIES
// =============================================================================

// CommissionCategory labels a ledger entry's commission eligibility.
// Spelling is canonical; stores persist these strings verbatim.
type CommissionCategory string

const (
	Commissioned         CommissionCategory = "Commissioned"
	UnresolvedCommission CommissionCategory = "Unresolved Commission"
	PendingCommission    CommissionCategory = "Pending Commission"
	NoCommission         CommissionCategory = "No Commission"
)

// Payable reports whether the category produces bonus/commission records.
func (c CommissionCategory) Payable() bool {
	return c != NoCommission && c != ""
}

// =============================================================================
// TRANSACTIONS AND LEDGER ENTRIES
// =============================================================================

// Transaction is an incoming money movement, as submitted.
// (AccountNum, Ref) is the external uniqueness key: a resubmission with a
// previously seen reference is rejected without touching the ledger.
type Transaction struct {
	CaseID       settlement.CaseID
	SettlementID settlement.SettlementID
	AccountNum   string
	Ref          int64

	Type   TransactionType
	Amount decimal.Decimal
	Date   time.Time

	DRCID settlement.DRCID
	ROID  settlement.ROID
}

// Balances is the running state carried from entry to entry.
type Balances struct {
	RunningCredit decimal.Decimal
	RunningDebit  decimal.Decimal

	// Cumulative is credit minus debit, except forced to zero by a Bill:
	// billing raises the arrears, it is not settlement progress.
	Cumulative decimal.Decimal
}

// EntryID uniquely identifies a ledger entry (UUID).
type EntryID string

// Entry is one applied transaction with its resulting state. Immutable.
type Entry struct {
	ID  EntryID
	Seq int64 // global append order, allocated atomically

	Transaction
	Balances

	// InstallmentSeq is the schedule position the cumulative balance
	// reached; 0 when no installment applies (Bill, over-satisfied plan).
	InstallmentSeq int

	Category CommissionCategory

	// CommissioningAmount is the settled delta this entry contributed,
	// the base for bonus and commission records. Zero for debit types.
	CommissioningAmount decimal.Decimal

	// FirstSettledMonth / CompletedMonth are yyyymm markers set when the
	// entry triggers the first-settlement or completion bonus. Zero otherwise.
	FirstSettledMonth int
	CompletedMonth    int

	CreatedAt time.Time
}

// =============================================================================
// CASES AND NEGOTIATIONS
// =============================================================================

// Case is the recovery matter a settlement belongs to.
type Case struct {
	ID         settlement.CaseID
	AccountNum string

	Phase  settlement.Phase
	Status string

	// CommissionRule selects the commission rate from Rules.CommissionRates.
	CommissionRule string

	StatusHistory []CaseStatusEntry
}

// CaseStatusEntry is one status-history record on a case.
type CaseStatusEntry struct {
	Status    string
	Reason    string
	CreatedBy string
	CreatedAt time.Time
	ExpireAt  time.Time
}

// LeadStatusEntry returns the most recent history entry, or nil when the
// case has no history. Completion copies its expiry onto the Closed entry.
func (c *Case) LeadStatusEntry() *CaseStatusEntry {
	if len(c.StatusHistory) == 0 {
		return nil
	}
	return &c.StatusHistory[len(c.StatusHistory)-1]
}

// Negotiation marks that a recovery company has negotiated the case.
// Its creation time splits Pending Commission from the resolved categories.
type Negotiation struct {
	DRCID     settlement.DRCID
	ROID      settlement.ROID
	CreatedAt time.Time
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

// BonusType distinguishes the two incentive triggers.
type BonusType string

const (
	BonusSuccessRate    BonusType = "success rate"
	BonusCompletionRate BonusType = "completion rate"
)

// BonusRecord is an append-only incentive record. A Return Cheque reversal
// appends a record with a negated amount and Active=false; the original
// positive record is never touched.
type BonusRecord struct {
	Seq       int64
	EntryID   EntryID
	CaseID    settlement.CaseID
	DRCID     settlement.DRCID
	ROID      settlement.ROID
	Type      BonusType
	Amount    decimal.Decimal
	Month     int // yyyymm the bonus accrues to
	Active    bool
	CreatedAt time.Time
}

// CommissionRecord is the payable commission derived from a ledger entry.
type CommissionRecord struct {
	Seq      int64
	EntryID  EntryID
	CaseID   settlement.CaseID
	DRCID    settlement.DRCID
	ROID     settlement.ROID
	Rule     string
	Category CommissionCategory

	// Amount = commissioning amount x the rule's configured rate.
	Amount decimal.Decimal

	Status    string // Pending until paid out downstream
	CreatedAt time.Time
}

// RejectedTransaction preserves a submission that failed validation.
// Kept outside the ledger so invalid input never pollutes the chain.
type RejectedTransaction struct {
	ID          EntryID
	Transaction Transaction
	Reason      string
	CreatedAt   time.Time
}

// =============================================================================
// RECONCILIATION RESULT
// =============================================================================

// Outcome is the high-level disposition of one Reconcile call.
type Outcome string

const (
	// OutcomeApplied: a ledger entry was written.
	OutcomeApplied Outcome = "applied"

	// OutcomeAwaitingNegotiation: first transaction for the pair but no
	// negotiation exists yet. Expected workflow state, not an error, and
	// nothing is written.
	OutcomeAwaitingNegotiation Outcome = "awaiting_negotiation"

	// OutcomeRejected: validation failed; the raw transaction went to the
	// rejection log.
	OutcomeRejected Outcome = "rejected"
)

// Result reports what a Reconcile call did.
type Result struct {
	Outcome  Outcome
	EntryID  EntryID
	Category CommissionCategory

	// Completed is set when the cumulative balance reached the settlement
	// amount and the status cascade ran. A cheque reaching the amount sets
	// PendingClearance instead: closure waits for the monitoring result.
	Completed        bool
	PendingClearance bool
}

// yearMonth renders t as a yyyymm tag.
func yearMonth(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}
