/*
stores.go - Persistence contracts

PURPOSE:
  Narrow interfaces the engine consumes. Implementations live in
  store/sqlite (production) and store/memory (tests). The engine never
  talks SQL; it only sees these contracts.

ATOMICITY:
  A reconciliation writes the ledger entry plus its derived records in one
  unit. Stores that can do this transactionally implement Committer; the
  engine detects the capability and falls back to sequential writes on
  stores that cannot (acceptable for the in-memory store, which is only
  reached through the engine's per-pair lock).

SEE ALSO:
  - store/sqlite/store.go
  - store/memory/store.go
*/
package ledger

import (
	"context"
	"time"

	"github.com/warp/settlement-engine/settlement"
)

// CaseStore reads and updates recovery cases.
type CaseStore interface {
	// FindCase returns nil, nil when the case does not exist.
	FindCase(ctx context.Context, id settlement.CaseID) (*Case, error)

	// UpdateCaseStatus sets the case status and appends a history entry.
	UpdateCaseStatus(ctx context.Context, id settlement.CaseID, status string, entry CaseStatusEntry) error
}

// SettlementStore persists settlement plans and their summary records.
type SettlementStore interface {
	// FindPlan returns nil, nil when the settlement does not exist.
	FindPlan(ctx context.Context, id settlement.SettlementID) (*settlement.Plan, error)

	// SavePlan persists a new plan and its summary record.
	// Returns ErrDuplicateSettlement when the identifier is taken.
	SavePlan(ctx context.Context, plan *settlement.Plan) error

	// UpdatePlanStatus transitions the plan's lifecycle status.
	UpdatePlanStatus(ctx context.Context, id settlement.SettlementID, status settlement.Status, at time.Time) error

	// UpdateSummaryStatus transitions the linked summary record.
	UpdateSummaryStatus(ctx context.Context, id settlement.SettlementID, status settlement.Status, at time.Time) error
}

// NegotiationStore looks up negotiation records by recovery company.
type NegotiationStore interface {
	// FindNegotiation returns nil, nil when the DRC has not negotiated.
	FindNegotiation(ctx context.Context, drcID settlement.DRCID) (*Negotiation, error)
}

// LedgerStore is the append-only ledger. No Update, no Delete.
type LedgerStore interface {
	// FindLatest returns the most recent entry for the pair, nil when the
	// pair has no ledger yet.
	FindLatest(ctx context.Context, caseID settlement.CaseID, settlementID settlement.SettlementID) (*Entry, error)

	// FindLatestNonReversal returns the most recent entry excluding the
	// debit types. Reversal handling reads the entry being reversed here.
	FindLatestNonReversal(ctx context.Context, caseID settlement.CaseID, settlementID settlement.SettlementID) (*Entry, error)

	// RefExists reports whether (accountNum, ref) was already reconciled.
	RefExists(ctx context.Context, accountNum string, ref int64) (bool, error)

	// Append writes one entry. The only write operation.
	Append(ctx context.Context, e Entry) error

	// ListEntries returns a case's entries in append order.
	ListEntries(ctx context.Context, caseID settlement.CaseID) ([]Entry, error)
}

// RejectionLog preserves submissions that failed validation.
type RejectionLog interface {
	AppendRejected(ctx context.Context, r RejectedTransaction) error
}

// BonusStore persists bonus records, append-only.
type BonusStore interface {
	AppendBonus(ctx context.Context, b BonusRecord) error
	ListBonuses(ctx context.Context, caseID settlement.CaseID) ([]BonusRecord, error)
}

// CommissionStore persists commission records, append-only.
type CommissionStore interface {
	AppendCommission(ctx context.Context, c CommissionRecord) error
}

// SequenceAllocator hands out strictly increasing numbers per named
// sequence, atomically. Never scan-then-increment.
type SequenceAllocator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Sequence names used by the engine.
const (
	SeqLedgerEntry = "ledger_entry"
	SeqBonus       = "bonus"
	SeqCommission  = "commission"
)

// ChequeMonitor issues the outbound clearance-monitoring request for a
// cheque that reached the settlement amount. Fire-and-forget: failures are
// logged by the caller, never fatal to the reconciliation.
type ChequeMonitor interface {
	RequestMonitoring(ctx context.Context, caseID settlement.CaseID, accountNum string, deadline time.Time) error
}

// Stores bundles every contract the engine needs.
type Stores struct {
	Cases        CaseStore
	Settlements  SettlementStore
	Negotiations NegotiationStore
	Ledger       LedgerStore
	Rejections   RejectionLog
	Bonuses      BonusStore
	Commissions  CommissionStore
	Sequences    SequenceAllocator
}

// Committer is the optional transactional capability. fn runs against
// store handles bound to one transaction; returning an error rolls back.
type Committer interface {
	WithTx(ctx context.Context, fn func(Stores) error) error
}
