/*
recorder.go - Bonus and commission side effects

PURPOSE:
  Derived accounting records emitted while committing a ledger entry:

  - success-rate bonus: the first time a pair's transaction classifies as
    Commissioned. Tags the entry's FirstSettledMonth.
  - completion-rate bonus: when the settlement amount is reached and the
    status cascade runs. Tags the entry's CompletedMonth.
  - reversal bonus: a Return Cheque that undoes an Unresolved Commission
    payment appends a negated, inactive bonus record. The original record
    is never touched.
  - commission record: commissioning amount x the configured rate for the
    case's commission rule.

  Sequence numbers come from the atomic allocator; records reference the
  originating ledger entry and are append-only.

SEE ALSO:
  - engine.go: calls these inside the commit unit
  - rules.go: commission rates
*/
package ledger

import (
	"context"
	"fmt"
	"time"
)

// BonusRecorder appends incentive records.
type BonusRecorder struct{}

// RecordSuccess appends the success-rate bonus for the entry.
func (r *BonusRecorder) RecordSuccess(ctx context.Context, s Stores, e *Entry, at time.Time) error {
	seq, err := s.Sequences.Next(ctx, SeqBonus)
	if err != nil {
		return fmt.Errorf("allocating bonus sequence: %w", err)
	}
	return s.Bonuses.AppendBonus(ctx, BonusRecord{
		Seq:       seq,
		EntryID:   e.ID,
		CaseID:    e.CaseID,
		DRCID:     e.DRCID,
		ROID:      e.ROID,
		Type:      BonusSuccessRate,
		Amount:    e.CommissioningAmount,
		Month:     yearMonth(e.Date),
		Active:    true,
		CreatedAt: at,
	})
}

// RecordCompletion appends the completion-rate bonus for the entry.
func (r *BonusRecorder) RecordCompletion(ctx context.Context, s Stores, e *Entry, at time.Time) error {
	seq, err := s.Sequences.Next(ctx, SeqBonus)
	if err != nil {
		return fmt.Errorf("allocating bonus sequence: %w", err)
	}
	return s.Bonuses.AppendBonus(ctx, BonusRecord{
		Seq:       seq,
		EntryID:   e.ID,
		CaseID:    e.CaseID,
		DRCID:     e.DRCID,
		ROID:      e.ROID,
		Type:      BonusCompletionRate,
		Amount:    e.CommissioningAmount,
		Month:     yearMonth(e.Date),
		Active:    true,
		CreatedAt: at,
	})
}

// RecordReversal appends the compensating bonus for a Return Cheque that
// claws back a payment previously classified Unresolved Commission. The
// amount is the negated commissioning amount of the reversed entry.
func (r *BonusRecorder) RecordReversal(ctx context.Context, s Stores, reversal *Entry, reversed *Entry, at time.Time) error {
	seq, err := s.Sequences.Next(ctx, SeqBonus)
	if err != nil {
		return fmt.Errorf("allocating bonus sequence: %w", err)
	}
	return s.Bonuses.AppendBonus(ctx, BonusRecord{
		Seq:       seq,
		EntryID:   reversal.ID,
		CaseID:    reversal.CaseID,
		DRCID:     reversed.DRCID,
		ROID:      reversed.ROID,
		Type:      BonusSuccessRate,
		Amount:    reversed.CommissioningAmount.Neg(),
		Month:     yearMonth(reversal.Date),
		Active:    false,
		CreatedAt: at,
	})
}

// CommissionRecorder appends payable commission records.
type CommissionRecorder struct {
	Rules Rules
}

// Record appends the commission derived from a payable entry.
func (r *CommissionRecorder) Record(ctx context.Context, s Stores, e *Entry, rule string, at time.Time) error {
	seq, err := s.Sequences.Next(ctx, SeqCommission)
	if err != nil {
		return fmt.Errorf("allocating commission sequence: %w", err)
	}
	return s.Commissions.AppendCommission(ctx, CommissionRecord{
		Seq:       seq,
		EntryID:   e.ID,
		CaseID:    e.CaseID,
		DRCID:     e.DRCID,
		ROID:      e.ROID,
		Rule:      rule,
		Category:  e.Category,
		Amount:    e.CommissioningAmount.Mul(r.Rules.RateFor(rule)),
		Status:    "Pending",
		CreatedAt: at,
	})
}
