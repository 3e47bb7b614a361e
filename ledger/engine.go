/*
engine.go - Reconciliation orchestration

PURPOSE:
  One Reconcile call applies one incoming transaction:

    validate -> lock pair -> load case/plan/prior entry -> balances ->
    installment attribution -> commission category -> build entry ->
    commit (entry + bonus + commission + completion cascade) ->
    queue cheque monitoring if clearance is pending

STATE MACHINE per (case, settlement):
  NoLedgerYet -> Active     first transaction, negotiation required
  Active      -> Active     subsequent transactions chain off the latest entry
  Active      -> Completed  cumulative >= settlement amount (non-cheque);
                            a completing cheque defers closure to the
                            clearance monitor and stays Active

FAILURE SEMANTICS:
  Unknown case, unknown settlement, and duplicate references are written to
  the rejection log and returned as input errors; nothing touches the
  ledger. Store failures during commit fail the whole reconciliation with
  nothing written (transactional stores roll back). The outbound
  cheque-monitoring call is queued outside the critical section and is
  never fatal.

SEE ALSO:
  - classify.go, balance.go, match.go: the pure pieces
  - recorder.go, completion.go: commit-time side effects
*/
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine reconciles transactions against settlement plans.
type Engine struct {
	stores Stores
	rules  Rules
	logger *slog.Logger

	// Committer, when set, wraps each commit in a store transaction.
	Committer Committer

	// Monitor receives clearance-monitoring requests for completing
	// cheques. When nil, pending-clearance completions are only logged.
	Monitor ChequeMonitor

	bonuses     BonusRecorder
	commissions CommissionRecorder
	completion  CompletionHandler

	locks keyedMutex
	now   func() time.Time
}

// NewEngine wires an engine over the given stores.
func NewEngine(stores Stores, rules Rules, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		stores:      stores,
		rules:       rules,
		logger:      logger,
		bonuses:     BonusRecorder{},
		commissions: CommissionRecorder{Rules: rules},
		now:         time.Now,
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// =============================================================================
// RECONCILE
// =============================================================================

// Reconcile applies one transaction and returns its disposition.
// Serialized per (case, settlement) pair; safe for concurrent callers.
func (e *Engine) Reconcile(ctx context.Context, tx Transaction) (Result, error) {
	if !tx.Type.Valid() {
		return e.reject(ctx, tx, fmt.Sprintf("unknown transaction type %q", tx.Type), ErrInvalidTransaction)
	}
	if tx.Ref == 0 {
		return e.reject(ctx, tx, "missing transaction reference", ErrInvalidTransaction)
	}

	unlock := e.locks.lock(pairKey{tx.CaseID, tx.SettlementID})
	defer unlock()

	caseRec, err := e.stores.Cases.FindCase(ctx, tx.CaseID)
	if err != nil {
		return Result{}, fmt.Errorf("loading case %d: %w", tx.CaseID, err)
	}
	if caseRec == nil {
		return e.reject(ctx, tx, "case not found", ErrCaseNotFound)
	}

	dup, err := e.stores.Ledger.RefExists(ctx, tx.AccountNum, tx.Ref)
	if err != nil {
		return Result{}, fmt.Errorf("checking reference %s/%d: %w", tx.AccountNum, tx.Ref, err)
	}
	if dup {
		return e.reject(ctx, tx, "duplicate transaction reference", ErrDuplicateReference)
	}

	plan, err := e.stores.Settlements.FindPlan(ctx, tx.SettlementID)
	if err != nil {
		return Result{}, fmt.Errorf("loading settlement %d: %w", tx.SettlementID, err)
	}
	if plan == nil {
		return e.reject(ctx, tx, "settlement not found", ErrSettlementNotFound)
	}

	prior, err := e.stores.Ledger.FindLatest(ctx, tx.CaseID, tx.SettlementID)
	if err != nil {
		return Result{}, fmt.Errorf("loading latest entry: %w", err)
	}

	cls := Classification{
		Type:      tx.Type,
		CasePhase: caseRec.Phase,
		HasPlan:   true,
		PlanPhase: plan.Phase,
	}
	if prior == nil {
		neg, err := e.stores.Negotiations.FindNegotiation(ctx, tx.DRCID)
		if err != nil {
			return Result{}, fmt.Errorf("loading negotiation for drc %d: %w", tx.DRCID, err)
		}
		if neg == nil {
			e.logger.Info("reconcile deferred: negotiation has not happened yet",
				"case", tx.CaseID, "settlement", tx.SettlementID, "drc", tx.DRCID)
			return Result{Outcome: OutcomeAwaitingNegotiation}, nil
		}
		cls.FirstOfPair = true
		cls.NegotiatedAt = neg.CreatedAt
		cls.TxDate = tx.Date
		cls.Amount = tx.Amount
		cls.InitialAmount = plan.InitialAmount
	}

	var priorBal *Balances
	if prior != nil {
		priorBal = &prior.Balances
	}
	bal := Apply(priorBal, tx.Type, tx.Amount)

	m := MatchInstallment(plan.Installments, bal.Cumulative)
	cls.InstallmentSeq = m.Seq
	cls.ExactBoundary = m.Exact
	if m.OverSatisfied {
		// Beyond the final boundary counts as the final installment for
		// classification purposes.
		cls.InstallmentSeq = plan.Final().Seq
		cls.ExactBoundary = false
	}

	category := Classify(cls)

	commissioning := decimal.Zero
	if category.Payable() {
		commissioning = tx.Amount.Abs()
	}

	completed := bal.Cumulative.GreaterThanOrEqual(plan.Amount) && !plan.Completed()
	pendingClearance := completed && tx.Type == TxCheque

	now := e.now()
	seq, err := e.stores.Sequences.Next(ctx, SeqLedgerEntry)
	if err != nil {
		return Result{}, fmt.Errorf("allocating entry sequence: %w", err)
	}

	entry := Entry{
		ID:                  EntryID(uuid.NewString()),
		Seq:                 seq,
		Transaction:         tx,
		Balances:            bal,
		InstallmentSeq:      m.Seq,
		Category:            category,
		CommissioningAmount: commissioning,
		CreatedAt:           now,
	}
	// First-settled tag rides the chain so later entries can tell whether
	// the success bonus already fired.
	firstCommission := false
	if prior != nil {
		entry.FirstSettledMonth = prior.FirstSettledMonth
	}
	if category == Commissioned && entry.FirstSettledMonth == 0 {
		firstCommission = true
		entry.FirstSettledMonth = yearMonth(tx.Date)
	}
	if completed && !pendingClearance {
		entry.CompletedMonth = yearMonth(tx.Date)
	}

	// Reversal target is read before the new entry lands.
	var reversed *Entry
	if tx.Type == TxReturnCheque {
		reversed, err = e.stores.Ledger.FindLatestNonReversal(ctx, tx.CaseID, tx.SettlementID)
		if err != nil {
			return Result{}, fmt.Errorf("loading reversal target: %w", err)
		}
	}

	commit := func(s Stores) error {
		if err := s.Ledger.Append(ctx, entry); err != nil {
			return fmt.Errorf("appending entry: %w", err)
		}
		if reversed != nil && reversed.Category == UnresolvedCommission {
			if err := e.bonuses.RecordReversal(ctx, s, &entry, reversed, now); err != nil {
				return err
			}
		}
		if category.Payable() {
			if firstCommission {
				if err := e.bonuses.RecordSuccess(ctx, s, &entry, now); err != nil {
					return err
				}
			}
			if completed && !pendingClearance {
				if err := e.bonuses.RecordCompletion(ctx, s, &entry, now); err != nil {
					return err
				}
			}
			if err := e.commissions.Record(ctx, s, &entry, caseRec.CommissionRule, now); err != nil {
				return err
			}
		}
		if completed && !pendingClearance {
			if err := e.completion.Complete(ctx, s, caseRec, plan, now); err != nil {
				return err
			}
		}
		return nil
	}

	if e.Committer != nil {
		err = e.Committer.WithTx(ctx, commit)
	} else {
		err = commit(e.stores)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}

	e.logger.Info("transaction reconciled",
		"case", tx.CaseID, "settlement", tx.SettlementID,
		"type", tx.Type, "amount", tx.Amount,
		"installment", entry.InstallmentSeq, "category", category,
		"cumulative", bal.Cumulative, "completed", completed,
		"pending_clearance", pendingClearance)

	// Outbound monitoring stays outside the lock's critical path; the
	// queue retries, and a failure never unwinds the committed entry.
	if pendingClearance {
		e.requestMonitoring(ctx, caseRec, now)
	}

	return Result{
		Outcome:          OutcomeApplied,
		EntryID:          entry.ID,
		Category:         category,
		Completed:        completed && !pendingClearance,
		PendingClearance: pendingClearance,
	}, nil
}

func (e *Engine) requestMonitoring(ctx context.Context, c *Case, now time.Time) {
	deadline := now.Add(e.rules.ChequeClearance)
	if e.Monitor == nil {
		e.logger.Warn("cheque completion pending but no monitor configured",
			"case", c.ID, "deadline", deadline)
		return
	}
	if err := e.Monitor.RequestMonitoring(ctx, c.ID, c.AccountNum, deadline); err != nil {
		e.logger.Error("cheque monitoring request failed",
			"case", c.ID, "deadline", deadline, "err", err)
	}
}

// =============================================================================
// REJECTIONS
// =============================================================================

func (e *Engine) reject(ctx context.Context, tx Transaction, reason string, cause error) (Result, error) {
	rec := RejectedTransaction{
		ID:          EntryID(uuid.NewString()),
		Transaction: tx,
		Reason:      reason,
		CreatedAt:   e.now(),
	}
	if err := e.stores.Rejections.AppendRejected(ctx, rec); err != nil {
		// The rejection itself still reaches the caller.
		e.logger.Error("writing rejection record failed",
			"case", tx.CaseID, "reason", reason, "err", err)
	}
	e.logger.Warn("transaction rejected",
		"case", tx.CaseID, "settlement", tx.SettlementID, "reason", reason)
	return Result{Outcome: OutcomeRejected}, &RejectionError{
		CaseID:       tx.CaseID,
		SettlementID: tx.SettlementID,
		Reason:       reason,
		Cause:        cause,
	}
}
