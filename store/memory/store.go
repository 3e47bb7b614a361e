/*
store.go - In-memory store implementations

PURPOSE:
  Implements every ledger store contract over plain maps and slices.
  Used by tests and local development; production runs store/sqlite.
  Not transactional - correctness relies on the engine's per-pair
  serialization, which is exactly the production write discipline.

SEE ALSO:
  - ledger/stores.go: the contracts
  - store/sqlite: the durable implementation
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

// Store is an in-memory implementation of the ledger store contracts.
type Store struct {
	mu sync.RWMutex

	cases        map[settlement.CaseID]*ledger.Case
	plans        map[settlement.SettlementID]*settlement.Plan
	summaries    map[settlement.SettlementID]settlement.Status
	negotiations map[settlement.DRCID]*ledger.Negotiation

	entries     []ledger.Entry
	refs        map[refKey]bool
	rejected    []ledger.RejectedTransaction
	bonuses     []ledger.BonusRecord
	commissions []ledger.CommissionRecord

	seqMu sync.Mutex
	seqs  map[string]int64
}

type refKey struct {
	account string
	ref     int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		cases:        make(map[settlement.CaseID]*ledger.Case),
		plans:        make(map[settlement.SettlementID]*settlement.Plan),
		summaries:    make(map[settlement.SettlementID]settlement.Status),
		negotiations: make(map[settlement.DRCID]*ledger.Negotiation),
		refs:         make(map[refKey]bool),
		seqs:         make(map[string]int64),
	}
}

// Stores bundles the store for engine construction.
func (s *Store) Stores() ledger.Stores {
	return ledger.Stores{
		Cases:        s,
		Settlements:  s,
		Negotiations: s,
		Ledger:       s,
		Rejections:   s,
		Bonuses:      s,
		Commissions:  s,
		Sequences:    s,
	}
}

// =============================================================================
// CASE STORE
// =============================================================================

func (s *Store) FindCase(_ context.Context, id settlement.CaseID) (*ledger.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.StatusHistory = append([]ledger.CaseStatusEntry(nil), c.StatusHistory...)
	return &cp, nil
}

func (s *Store) UpdateCaseStatus(_ context.Context, id settlement.CaseID, status string, entry ledger.CaseStatusEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return ledger.ErrCaseNotFound
	}
	c.Status = status
	c.StatusHistory = append(c.StatusHistory, entry)
	return nil
}

// PutCase seeds a case. Test setup.
func (s *Store) PutCase(c *ledger.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.cases[c.ID] = &cp
}

// =============================================================================
// SETTLEMENT STORE
// =============================================================================

func (s *Store) FindPlan(_ context.Context, id settlement.SettlementID) (*settlement.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Installments = append([]settlement.Installment(nil), p.Installments...)
	return &cp, nil
}

func (s *Store) SavePlan(_ context.Context, plan *settlement.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plans[plan.SettlementID]; exists {
		return ledger.ErrDuplicateSettlement
	}
	cp := *plan
	cp.Installments = append([]settlement.Installment(nil), plan.Installments...)
	s.plans[plan.SettlementID] = &cp
	s.summaries[plan.SettlementID] = plan.Status
	return nil
}

func (s *Store) UpdatePlanStatus(_ context.Context, id settlement.SettlementID, status settlement.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return ledger.ErrSettlementNotFound
	}
	p.Status = status
	p.StatusOn = at
	return nil
}

func (s *Store) UpdateSummaryStatus(_ context.Context, id settlement.SettlementID, status settlement.Status, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.summaries[id]; !ok {
		return ledger.ErrSettlementNotFound
	}
	s.summaries[id] = status
	return nil
}

// SummaryStatus reads the summary record's status. Test assertions.
func (s *Store) SummaryStatus(id settlement.SettlementID) settlement.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaries[id]
}

// =============================================================================
// NEGOTIATION STORE
// =============================================================================

func (s *Store) FindNegotiation(_ context.Context, drcID settlement.DRCID) (*ledger.Negotiation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.negotiations[drcID]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

// PutNegotiation seeds a negotiation record. Test setup.
func (s *Store) PutNegotiation(n *ledger.Negotiation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.negotiations[n.DRCID] = &cp
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func (s *Store) FindLatest(_ context.Context, caseID settlement.CaseID, settlementID settlement.SettlementID) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.CaseID == caseID && e.SettlementID == settlementID {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) FindLatestNonReversal(_ context.Context, caseID settlement.CaseID, settlementID settlement.SettlementID) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.CaseID == caseID && e.SettlementID == settlementID && !e.Type.IsDebit() {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) RefExists(_ context.Context, accountNum string, ref int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs[refKey{accountNum, ref}], nil
}

func (s *Store) Append(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs[refKey{e.AccountNum, e.Ref}] {
		return ledger.ErrDuplicateReference
	}
	s.entries = append(s.entries, e)
	s.refs[refKey{e.AccountNum, e.Ref}] = true
	return nil
}

func (s *Store) ListEntries(_ context.Context, caseID settlement.CaseID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// REJECTION LOG, BONUSES, COMMISSIONS
// =============================================================================

func (s *Store) AppendRejected(_ context.Context, r ledger.RejectedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, r)
	return nil
}

// Rejected returns all rejection records. Test assertions.
func (s *Store) Rejected() []ledger.RejectedTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.RejectedTransaction(nil), s.rejected...)
}

func (s *Store) AppendBonus(_ context.Context, b ledger.BonusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bonuses = append(s.bonuses, b)
	return nil
}

func (s *Store) ListBonuses(_ context.Context, caseID settlement.CaseID) ([]ledger.BonusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.BonusRecord
	for _, b := range s.bonuses {
		if b.CaseID == caseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) AppendCommission(_ context.Context, c ledger.CommissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commissions = append(s.commissions, c)
	return nil
}

// Commissions returns all commission records. Test assertions.
func (s *Store) Commissions() []ledger.CommissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.CommissionRecord(nil), s.commissions...)
}

// =============================================================================
// SEQUENCES
// =============================================================================

func (s *Store) Next(_ context.Context, name string) (int64, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seqs[name]++
	return s.seqs[name], nil
}
