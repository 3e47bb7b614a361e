package ledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/memory"
)

const (
	caseID       = settlement.CaseID(101)
	planID       = settlement.SettlementID(5001)
	drcID        = settlement.DRCID(7)
	roID         = settlement.ROID(3)
	accountNum   = "ACC-0101"
	testDRCNoNeg = settlement.DRCID(99)
)

var (
	planCreatedOn = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	caseExpiry    = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type fakeMonitor struct {
	mu    sync.Mutex
	calls []time.Time
}

func (m *fakeMonitor) RequestMonitoring(_ context.Context, _ settlement.CaseID, _ string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, deadline)
	return nil
}

func (m *fakeMonitor) deadlines() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.calls...)
}

// newFixture seeds a case with a negotiated DRC and a 10000 plan
// (installments 1000, 3000, 3000, 3000).
func newFixture(t *testing.T) (*ledger.Engine, *memory.Store, *fakeMonitor) {
	t.Helper()

	store := memory.New()
	store.PutCase(&ledger.Case{
		ID:             caseID,
		AccountNum:     accountNum,
		Phase:          settlement.PhaseNegotiation,
		Status:         "Active",
		CommissionRule: "standard",
		StatusHistory: []ledger.CaseStatusEntry{
			{Status: "Active", CreatedAt: planCreatedOn.AddDate(0, -1, 0), ExpireAt: caseExpiry},
		},
	})
	store.PutNegotiation(&ledger.Negotiation{
		DRCID:     drcID,
		ROID:      roID,
		CreatedAt: time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC),
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ledger.NewEngine(store.Stores(), ledger.DefaultRules(), logger)
	engine.SetClock(func() time.Time { return planCreatedOn })

	monitor := &fakeMonitor{}
	engine.Monitor = monitor

	_, err := engine.CreatePlan(context.Background(), ledger.PlanRequest{
		SettlementID: planID,
		CaseID:       caseID,
		Type:         settlement.TypeFixedMonths,
		Phase:        settlement.PhaseNegotiation,
		Amount:       d(10000),
		Terms:        settlement.Terms{InitialAmount: d(1000), Months: 4},
		DRCID:        drcID,
		ROID:         roID,
		CreatedBy:    "test",
	})
	require.NoError(t, err)

	return engine, store, monitor
}

func tx(ref int64, txType ledger.TransactionType, amount int64, date time.Time) ledger.Transaction {
	return ledger.Transaction{
		CaseID:       caseID,
		SettlementID: planID,
		AccountNum:   accountNum,
		Ref:          ref,
		Type:         txType,
		Amount:       decimal.NewFromInt(amount),
		Date:         date,
		DRCID:        drcID,
		ROID:         roID,
	}
}

// =============================================================================
// REJECTION AND DEFERRAL PATHS
// =============================================================================

func TestReconcile_NoNegotiationYet_Deferred(t *testing.T) {
	// GIVEN: a first transaction whose DRC has never negotiated
	// THEN: awaiting-negotiation outcome, no ledger entry, no error

	engine, store, _ := newFixture(t)
	txn := tx(1, ledger.TxCash, 1000, planCreatedOn.AddDate(0, 1, 0))
	txn.DRCID = testDRCNoNeg

	res, err := engine.Reconcile(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeAwaitingNegotiation, res.Outcome)

	entries, err := store.ListEntries(context.Background(), caseID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, store.Rejected())
}

func TestReconcile_UnknownCase_Rejected(t *testing.T) {
	engine, store, _ := newFixture(t)
	txn := tx(1, ledger.TxCash, 1000, planCreatedOn)
	txn.CaseID = 999

	res, err := engine.Reconcile(context.Background(), txn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrCaseNotFound))
	assert.True(t, ledger.IsNotFound(err))
	assert.Equal(t, ledger.OutcomeRejected, res.Outcome)
	assert.Len(t, store.Rejected(), 1)
}

func TestReconcile_UnknownSettlement_Rejected(t *testing.T) {
	engine, store, _ := newFixture(t)
	txn := tx(1, ledger.TxCash, 1000, planCreatedOn)
	txn.SettlementID = 888

	_, err := engine.Reconcile(context.Background(), txn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrSettlementNotFound))
	assert.Len(t, store.Rejected(), 1)
}

func TestReconcile_DuplicateReference_RejectedWithoutNewState(t *testing.T) {
	engine, store, _ := newFixture(t)
	ctx := context.Background()
	date := planCreatedOn.AddDate(0, 1, 0)

	_, err := engine.Reconcile(ctx, tx(42, ledger.TxCash, 1000, date))
	require.NoError(t, err)
	before := len(store.Commissions())

	res, err := engine.Reconcile(ctx, tx(42, ledger.TxCash, 1000, date))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrDuplicateReference))
	assert.True(t, ledger.IsClientError(err))
	assert.Equal(t, ledger.OutcomeRejected, res.Outcome)

	entries, _ := store.ListEntries(ctx, caseID)
	assert.Len(t, entries, 1, "resubmission must not append")
	assert.Len(t, store.Commissions(), before, "no new derived records")
	assert.Len(t, store.Rejected(), 1)
}

func TestReconcile_UnknownType_Rejected(t *testing.T) {
	engine, _, _ := newFixture(t)
	txn := tx(1, ledger.TransactionType("Wire"), 1000, planCreatedOn)

	_, err := engine.Reconcile(context.Background(), txn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInvalidTransaction))
}

// =============================================================================
// CLASSIFICATION AND CHAINING
// =============================================================================

func TestReconcile_FirstTransaction_Commissioned(t *testing.T) {
	// GIVEN: a cash payment meeting the initial amount, after negotiation
	// THEN: Commissioned, success bonus + commission recorded, month tagged

	engine, store, _ := newFixture(t)
	ctx := context.Background()

	res, err := engine.Reconcile(ctx, tx(1, ledger.TxCash, 1000, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeApplied, res.Outcome)
	assert.Equal(t, ledger.Commissioned, res.Category)
	assert.False(t, res.Completed)

	entries, _ := store.ListEntries(ctx, caseID)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.True(t, e.Cumulative.Equal(d(1000)))
	assert.Equal(t, 1, e.InstallmentSeq)
	assert.Equal(t, 202502, e.FirstSettledMonth)
	assert.Equal(t, 0, e.CompletedMonth)

	bonuses, _ := store.ListBonuses(ctx, caseID)
	require.Len(t, bonuses, 1)
	assert.Equal(t, ledger.BonusSuccessRate, bonuses[0].Type)
	assert.True(t, bonuses[0].Active)
	assert.True(t, bonuses[0].Amount.Equal(d(1000)))

	commissions := store.Commissions()
	require.Len(t, commissions, 1)
	assert.True(t, commissions[0].Amount.Equal(d(100)), "1000 x default rate 0.1")
}

func TestReconcile_FirstTransaction_BeforeNegotiation_Pending(t *testing.T) {
	engine, store, _ := newFixture(t)
	ctx := context.Background()

	res, err := engine.Reconcile(ctx, tx(1, ledger.TxCash, 1000, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, ledger.PendingCommission, res.Category)

	bonuses, _ := store.ListBonuses(ctx, caseID)
	assert.Empty(t, bonuses, "success bonus only fires on Commissioned")
	assert.Len(t, store.Commissions(), 1)
}

func TestReconcile_FirstTransaction_ShortOfInitial_Unresolved(t *testing.T) {
	engine, _, _ := newFixture(t)

	res, err := engine.Reconcile(context.Background(),
		tx(1, ledger.TxCash, 500, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, ledger.UnresolvedCommission, res.Category)
}

func TestReconcile_EntriesChainOffPriorBalances(t *testing.T) {
	engine, store, _ := newFixture(t)
	ctx := context.Background()
	date := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Reconcile(ctx, tx(1, ledger.TxCash, 1000, date))
	require.NoError(t, err)
	_, err = engine.Reconcile(ctx, tx(2, ledger.TxCash, 3000, date.AddDate(0, 1, 0)))
	require.NoError(t, err)

	entries, _ := store.ListEntries(ctx, caseID)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].RunningCredit.Equal(d(4000)))
	assert.True(t, entries[1].Cumulative.Equal(d(4000)))
	assert.Equal(t, 2, entries[1].InstallmentSeq)
	assert.Equal(t, 202502, entries[1].FirstSettledMonth, "tag rides the chain")
	assert.Greater(t, entries[1].Seq, entries[0].Seq)
}

func TestReconcile_BillResetsCumulative(t *testing.T) {
	engine, store, _ := newFixture(t)
	ctx := context.Background()
	date := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Reconcile(ctx, tx(1, ledger.TxCash, 3000, date))
	require.NoError(t, err)

	res, err := engine.Reconcile(ctx, tx(2, ledger.TxBill, 500, date.AddDate(0, 0, 5)))
	require.NoError(t, err)
	assert.Equal(t, ledger.NoCommission, res.Category)

	entries, _ := store.ListEntries(ctx, caseID)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Cumulative.IsZero())
	assert.True(t, entries[1].RunningDebit.Equal(d(500)))
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestReconcile_CashCompletion_CascadesSynchronously(t *testing.T) {
	// GIVEN: cash bringing the cumulative balance to the settlement amount
	// THEN: plan, summary and case all complete within the same call

	engine, store, _ := newFixture(t)
	ctx := context.Background()
	date := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Reconcile(ctx, tx(1, ledger.TxCash, 1000, date))
	require.NoError(t, err)

	res, err := engine.Reconcile(ctx, tx(2, ledger.TxCash, 9000, date.AddDate(0, 1, 0)))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.False(t, res.PendingClearance)

	plan, err := store.FindPlan(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusCompleted, plan.Status)
	assert.Equal(t, settlement.StatusCompleted, store.SummaryStatus(planID))

	c, err := store.FindCase(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, ledger.CaseStatusComplete, c.Status)

	closed := c.StatusHistory[len(c.StatusHistory)-1]
	assert.Equal(t, ledger.CaseStatusClosed, closed.Status)
	assert.Equal(t, caseExpiry, closed.ExpireAt, "expiry copied from the lead history entry")

	entries, _ := store.ListEntries(ctx, caseID)
	assert.Equal(t, 202503, entries[1].CompletedMonth)

	bonuses, _ := store.ListBonuses(ctx, caseID)
	var types []ledger.BonusType
	for _, b := range bonuses {
		types = append(types, b.Type)
	}
	assert.Contains(t, types, ledger.BonusCompletionRate)
}

func TestReconcile_ChequeCompletion_DefersClosure(t *testing.T) {
	// GIVEN: a cheque reaching the settlement amount
	// THEN: settlement stays Active, monitoring requested with a 14-day deadline

	engine, store, monitor := newFixture(t)
	ctx := context.Background()

	res, err := engine.Reconcile(ctx, tx(1, ledger.TxCheque, 10000, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.True(t, res.PendingClearance)

	plan, err := store.FindPlan(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusActive, plan.Status, "closure waits for clearance")

	c, _ := store.FindCase(ctx, caseID)
	assert.NotEqual(t, ledger.CaseStatusComplete, c.Status)

	deadlines := monitor.deadlines()
	require.Len(t, deadlines, 1)
	assert.Equal(t, planCreatedOn.Add(14*24*time.Hour), deadlines[0])

	entries, _ := store.ListEntries(ctx, caseID)
	assert.Equal(t, 0, entries[0].CompletedMonth, "completion tag waits for clearance")
}

// =============================================================================
// RETURN CHEQUE REVERSAL
// =============================================================================

func TestReconcile_ReturnCheque_ReversesUnresolvedBonus(t *testing.T) {
	// GIVEN: a cheque classified Unresolved Commission, then its return
	// THEN: a negated inactive bonus record appears; nothing is mutated

	engine, store, _ := newFixture(t)
	ctx := context.Background()
	date := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Reconcile(ctx, tx(1, ledger.TxCheque, 500, date))
	require.NoError(t, err)

	res, err := engine.Reconcile(ctx, tx(2, ledger.TxReturnCheque, 500, date.AddDate(0, 0, 10)))
	require.NoError(t, err)
	assert.Equal(t, ledger.NoCommission, res.Category)

	bonuses, _ := store.ListBonuses(ctx, caseID)
	require.Len(t, bonuses, 1)
	assert.True(t, bonuses[0].Amount.Equal(d(-500)), "negated commissioning amount")
	assert.False(t, bonuses[0].Active)

	entries, _ := store.ListEntries(ctx, caseID)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Cumulative.IsZero(), "500 credit clawed back")
	assert.Equal(t, ledger.UnresolvedCommission, entries[0].Category, "original entry untouched")
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestReconcile_ConcurrentSubmissions_Serialized(t *testing.T) {
	// 20 goroutines hammer the same pair; the chain must stay consistent.

	engine, store, _ := newFixture(t)
	ctx := context.Background()
	date := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(ref int64) {
			defer wg.Done()
			_, err := engine.Reconcile(ctx, tx(ref, ledger.TxCash, 100, date))
			assert.NoError(t, err)
		}(int64(i + 1))
	}
	wg.Wait()

	entries, err := store.ListEntries(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, entries, n)

	latest, err := store.FindLatest(ctx, caseID, planID)
	require.NoError(t, err)
	assert.True(t, latest.Cumulative.Equal(d(n*100)),
		"every applied amount must be reflected exactly once, got %s", latest.Cumulative)

	seen := make(map[int64]bool, n)
	for _, e := range entries {
		assert.False(t, seen[e.Seq], "duplicate entry seq %d", e.Seq)
		seen[e.Seq] = true
	}
}
