package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

var (
	negotiatedAt = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	afterNeg     = time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	beforeNeg    = time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
)

func eligibleFirst() ledger.Classification {
	return ledger.Classification{
		Type:          ledger.TxCash,
		CasePhase:     settlement.PhaseNegotiation,
		HasPlan:       true,
		PlanPhase:     settlement.PhaseNegotiation,
		FirstOfPair:   true,
		NegotiatedAt:  negotiatedAt,
		TxDate:        afterNeg,
		Amount:        d(1000),
		InitialAmount: d(1000),
	}
}

func TestClassify_DebitTypesNeverEarnCommission(t *testing.T) {
	for _, txType := range []ledger.TransactionType{ledger.TxBill, ledger.TxReturnCheque} {
		in := eligibleFirst()
		in.Type = txType
		assert.Equal(t, ledger.NoCommission, ledger.Classify(in), string(txType))
	}
}

func TestClassify_EligibilityGate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ledger.Classification)
	}{
		{"case in litigation", func(in *ledger.Classification) { in.CasePhase = settlement.PhaseLitigation }},
		{"case in LOD", func(in *ledger.Classification) { in.CasePhase = settlement.PhaseLOD }},
		{"no plan", func(in *ledger.Classification) { in.HasPlan = false }},
		{"plan in WRIT", func(in *ledger.Classification) { in.PlanPhase = settlement.PhaseWRIT }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := eligibleFirst()
			tc.mutate(&in)
			assert.Equal(t, ledger.NoCommission, ledger.Classify(in))
		})
	}
}

func TestClassify_MediationBoardIsEligible(t *testing.T) {
	in := eligibleFirst()
	in.CasePhase = settlement.PhaseMediationBoard
	in.PlanPhase = settlement.PhaseMediationBoard

	assert.Equal(t, ledger.Commissioned, ledger.Classify(in))
}

func TestClassify_FirstTransaction(t *testing.T) {
	t.Run("dated before negotiation is pending", func(t *testing.T) {
		in := eligibleFirst()
		in.TxDate = beforeNeg
		assert.Equal(t, ledger.PendingCommission, ledger.Classify(in))
	})

	t.Run("short of the initial amount is unresolved", func(t *testing.T) {
		in := eligibleFirst()
		in.Amount = d(999)
		assert.Equal(t, ledger.UnresolvedCommission, ledger.Classify(in))
	})

	t.Run("meeting the initial amount is commissioned", func(t *testing.T) {
		assert.Equal(t, ledger.Commissioned, ledger.Classify(eligibleFirst()))
	})
}

func TestClassify_FollowUpTransaction(t *testing.T) {
	base := ledger.Classification{
		Type:      ledger.TxCash,
		CasePhase: settlement.PhaseNegotiation,
		HasPlan:   true,
		PlanPhase: settlement.PhaseNegotiation,
	}

	t.Run("installment 1 exactly satisfied", func(t *testing.T) {
		in := base
		in.InstallmentSeq = 1
		in.ExactBoundary = true
		assert.Equal(t, ledger.Commissioned, ledger.Classify(in))
	})

	t.Run("installment 1 partial progress", func(t *testing.T) {
		in := base
		in.InstallmentSeq = 1
		assert.Equal(t, ledger.UnresolvedCommission, ledger.Classify(in))
	})

	t.Run("beyond installment 1", func(t *testing.T) {
		in := base
		in.InstallmentSeq = 3
		assert.Equal(t, ledger.Commissioned, ledger.Classify(in))
	})
}
