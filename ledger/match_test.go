package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

func testSchedule(t *testing.T) []settlement.Installment {
	t.Helper()
	schedule, err := settlement.Generate(
		settlement.Terms{InitialAmount: d(1000), Months: 4},
		d(10000), time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		settlement.DefaultRoundingUnit)
	require.NoError(t, err)
	return schedule // amounts 1000, 3000, 3000, 3000
}

func TestMatchInstallment_FirstCoveringSeqWins(t *testing.T) {
	schedule := testSchedule(t)

	m := ledger.MatchInstallment(schedule, d(500))
	assert.Equal(t, 1, m.Seq)
	assert.False(t, m.Exact)

	m = ledger.MatchInstallment(schedule, d(1000))
	assert.Equal(t, 1, m.Seq)
	assert.True(t, m.Exact)

	m = ledger.MatchInstallment(schedule, d(1001))
	assert.Equal(t, 2, m.Seq)
	assert.False(t, m.Exact)

	m = ledger.MatchInstallment(schedule, d(10000))
	assert.Equal(t, 4, m.Seq)
	assert.True(t, m.Exact)
}

func TestMatchInstallment_BeyondFinalIsOverSatisfied(t *testing.T) {
	m := ledger.MatchInstallment(testSchedule(t), d(10001))

	assert.True(t, m.OverSatisfied)
	assert.Equal(t, 0, m.Seq)
}

func TestMatchInstallment_Monotonic(t *testing.T) {
	// Property: balance_a <= balance_b implies seq(a) <= seq(b).
	schedule := testSchedule(t)

	prevSeq := 0
	for balance := int64(0); balance <= 10000; balance += 250 {
		m := ledger.MatchInstallment(schedule, d(balance))
		require.False(t, m.OverSatisfied)
		assert.GreaterOrEqual(t, m.Seq, prevSeq, "balance %d", balance)
		prevSeq = m.Seq
	}
}
