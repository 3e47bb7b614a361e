package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/store/memory"
)

func TestNext_StrictlyIncreasingUnderConcurrency(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	const n = 200
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Next(ctx, ledger.SeqBonus)
			assert.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, n)
	for v := range results {
		assert.False(t, seen[v], "sequence value %d allocated twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
}

func TestNext_SequencesAreIndependent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	a, err := store.Next(ctx, ledger.SeqBonus)
	require.NoError(t, err)
	b, err := store.Next(ctx, ledger.SeqCommission)
	require.NoError(t, err)

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(1), b)
}

func TestAppend_DuplicateReferenceRejected(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	e := ledger.Entry{
		ID: "e-1",
		Transaction: ledger.Transaction{
			CaseID:       101,
			SettlementID: 5001,
			AccountNum:   "ACC-1",
			Ref:          42,
			Type:         ledger.TxCash,
			Amount:       decimal.NewFromInt(100),
		},
	}
	require.NoError(t, store.Append(ctx, e))

	e.ID = "e-2"
	err := store.Append(ctx, e)
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)

	entries, err := store.ListEntries(ctx, 101)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
