/*
locks.go - Per-pair serialization

PURPOSE:
  Reconciliation is a read-modify-write over the latest ledger entry for a
  (case, settlement) pair. Two concurrent submissions for the same pair
  must not interleave, or both would chain off the same prior entry. The
  keyed mutex serializes per pair while leaving unrelated pairs parallel.
*/
package ledger

import (
	"sync"

	"github.com/warp/settlement-engine/settlement"
)

type pairKey struct {
	caseID       settlement.CaseID
	settlementID settlement.SettlementID
}

// keyedMutex hands out one mutex per key, reference-counted so idle keys
// do not accumulate.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the key is held and returns the unlock function.
func (k *keyedMutex) lock(key pairKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[pairKey]*pairLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &pairLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
