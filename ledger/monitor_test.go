package ledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

type flakyMonitor struct {
	mu        sync.Mutex
	failTimes int
	succeeded int
}

func (m *flakyMonitor) RequestMonitoring(context.Context, settlement.CaseID, string, time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTimes > 0 {
		m.failTimes--
		return errors.New("monitoring service unavailable")
	}
	m.succeeded++
	return nil
}

func newQueue(target ledger.ChequeMonitor) *ledger.MonitorQueue {
	return ledger.NewMonitorQueue(target, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMonitorQueue_RetriesUntilSuccess(t *testing.T) {
	target := &flakyMonitor{failTimes: 2}
	q := newQueue(target)

	require.NoError(t, q.RequestMonitoring(context.Background(), 101, "ACC-1", time.Now().Add(14*24*time.Hour)))

	q.Flush(context.Background()) // fails, stays queued
	assert.Equal(t, 1, q.PendingCount())
	q.Flush(context.Background()) // fails again
	q.Flush(context.Background()) // succeeds

	assert.Equal(t, 0, q.PendingCount())
	assert.Equal(t, 1, target.succeeded)
}

func TestMonitorQueue_DropsAfterMaxAttempts(t *testing.T) {
	target := &flakyMonitor{failTimes: 100}
	q := newQueue(target)
	q.MaxAttempts = 3

	require.NoError(t, q.RequestMonitoring(context.Background(), 101, "ACC-1", time.Now()))

	for i := 0; i < 5; i++ {
		q.Flush(context.Background())
	}
	assert.Equal(t, 0, q.PendingCount(), "dropped after max attempts, never blocks reconciliation")
	assert.Equal(t, 0, target.succeeded)
}
