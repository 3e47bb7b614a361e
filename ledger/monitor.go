/*
monitor.go - Cheque clearance monitoring queue

PURPOSE:
  A completing cheque must be watched until it clears before the
  settlement may close. The outbound monitoring request goes to an
  external service; this queue decouples that call from the reconcile
  critical section and retries failures in the background.

DESIGN:
  - RequestMonitoring enqueues and returns immediately
  - A background goroutine flushes the queue on a ticker
  - Requests that keep failing are dropped after MaxAttempts with an
    error log; reconciliation itself is never affected

USAGE:
  queue := ledger.NewMonitorQueue(target, logger)
  queue.Start()
  engine.Monitor = queue
  // ... on shutdown
  queue.Stop()
*/
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/settlement-engine/settlement"
)

type monitorRequest struct {
	CaseID     settlement.CaseID
	AccountNum string
	Deadline   time.Time
	Attempts   int
}

// MonitorQueue is a retrying dispatcher in front of a ChequeMonitor.
// It implements ChequeMonitor itself, so the engine plugs it in directly.
type MonitorQueue struct {
	Target        ChequeMonitor
	FlushInterval time.Duration
	MaxAttempts   int

	logger  *slog.Logger
	pending []monitorRequest

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonitorQueue creates a queue dispatching to target.
func NewMonitorQueue(target ChequeMonitor, logger *slog.Logger) *MonitorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonitorQueue{
		Target:        target,
		FlushInterval: 30 * time.Second,
		MaxAttempts:   5,
		logger:        logger,
		stop:          make(chan struct{}),
	}
}

// RequestMonitoring enqueues the request and returns immediately.
func (q *MonitorQueue) RequestMonitoring(_ context.Context, caseID settlement.CaseID, accountNum string, deadline time.Time) error {
	q.mu.Lock()
	q.pending = append(q.pending, monitorRequest{
		CaseID:     caseID,
		AccountNum: accountNum,
		Deadline:   deadline,
	})
	q.mu.Unlock()
	return nil
}

// Start begins the background flusher.
func (q *MonitorQueue) Start() {
	q.ticker = time.NewTicker(q.FlushInterval)
	q.wg.Add(1)
	go q.run()
	q.logger.Info("cheque monitor queue started", "interval", q.FlushInterval)
}

// Stop flushes once more and halts the background goroutine.
func (q *MonitorQueue) Stop() {
	if q.ticker == nil {
		return
	}
	q.ticker.Stop()
	close(q.stop)
	q.wg.Wait()
	q.Flush(context.Background())
	q.logger.Info("cheque monitor queue stopped")
}

func (q *MonitorQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ticker.C:
			q.Flush(context.Background())
		case <-q.stop:
			return
		}
	}
}

// Flush attempts every pending request once. Failures stay queued until
// MaxAttempts, then drop with an error log.
func (q *MonitorQueue) Flush(ctx context.Context) {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	var retry []monitorRequest
	for _, req := range batch {
		err := q.Target.RequestMonitoring(ctx, req.CaseID, req.AccountNum, req.Deadline)
		if err == nil {
			q.logger.Info("cheque monitoring requested",
				"case", req.CaseID, "deadline", req.Deadline)
			continue
		}
		req.Attempts++
		if req.Attempts >= q.MaxAttempts {
			q.logger.Error("cheque monitoring request dropped",
				"case", req.CaseID, "attempts", req.Attempts, "err", err)
			continue
		}
		q.logger.Warn("cheque monitoring request failed, will retry",
			"case", req.CaseID, "attempt", req.Attempts, "err", err)
		retry = append(retry, req)
	}

	if len(retry) > 0 {
		q.mu.Lock()
		q.pending = append(retry, q.pending...)
		q.mu.Unlock()
	}
}

// PendingCount reports queued requests. Tests and health checks.
func (q *MonitorQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
