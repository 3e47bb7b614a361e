/*
completion.go - Settlement completion cascade

PURPOSE:
  When the cumulative settled balance reaches the settlement amount on a
  non-cheque transaction, the closure cascades in one unit: plan status
  Completed, summary record Completed, case status Complete, and a Closed
  entry appended to the case's status history. The Closed entry's expiry is
  copied from the case's lead (latest) status-history entry rather than
  hard-coded, so downstream expiry tracking keeps its original horizon.

  Cheque completions do not run this cascade; closure waits for the
  clearance monitoring result (see engine.go).
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/settlement-engine/settlement"
)

// Case status values written by the cascade.
const (
	CaseStatusComplete = "Complete"
	CaseStatusClosed   = "Closed"
)

// CompletionHandler runs the status cascade.
type CompletionHandler struct{}

// Complete closes the settlement and its case. Runs inside the commit
// unit, so a failing step rolls back the whole reconciliation.
func (h *CompletionHandler) Complete(ctx context.Context, s Stores, c *Case, plan *settlement.Plan, now time.Time) error {
	if err := s.Settlements.UpdatePlanStatus(ctx, plan.SettlementID, settlement.StatusCompleted, now); err != nil {
		return fmt.Errorf("completing settlement %d: %w", plan.SettlementID, err)
	}
	if err := s.Settlements.UpdateSummaryStatus(ctx, plan.SettlementID, settlement.StatusCompleted, now); err != nil {
		return fmt.Errorf("completing settlement summary %d: %w", plan.SettlementID, err)
	}

	var expireAt time.Time
	if lead := c.LeadStatusEntry(); lead != nil {
		expireAt = lead.ExpireAt
	}
	entry := CaseStatusEntry{
		Status:    CaseStatusClosed,
		Reason:    "settlement amount recovered",
		CreatedBy: "ledger-engine",
		CreatedAt: now,
		ExpireAt:  expireAt,
	}
	if err := s.Cases.UpdateCaseStatus(ctx, c.ID, CaseStatusComplete, entry); err != nil {
		return fmt.Errorf("completing case %d: %w", c.ID, err)
	}
	return nil
}
