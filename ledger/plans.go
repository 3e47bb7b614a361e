/*
plans.go - Settlement plan creation

PURPOSE:
  Builds and persists a new settlement plan from submitted terms. The
  schedule comes from settlement.Generate with the configured rounding
  unit; a duplicate settlement identifier is rejected before anything is
  written.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// PlanRequest is the input for creating a settlement plan.
type PlanRequest struct {
	SettlementID settlement.SettlementID
	CaseID       settlement.CaseID
	Type         settlement.PlanType
	Phase        settlement.Phase
	Amount       decimal.Decimal
	Terms        settlement.Terms
	DRCID        settlement.DRCID
	ROID         settlement.ROID
	CreatedBy    string
	ExpireAt     time.Time
}

// CreatePlan generates the installment schedule and persists the plan.
// The case must exist; a plan under the same identifier is rejected.
func (e *Engine) CreatePlan(ctx context.Context, req PlanRequest) (*settlement.Plan, error) {
	caseRec, err := e.stores.Cases.FindCase(ctx, req.CaseID)
	if err != nil {
		return nil, fmt.Errorf("loading case %d: %w", req.CaseID, err)
	}
	if caseRec == nil {
		return nil, fmt.Errorf("creating plan for case %d: %w", req.CaseID, ErrCaseNotFound)
	}

	now := e.now()
	schedule, err := settlement.Generate(req.Terms, req.Amount, now, e.rules.RoundingUnit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	if err := settlement.Validate(schedule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	plan := &settlement.Plan{
		SettlementID:  req.SettlementID,
		CaseID:        req.CaseID,
		Type:          req.Type,
		Phase:         req.Phase,
		Status:        settlement.StatusActive,
		Amount:        req.Amount,
		InitialAmount: req.Terms.InitialAmount,
		Installments:  schedule,
		DRCID:         req.DRCID,
		ROID:          req.ROID,
		CreatedBy:     req.CreatedBy,
		CreatedOn:     now,
		StatusOn:      now,
		ExpireAt:      req.ExpireAt,
	}
	if err := e.stores.Settlements.SavePlan(ctx, plan); err != nil {
		if errors.Is(err, ErrDuplicateSettlement) {
			return nil, err
		}
		return nil, fmt.Errorf("saving plan %d: %w", req.SettlementID, err)
	}

	e.logger.Info("settlement plan created",
		"settlement", plan.SettlementID, "case", plan.CaseID,
		"amount", plan.Amount, "installments", len(plan.Installments))
	return plan, nil
}

// FindPlan loads a plan by identifier, ErrSettlementNotFound when missing.
func (e *Engine) FindPlan(ctx context.Context, id settlement.SettlementID) (*settlement.Plan, error) {
	plan, err := e.stores.Settlements.FindPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("settlement %d: %w", id, ErrSettlementNotFound)
	}
	return plan, nil
}

// CaseLedger returns a case's ledger entries in append order.
func (e *Engine) CaseLedger(ctx context.Context, id settlement.CaseID) ([]Entry, error) {
	return e.stores.Ledger.ListEntries(ctx, id)
}
