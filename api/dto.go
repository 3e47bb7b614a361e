/*
dto.go - Request/response data structures

PURPOSE:
  Wire-format types for the HTTP API, kept separate from the domain types
  so the JSON contract can evolve without touching the engine. Amounts
  travel as decimal strings; dates as RFC 3339.

SEE ALSO:
  - handlers.go: serialization in/out of these types
*/
package api

import (
	"time"

	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// REQUESTS
// =============================================================================

// CreateSettlementRequest creates a settlement plan for a case.
// Fixed-months plans set months; explicit-list plans set amounts.
type CreateSettlementRequest struct {
	SettlementID  int64    `json:"settlement_id"`
	CaseID        int64    `json:"case_id"`
	Type          string   `json:"type"` // Lump+FixedMonths | Lump+ExplicitList
	Phase         string   `json:"phase"`
	Amount        string   `json:"amount"`
	InitialAmount string   `json:"initial_amount"`
	Months        int      `json:"months,omitempty"`
	Amounts       []string `json:"amounts,omitempty"`
	DRCID         int64    `json:"drc_id"`
	ROID          int64    `json:"ro_id"`
	CreatedBy     string   `json:"created_by"`
	ExpireAt      string   `json:"expire_at,omitempty"`
}

// SubmitTransactionRequest reconciles one money movement.
type SubmitTransactionRequest struct {
	CaseID       int64  `json:"case_id"`
	SettlementID int64  `json:"settlement_id"`
	AccountNum   string `json:"account_num"`
	Ref          int64  `json:"ref"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	DRCID        int64  `json:"drc_id"`
	ROID         int64  `json:"ro_id"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// InstallmentDTO is one scheduled payment.
type InstallmentDTO struct {
	Seq          int    `json:"seq"`
	SettleAmount string `json:"settle_amount"`
	Accumulated  string `json:"accumulated"`
	DueDate      string `json:"due_date"`
}

// SettlementDTO is the wire form of a settlement plan.
type SettlementDTO struct {
	SettlementID  int64            `json:"settlement_id"`
	CaseID        int64            `json:"case_id"`
	Type          string           `json:"type"`
	Phase         string           `json:"phase"`
	Status        string           `json:"status"`
	Amount        string           `json:"amount"`
	InitialAmount string           `json:"initial_amount"`
	Installments  []InstallmentDTO `json:"installments"`
	CreatedOn     string           `json:"created_on"`
}

// ReconcileResponse acknowledges a submitted transaction.
type ReconcileResponse struct {
	Outcome          string `json:"outcome"`
	EntryID          string `json:"entry_id,omitempty"`
	Category         string `json:"category,omitempty"`
	Completed        bool   `json:"completed"`
	PendingClearance bool   `json:"pending_clearance"`
}

// EntryDTO is one ledger entry in a case's history.
type EntryDTO struct {
	ID                  string `json:"id"`
	Seq                 int64  `json:"seq"`
	SettlementID        int64  `json:"settlement_id"`
	Type                string `json:"type"`
	Amount              string `json:"amount"`
	Date                string `json:"date"`
	RunningCredit       string `json:"running_credit"`
	RunningDebit        string `json:"running_debit"`
	Cumulative          string `json:"cumulative"`
	InstallmentSeq      int    `json:"installment_seq"`
	Category            string `json:"category"`
	CommissioningAmount string `json:"commissioning_amount"`
	CreatedAt           string `json:"created_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSettlementDTO(p *settlement.Plan) SettlementDTO {
	dto := SettlementDTO{
		SettlementID:  int64(p.SettlementID),
		CaseID:        int64(p.CaseID),
		Type:          string(p.Type),
		Phase:         string(p.Phase),
		Status:        string(p.Status),
		Amount:        p.Amount.String(),
		InitialAmount: p.InitialAmount.String(),
		CreatedOn:     p.CreatedOn.Format(time.RFC3339),
		Installments:  make([]InstallmentDTO, 0, len(p.Installments)),
	}
	for _, inst := range p.Installments {
		dto.Installments = append(dto.Installments, InstallmentDTO{
			Seq:          inst.Seq,
			SettleAmount: inst.SettleAmount.String(),
			Accumulated:  inst.Accumulated.String(),
			DueDate:      inst.DueDate.Format("2006-01-02"),
		})
	}
	return dto
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:                  string(e.ID),
		Seq:                 e.Seq,
		SettlementID:        int64(e.SettlementID),
		Type:                string(e.Type),
		Amount:              e.Amount.String(),
		Date:                e.Date.Format(time.RFC3339),
		RunningCredit:       e.RunningCredit.String(),
		RunningDebit:        e.RunningDebit.String(),
		Cumulative:          e.Cumulative.String(),
		InstallmentSeq:      e.InstallmentSeq,
		Category:            string(e.Category),
		CommissioningAmount: e.CommissioningAmount.String(),
		CreatedAt:           e.CreatedAt.Format(time.RFC3339),
	}
}
