/*
handlers.go - HTTP API handlers for the settlement ledger engine

PURPOSE:
  Exposes the engine via REST. Handles JSON in/out and status mapping,
  delegates everything else to ledger.Engine.

ENDPOINTS:
  POST   /api/settlements            Create a settlement plan
  GET    /api/settlements/{id}       Get a plan with its schedule
  POST   /api/transactions           Submit a transaction for reconciliation
  GET    /api/cases/{id}/ledger      Case ledger history
  GET    /healthz                    Liveness probe
  GET    /metrics                    Prometheus metrics

ERROR HANDLING:
  - 400: malformed body, invalid terms, unknown transaction type
  - 404: case or settlement not found
  - 409: duplicate settlement id / duplicate transaction reference
  - 500: store failures

  A rejected transaction still returns the rejection outcome in the body;
  the raw submission is already in the rejection log by then.

SEE ALSO:
  - dto.go: wire types
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
}

// NewHandler creates a handler over the given engine.
func NewHandler(engine *ledger.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// CreateSettlement builds and persists a plan from submitted terms.
func (h *Handler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err)
		return
	}
	initial, err := decimal.NewFromString(req.InitialAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid initial_amount", err)
		return
	}
	terms := settlement.Terms{InitialAmount: initial, Months: req.Months}
	for _, raw := range req.Amounts {
		a, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid installment amount", err)
			return
		}
		terms.Amounts = append(terms.Amounts, a)
	}

	var expireAt time.Time
	if req.ExpireAt != "" {
		expireAt, err = time.Parse(time.RFC3339, req.ExpireAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expire_at", err)
			return
		}
	}

	plan, err := h.Engine.CreatePlan(r.Context(), ledger.PlanRequest{
		SettlementID: settlement.SettlementID(req.SettlementID),
		CaseID:       settlement.CaseID(req.CaseID),
		Type:         settlement.PlanType(req.Type),
		Phase:        settlement.Phase(req.Phase),
		Amount:       amount,
		Terms:        terms,
		DRCID:        settlement.DRCID(req.DRCID),
		ROID:         settlement.ROID(req.ROID),
		CreatedBy:    req.CreatedBy,
		ExpireAt:     expireAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateSettlement):
			writeError(w, http.StatusConflict, "settlement already exists", err)
		case ledger.IsNotFound(err):
			writeError(w, http.StatusNotFound, "case not found", err)
		case ledger.IsClientError(err):
			writeError(w, http.StatusBadRequest, "invalid settlement terms", err)
		default:
			writeError(w, http.StatusInternalServerError, "failed to create settlement", err)
		}
		return
	}

	plansCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, toSettlementDTO(plan))
}

// GetSettlement returns a plan with its installment schedule.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid settlement id", err)
		return
	}

	plan, err := h.Engine.FindPlan(r.Context(), settlement.SettlementID(id))
	if err != nil {
		if ledger.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "settlement not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(plan))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// SubmitTransaction reconciles one money movement and acknowledges the
// outcome.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	res, err := h.Engine.Reconcile(r.Context(), ledger.Transaction{
		CaseID:       settlement.CaseID(req.CaseID),
		SettlementID: settlement.SettlementID(req.SettlementID),
		AccountNum:   req.AccountNum,
		Ref:          req.Ref,
		Type:         ledger.TransactionType(req.Type),
		Amount:       amount,
		Date:         date,
		DRCID:        settlement.DRCID(req.DRCID),
		ROID:         settlement.ROID(req.ROID),
	})
	observeReconcile(string(res.Outcome), string(res.Category), start)

	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateReference):
			writeError(w, http.StatusConflict, "duplicate transaction reference", err)
		case ledger.IsNotFound(err):
			writeError(w, http.StatusNotFound, "case or settlement not found", err)
		case ledger.IsClientError(err):
			writeError(w, http.StatusBadRequest, "invalid transaction", err)
		default:
			writeError(w, http.StatusInternalServerError, "reconciliation failed", err)
		}
		return
	}

	if res.Completed {
		completionsTotal.WithLabelValues("immediate").Inc()
	}
	if res.PendingClearance {
		completionsTotal.WithLabelValues("pending_clearance").Inc()
	}

	writeJSON(w, http.StatusAccepted, ReconcileResponse{
		Outcome:          string(res.Outcome),
		EntryID:          string(res.EntryID),
		Category:         string(res.Category),
		Completed:        res.Completed,
		PendingClearance: res.PendingClearance,
	})
}

// GetCaseLedger returns a case's ledger entries in append order.
func (h *Handler) GetCaseLedger(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id", err)
		return
	}

	entries, err := h.Engine.CaseLedger(r.Context(), settlement.CaseID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load ledger", err)
		return
	}

	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
