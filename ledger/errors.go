/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch with errors.Is / errors.As; the HTTP layer maps
  IsClientError to 4xx.

ERROR CATEGORIES:
  1. Input errors - fatal to the single request, logged to the rejection
     collaborator, nothing written to the ledger.
  2. Store errors - persistence failures; the whole reconciliation fails
     and nothing is committed.

SEE ALSO:
  - engine.go: produces these
  - api/handlers.go: maps them to status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCaseNotFound is returned when the transaction references an
	// unknown case.
	ErrCaseNotFound = errors.New("case not found")

	// ErrSettlementNotFound is returned when the transaction references an
	// unknown settlement plan.
	ErrSettlementNotFound = errors.New("settlement not found")

	// ErrDuplicateReference is returned when the (account, reference) pair
	// was already reconciled. Expected on client retries.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrInvalidTransaction is returned for malformed submissions
	// (unknown type, zero reference).
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrDuplicateSettlement is returned when creating a plan under an
	// identifier that already has one.
	ErrDuplicateSettlement = errors.New("settlement already exists")

	// ErrReconcileFailed wraps store failures during commit. Nothing was
	// written when this is returned.
	ErrReconcileFailed = errors.New("reconciliation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RejectionError reports an input rejection. The raw transaction has been
// written to the rejection log by the time this is returned.
type RejectionError struct {
	CaseID       settlement.CaseID
	SettlementID settlement.SettlementID
	Reason       string
	Cause        error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("transaction rejected for case %d settlement %d: %s",
		e.CaseID, e.SettlementID, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateReference) ||
		errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrDuplicateSettlement)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCaseNotFound) ||
		errors.Is(err, ErrSettlementNotFound)
}
