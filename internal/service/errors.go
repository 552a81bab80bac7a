package service

import (
	"errors"
	"fmt"
)

// Typed error kinds returned by the core operations. Handlers map these to
// stable wire codes; nothing else crosses the API boundary.
var (
	// ErrInvalidStateTransition: operation attempted from a state that
	// forbids it (e.g. any mutation of a permanently closed session).
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAlreadyClosed: a conditional write lost the race — the record was
	// closed by a concurrent request. Callers should re-fetch, not retry.
	ErrAlreadyClosed = errors.New("already closed")

	// ErrMissingVarianceReason: permanent close with a non-zero variance
	// and no reason supplied.
	ErrMissingVarianceReason = errors.New("non-zero variance requires a reason")

	ErrSessionNotFound = errors.New("session not found")
	ErrDayNotFound     = errors.New("day record not found")

	// ErrStorageUnavailable: transient collaborator failure. Safe to retry
	// idempotently for closeDay and read-only queries; session closes must
	// re-check current status first.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ChecklistIncompleteError reports which required day-close gates are unmet.
// It is remediation data for the operator, not an infrastructure failure.
type ChecklistIncompleteError struct {
	Missing []string
}

func (e *ChecklistIncompleteError) Error() string {
	return fmt.Sprintf("checklist incomplete: %v", e.Missing)
}
