/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these onto response codes via the helpers below.

ERROR CATEGORIES:
  1. Validation errors - Rejected input, terminal (partner retry will
     repeat the same invalid payload)
  2. Storage errors - Retryable; the partner is expected to redeliver

SEE ALSO:
  - reconcile.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingAttribution is returned when an event carries no user id
	// (sub_id1). The event cannot be attributed and is rejected outright.
	ErrMissingAttribution = errors.New("missing user attribution")

	// ErrInvalidStatus is returned when an event status is outside the
	// pending/confirmed/cancelled lifecycle.
	ErrInvalidStatus = errors.New("invalid transaction status")

	// ErrNegativeAmount is returned when a sale amount or commission is
	// negative.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrStorageUnavailable is returned when the underlying store cannot
	// serve the request. Safe to retry the whole request.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNoSuchRecord is returned when a batch update targets an id that
	// is not in the store. Redelivery cannot succeed, so this is not
	// retryable.
	ErrNoSuchRecord = errors.New("no such record")

	// ErrPartialWrite is returned when a batch update cannot be applied
	// atomically. The patch is idempotent, so redelivery converges.
	ErrPartialWrite = errors.New("partial batch write")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingAttributionError reports a callback that could not be attributed
// to a user.
type MissingAttributionError struct {
	StoreName     string
	TransactionID string
}

func (e *MissingAttributionError) Error() string {
	return fmt.Sprintf("missing user attribution for store %q (transaction %q)",
		e.StoreName, e.TransactionID)
}

func (e *MissingAttributionError) Unwrap() error {
	return ErrMissingAttribution
}

// PartialWriteError reports a batch update that failed partway. IDs lists
// the records the patch targeted.
type PartialWriteError struct {
	IDs []string
	Err error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("batch update of %d records failed: %v", len(e.IDs), e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return ErrPartialWrite
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if redelivering the same request might succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrPartialWrite)
}

// IsClientError returns true if the error is due to invalid partner input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingAttribution) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrNegativeAmount)
}
