package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("inventory item not found")
	ErrInvalidInput     = errors.New("invalid quantity adjustment")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	// ErrLockTimeout is wrapped in a StorageError when the item row lock
	// could not be acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for item lock")
)

// StorageError reports a transaction, connectivity or lock failure. The
// adjustment was rolled back; retrying a Relative adjustment blindly is unsafe.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Outcome labels an adjustment result for metrics and logs.
func Outcome(err error) string {
	var se *StorageError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNegativeQuantity):
		return "negative_quantity"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.As(err, &se):
		return "storage_error"
	default:
		return "error"
	}
}
