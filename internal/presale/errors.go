package presale

import (
	"errors"
	"fmt"
)

// Maximum length of the human-readable cause carried by ActionFailedError.
const maxCauseLength = 120

var (
	// ErrInvalidInput means a derivation input had the wrong shape.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the remote account does not exist. For buyer
	// records and the vault token account this is a valid empty state,
	// not a failure.
	ErrNotFound = errors.New("account not found")

	// ErrNotReady means a write was attempted with no signer bound.
	ErrNotReady = errors.New("no signer bound")

	// ErrBusy means another write intent is still in flight for this
	// actor session. The caller must retry after it completes.
	ErrBusy = errors.New("operation already in progress")

	// ErrTimeout means the ledger did not confirm the transaction
	// within the configured deadline. The transaction may still land.
	ErrTimeout = errors.New("confirmation timeout")
)

// RemoteReadError wraps a transport or decode failure on the read path.
type RemoteReadError struct {
	Query string
	Err   error
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("remote read %s: %v", e.Query, e.Err)
}

func (e *RemoteReadError) Unwrap() error {
	return e.Err
}

// ActionFailedError wraps a write that was rejected or failed to confirm.
// Cause is pre-truncated so it can be surfaced to a user as-is.
type ActionFailedError struct {
	Intent string
	Cause  string
	Err    error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Intent, e.Cause)
}

func (e *ActionFailedError) Unwrap() error {
	return e.Err
}

func newActionFailed(intent string, err error) *ActionFailedError {
	return &ActionFailedError{
		Intent: intent,
		Cause:  truncateCause(err.Error()),
		Err:    err,
	}
}

func truncateCause(s string) string {
	if len(s) > maxCauseLength {
		return s[:maxCauseLength]
	}
	return s
}
