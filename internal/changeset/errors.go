package changeset

import (
	"errors"
	"fmt"
)

// ApplyErrorCode categorizes pipeline failures.
type ApplyErrorCode string

const (
	// ErrCodeOutOfOrder means the changeset's parent is not the last applied
	// changeset. Nothing of the changeset was written.
	ErrCodeOutOfOrder ApplyErrorCode = "OUT_OF_ORDER"

	// ErrCodeApplyFailed means storage rejected the changeset and its partial
	// effects were rolled back.
	ErrCodeApplyFailed ApplyErrorCode = "APPLY_FAILED"
)

// ApplyError reports the changeset at which a sequence stopped.
type ApplyError struct {
	Code ApplyErrorCode

	// ChangesetID is the changeset that failed.
	ChangesetID string

	// Index is the position of the failed changeset in the applied sequence.
	Index int

	// Expected and Actual carry the parent mismatch for OUT_OF_ORDER.
	Expected string
	Actual   string

	// Err is the underlying storage error for APPLY_FAILED.
	Err error
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	switch e.Code {
	case ErrCodeOutOfOrder:
		return fmt.Sprintf("%s: changeset %s at index %d has parent %s, last applied is %s",
			e.Code, short(e.ChangesetID), e.Index, short(e.Actual), short(e.Expected))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: changeset %s at index %d: %v", e.Code, short(e.ChangesetID), e.Index, e.Err)
		}
		return fmt.Sprintf("%s: changeset %s at index %d", e.Code, short(e.ChangesetID), e.Index)
	}
}

// Unwrap returns the underlying storage error.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// IsOutOfOrder returns true if err is an OUT_OF_ORDER ApplyError.
// Uses errors.As to handle wrapped errors.
func IsOutOfOrder(err error) bool {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeOutOfOrder
	}
	return false
}

// IsApplyFailed returns true if err is an APPLY_FAILED ApplyError.
func IsApplyFailed(err error) bool {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeApplyFailed
	}
	return false
}
