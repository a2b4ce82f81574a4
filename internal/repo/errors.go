package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned by operations that require a handle without
	// unsaved changes. Save or abandon the changes and retry.
	ErrBusy = errors.New("repository has unsaved changes")

	// ErrNoWriteToken is returned by writes whose token is nil, belongs to a
	// different handle, or outlived its handle.
	ErrNoWriteToken = errors.New("missing or foreign write token")

	// ErrNotLinkTable is returned by InsertLink for relationship classes
	// stored as navigation properties.
	ErrNotLinkTable = errors.New("relationship class is not stored in the link table")

	// ErrNoLocalChanges is returned by CreateChangeset when nothing was saved
	// since the last push.
	ErrNoLocalChanges = errors.New("no local transactions to push")

	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("repository is closed")
)

// OpenErrorCode categorizes open failures.
type OpenErrorCode string

const (
	// ErrCodeTooNew means the file was written by a newer, incompatible library.
	ErrCodeTooNew OpenErrorCode = "TOO_NEW"

	// ErrCodeTooOld means the file predates every upgradeable version.
	ErrCodeTooOld OpenErrorCode = "TOO_OLD"

	// ErrCodeUpgradeRequired means the file needs an upgrade that was not allowed.
	ErrCodeUpgradeRequired OpenErrorCode = "UPGRADE_REQUIRED"

	// ErrCodeUpgradeFailed means an allowed upgrade failed.
	ErrCodeUpgradeFailed OpenErrorCode = "UPGRADE_FAILED"

	// ErrCodeChangesetApplyFailed means a pending changeset could not be applied.
	ErrCodeChangesetApplyFailed OpenErrorCode = "CHANGESET_APPLY_FAILED"

	// ErrCodeIO means storage could not be read.
	ErrCodeIO OpenErrorCode = "IO_ERROR"
)

// OpenError reports why Open refused or failed to open a repository.
type OpenError struct {
	// Code identifies the error category.
	Code OpenErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *OpenError) Unwrap() error {
	return e.Err
}

func openErrorCode(err error) (OpenErrorCode, bool) {
	var oe *OpenError
	if errors.As(err, &oe) {
		return oe.Code, true
	}
	return "", false
}

// IsTooNew returns true if err is a TOO_NEW OpenError.
// Uses errors.As to handle wrapped errors.
func IsTooNew(err error) bool {
	code, ok := openErrorCode(err)
	return ok && code == ErrCodeTooNew
}

// IsTooOld returns true if err is a TOO_OLD OpenError.
func IsTooOld(err error) bool {
	code, ok := openErrorCode(err)
	return ok && code == ErrCodeTooOld
}

// IsUpgradeRequired returns true if err is an UPGRADE_REQUIRED OpenError.
func IsUpgradeRequired(err error) bool {
	code, ok := openErrorCode(err)
	return ok && code == ErrCodeUpgradeRequired
}

// IsUpgradeFailed returns true if err is an UPGRADE_FAILED OpenError.
func IsUpgradeFailed(err error) bool {
	code, ok := openErrorCode(err)
	return ok && code == ErrCodeUpgradeFailed
}

// IsChangesetApplyFailed returns true if err is a CHANGESET_APPLY_FAILED OpenError.
func IsChangesetApplyFailed(err error) bool {
	code, ok := openErrorCode(err)
	return ok && code == ErrCodeChangesetApplyFailed
}

// IsIOError returns true if err is an IO_ERROR OpenError.
func IsIOError(err error) bool {
	code, ok := openErrorCode(err)
	return ok && code == ErrCodeIO
}
