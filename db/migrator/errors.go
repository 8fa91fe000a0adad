package migrator

import (
	"fmt"
	"time"
)

// DriftError represents a mismatch between the recorded checksum of an applied
// migration and the checksum of its current content. It indicates that a
// migration file was edited after it was applied.
type DriftError struct {
	ID               string
	RecordedChecksum string
	CurrentChecksum  string
}

// Error returns a string representation of the error.
func (e DriftError) Error() string {
	return fmt.Sprintf("content of migration '%s' changed after it was applied: "+
		"recorded checksum %s, current checksum %s",
		e.ID, e.RecordedChecksum, e.CurrentChecksum)
}

// MissingError represents an applied migration whose file no longer exists in
// the migration source.
type MissingError struct {
	ID string
}

// Error returns a string representation of the error.
func (e MissingError) Error() string {
	return fmt.Sprintf("migration '%s' was applied, but no longer exists in the source", e.ID)
}

// ApplyError represents a failure while executing the statements of a single
// migration. The migration is rolled back, and no later migrations are attempted.
type ApplyError struct {
	ID  string
	Err error
}

// Error returns a string representation of the error.
func (e ApplyError) Error() string {
	return fmt.Sprintf("failed applying migration '%s': %s", e.ID, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e ApplyError) Unwrap() error {
	return e.Err
}

// OutOfOrderError represents a pending migration whose ID sorts below the
// highest already applied ID. It is only returned when the strict order policy
// is enabled; otherwise the migration is applied in sorted position with a
// warning.
type OutOfOrderError struct {
	ID            string
	LastAppliedID string
}

// Error returns a string representation of the error.
func (e OutOfOrderError) Error() string {
	return fmt.Sprintf("migration '%s' sorts below the last applied migration '%s'",
		e.ID, e.LastAppliedID)
}

// LockHeldError represents a failure to acquire the advisory lock, because
// another process is currently applying migrations to the same target.
type LockHeldError struct {
	Owner      string
	AcquiredAt time.Time
}

// Error returns a string representation of the error.
func (e LockHeldError) Error() string {
	return fmt.Sprintf("another migration run (owner %s) has held the lock since %s",
		e.Owner, e.AcquiredAt.Format(time.RFC3339))
}
