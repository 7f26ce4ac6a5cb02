package store

import (
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Sentinel errors for store operations.
var (
	// ErrMissingID is returned when an insert carries no _id.
	// It indicates a programming error in the caller.
	ErrMissingID = errors.New("insert without _id")

	// ErrUnknownTable is returned for a table name the store does not own.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned when values name a column the table lacks.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidPath is returned for a malformed resource path.
	ErrInvalidPath = errors.New("invalid resource path")

	// ErrConstraint wraps a SQLite constraint violation such as a
	// duplicate _id.
	ErrConstraint = errors.New("constraint violation")
)

// MigrationError reports the step that stopped a schema upgrade.
type MigrationError struct {
	From int    // persisted version before the upgrade
	Step int    // version the failing step upgrades from
	Name string // step name
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed upgrading from version %d: %v", e.Step, e.Name, e.From, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// IsMigrationError checks if an error is a MigrationError.
func IsMigrationError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}

// isConstraintError recognises constraint failures from either driver.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	// modernc.org/sqlite reports constraint failures in the message text.
	return strings.Contains(err.Error(), "constraint failed")
}
