package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an item, order, table or user does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when a transition is not legal from the
// record's current status.
var ErrInvalidState = errors.New("invalid state")

// ErrForbidden is returned when the actor has no authority over the record.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional write lost a race or an
// exclusivity rule would be broken.
var ErrConflict = errors.New("conflict")

// ErrWorkerBusy is a Conflict raised when the worker already prepares
// another item.
var ErrWorkerBusy = wrapConflict("worker already preparing another item")

// ErrItemTaken is a Conflict raised when another worker holds the item.
var ErrItemTaken = wrapConflict("already taken by another worker")

type conflictError struct{ msg string }

func wrapConflict(msg string) error { return &conflictError{msg: msg} }

func (e *conflictError) Error() string { return e.msg }

func (e *conflictError) Unwrap() error { return ErrConflict }

// isUniqueViolation reports whether err is a unique constraint failure on
// postgres or sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
