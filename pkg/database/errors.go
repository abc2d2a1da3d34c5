package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/medflow/drug-warehouse/pkg/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// MapError converts a driver constraint error to an AppError with a meaningful message.
// Returns nil if the error is not a recognised constraint violation.
func MapError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return MapSQLiteError(err)
}

// MapPQError converts a PostgreSQL error to an AppError.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr.Constraint)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict("a batch with this identity already exists")

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced batch does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// MapSQLiteError converts a modernc SQLite constraint error to an AppError.
func MapSQLiteError(err error) *errors.AppError {
	var sqliteErr *msqlite.Error
	if !stderrors.As(err, &sqliteErr) {
		return nil
	}

	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return errors.Conflict("a batch with this identity already exists")
	case sqlite3lib.SQLITE_CONSTRAINT_CHECK:
		return mapCheckConstraint(sqliteErr.Error())
	case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
		return errors.BadRequest("referenced batch does not exist")
	case sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
		return errors.Validation(map[string]string{
			"required field": "must not be empty",
		})
	default:
		return nil
	}
}

// IsUniqueViolation reports whether err is a unique or primary key violation on either driver
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// mapCheckConstraint maps CHECK constraint names (or SQLite's message) to field errors.
func mapCheckConstraint(constraint string) *errors.AppError {
	switch {
	case strings.Contains(constraint, "quantity"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})

	case strings.Contains(constraint, "status"):
		return errors.Validation(map[string]string{
			"status": "must be one of: normal, expiring_soon, expired, quarantined",
		})

	case strings.Contains(constraint, "kind"):
		return errors.Validation(map[string]string{
			"kind": "must be one of: inbound, outbound, transfer, quarantine, dispose",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
