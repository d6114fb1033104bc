// Package store provides PostgreSQL-backed repositories for every Folio
// entity. Each store wraps a *sql.DB and exposes context-aware typed query
// methods. Finders return (nil, nil) when no row matches.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"folio/internal/apperr"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const msgSlugTaken = "This slug is already in use. Please choose another one."

// isUniqueViolation reports whether err is a unique index violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// slugConflict maps a unique violation on a slug index to the same
// field error the services return.
func slugConflict(err error) error {
	if isUniqueViolation(err) {
		return apperr.Invalid("slug", msgSlugTaken)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
