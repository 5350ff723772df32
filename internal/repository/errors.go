// Package repository implements the parcel, admin and message stores on
// Postgres through a pgx connection pool.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// PgErrUniqueViolation is the SQLSTATE for unique_violation.
const PgErrUniqueViolation = "23505"

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// translate maps driver errors onto model error kinds and returns everything
// else unchanged.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PgErrUniqueViolation {
		return model.ErrConflict
	}
	return err
}
