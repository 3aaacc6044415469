package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/DatAct/internal/errs"
)

// PostgreSQL SQLSTATE codes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrQueryCanceled   = "57014"
	pgErrLockNotAvail    = "55P03"
	pgErrInvalidCatalog  = "3D000"
	pgErrInvalidPassword = "28P01"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNoData, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifySQLState maps a SQLSTATE to ErrKind.
func classifySQLState(code string) errs.ErrKind {
	switch {
	case code == pgErrQueryCanceled, code == pgErrLockNotAvail:
		return errs.ErrKindTimeout
	case code == pgErrInvalidCatalog, code == pgErrInvalidPassword:
		return errs.ErrKindConnectionFailed
	// Class 08: connection exception, class 28: authorization
	case len(code) >= 2 && (code[:2] == "08" || code[:2] == "28"):
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
