package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koustreak/DatAct/internal/errs"
)

// MapError is the default ErrorMapper. It recognises the database/sql and
// context sentinels; everything else is a query failure.
func MapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNoData, msg, err)
	}

	if errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return errs.Wrap(e.Kind, fmt.Sprintf("%s: %s", msg, e.Message), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
