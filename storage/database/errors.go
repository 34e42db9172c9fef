package database

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// SQLSTATE codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// pgError extracts the SQLSTATE & constraint name from either driver's error.
func pgError(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	return "", "", false
}

// TranslateError maps unique violations to *core.UniqueViolation, so that services can
// retry identifier generation or report a conflict; other errors are wrapped with `msg`.
// A foreign key violation means a referenced row is gone: `missing` is returned instead.
func TranslateError(err error, msg string, missing ...error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pgError(err); ok {
		switch code {
		case uniqueViolationCode:
			return &core.UniqueViolation{Constraint: constraint}
		case foreignKeyViolationCode:
			if len(missing) > 0 {
				return missing[0]
			}
		}
	}
	return errors.Wrap(err, msg)
}
