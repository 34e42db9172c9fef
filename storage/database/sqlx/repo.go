// Package sqlxrepos implements the domain repositories on Postgres with jmoiron/sqlx.
// Each repository maps domain types to `db`-tagged row types, and store errors to domain errors.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// query accumulates the WHERE conditions of a SELECT. Conditions use `?` bindvars,
// rebound for the driver when the query is built.
type query struct {
	conds []string
	args  []interface{}
}

func (q *query) where(cond string, args ...interface{}) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

func (q *query) build(ext sqlx.ExtContext, base string, ordering []core.DBOrdering, dflt string) string {
	var sb strings.Builder
	sb.WriteString(base)
	if len(q.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.conds, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy(ordering, dflt))
	return ext.Rebind(sb.String())
}

// orderBy renders orderings already restricted to known columns by the services.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return dflt
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return strings.Join(orderList, ", ")
}

// isUUID guards lookups by ID: Postgres rejects malformed UUIDs with an error, not an empty result.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps sql.ErrNoRows to `nf`; other errors are wrapped with `msg`.
func trapNoRowsErr(err error, nf error, msg string) error {
	if err == sql.ErrNoRows {
		return nf
	}
	return errors.Wrap(err, msg)
}

// execOne runs a write expected to affect exactly one row: none means `nf`.
func execOne(ctx context.Context, ext sqlx.ExtContext, nf error, q string, args ...interface{}) error {
	res, err := ext.ExecContext(ctx, ext.Rebind(q), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nf
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}
