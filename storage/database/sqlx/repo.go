package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
)

// postgres error codes
const (
	fkViolation     = "23503"
	uniqueViolation = "23505"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func pqCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// orderBy translates ordering fields to columns. Unknown fields are ignored.
func orderBy(qb sq.SelectBuilder, ordering []core.DBOrdering, columns map[string]string, tieBreaker string) sq.SelectBuilder {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	clauses = append(clauses, tieBreaker)
	return qb.OrderBy(clauses...)
}

func paginate(qb sq.SelectBuilder, page core.Pagination) sq.SelectBuilder {
	if page.IsZero() {
		return qb
	}
	return qb.Limit(uint64(page.Limit())).Offset(uint64(page.Offset()))
}

func get(ctx context.Context, q sqlx.QueryerContext, dest interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func selectAll(ctx context.Context, q sqlx.QueryerContext, dest interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func exec(ctx context.Context, e sqlx.ExecerContext, qb sq.Sqlizer) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func countQuery(from string, where sq.Sqlizer) sq.SelectBuilder {
	return psql.Select("COUNT(*)").From(from).Where(where)
}

// count returns the number of rows matching where.
func count(ctx context.Context, q sqlx.QueryerContext, from string, where sq.Sqlizer) (int, error) {
	var n int
	if err := get(ctx, q, &n, countQuery(from, where)); err != nil {
		return 0, errors.Wrap(err, "counting rows")
	}
	return n, nil
}

// withTx runs fn in a transaction, rolled back if fn fails.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
