// Package boiledrepos implements the postgres repositories of the task, planner, notification and
// chat tables on top of the sqlboiler query builder.
package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/strmangle"

	"github.com/jhkim0602/monguri-sub002/core"
)

var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// repository holds the default executor; services may pass a transaction instead.
type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// from starts a query on `table`; with no columns it selects everything.
func from(table string, cols []string, mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	queries.SetFrom(q, quote(table))
	if len(cols) > 0 {
		queries.SetSelect(q, cols)
	}
	qm.Apply(q, mods...)
	return q
}

func update(ctx context.Context, exec core.DBExecutor, table string, set map[string]interface{}, mods ...qm.QueryMod) (int64, error) {
	q := from(table, nil, mods...)
	queries.SetUpdate(q, set)
	res, err := q.ExecContext(ctx, exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func remove(ctx context.Context, exec core.DBExecutor, table string, mods ...qm.QueryMod) (int64, error) {
	q := from(table, nil, mods...)
	queries.SetDelete(q)
	res, err := q.ExecContext(ctx, exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func count(ctx context.Context, exec core.DBExecutor, table string, mods ...qm.QueryMod) (int, error) {
	q := from(table, nil, mods...)
	queries.SetCount(q)
	var cnt int
	err := q.QueryRowContext(ctx, exec).Scan(&cnt)
	return cnt, err
}

// insert writes every row of `rows` (values ordered like `cols`) in a single statement.
func insert(ctx context.Context, exec core.DBExecutor, table string, cols []string, rows ...[]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(rows)*len(cols))
	for _, r := range rows {
		args = append(args, r...)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		quote(table),
		strings.Join(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, cols), ", "),
		strmangle.Placeholders(dialect.UseIndexPlaceholders, len(args), 1, len(cols)),
	)
	res, err := queries.Raw(query, args...).ExecContext(ctx, exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func quote(ident string) string {
	return strmangle.IdentQuote(dialect.LQ, dialect.RQ, ident)
}

// dateCol selects a DATE column as YYYY-MM-DD text.
func dateCol(col string) string {
	return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD') AS %s", quote(col), quote(col))
}

// inArgs turns ids into query args, dropping malformed ids that postgres would reject.
func inArgs(ids []string) []interface{} {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			args = append(args, id)
		}
	}
	return args
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps the psql "no rows" err to `notFound`.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
