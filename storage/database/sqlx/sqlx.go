// Package sqlxrepos implements the postgres repositories of profiles, links, subjects and columns
// with plain SQL mapped by sqlx.
package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
)

const uniqueViolation = "23505"

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

// selectContext runs a `?` placeholder query and scans every row into dest, a pointer to a slice.
func selectContext(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// execContext runs a `?` placeholder statement and returns the number of affected rows.
func execContext(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := exec.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// namedExec binds the `:name` parameters of query from arg's db tags.
func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (int64, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, errors.Wrap(err, "binding named query")
	}
	return execContext(ctx, exec, q, args...)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string { return uuid.New().String() }
