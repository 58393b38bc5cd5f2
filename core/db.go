package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

// RunInTx runs fn inside a transaction; the transaction is rolled back when fn fails.
func RunInTx(ctx context.Context, db DB, fn func(tx DBExecutor) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause joins orderings whose field is in `allowed`; unknown fields are dropped.
func OrderByClause(ordering []DBOrdering, allowed map[string]string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	return strings.Join(parts, ", ")
}
