package db

import (
	"context"
	"embed"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

//go:embed migrations
var migrations embed.FS

type ExecError struct {
	sql  string
	err  error
	msg  string
	args []interface{}
}

func newExecError(msg, sql string, err error, args ...interface{}) *ExecError {
	return &ExecError{sql: sql, err: err, msg: msg, args: args}
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: executing SQL:\n%s\nargs:%#v\nerror:%v", e.msg, e.sql, e.args, e.err)
}

func (e *ExecError) Unwrap() error {
	return e.err
}

type DBStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB, migrationDriver database.Driver, dbName string) (*DBStore, error) {
	d, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("new iofs: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, dbName, migrationDriver)
	if err != nil {
		return nil, fmt.Errorf("new migration instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DBStore{
		db: db,
	}, nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (d *DBStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// claimIdempotencyKey records a caller-supplied key inside the current
// transaction. A key seen before means the mutation already applied, so the
// retry must not run again.
func claimIdempotencyKey(tx *sqlx.Tx, key, operation string) error {
	if key == "" {
		return nil
	}

	var count int
	query, args, err := sq.Select("COUNT(*)").From("idempotency_keys").Where("key=?", key).ToSql()
	if err != nil {
		return fmt.Errorf("generating idempotency select SQL: %w", err)
	}
	if err := tx.Get(&count, query, args...); err != nil {
		return newExecError("checking idempotency key", query, err, args...)
	}
	if count > 0 {
		return ledger.ErrDuplicateIdempotencyKey
	}

	query, args, err = sq.Insert("idempotency_keys").Columns("key", "operation", "created_at").
		Values(key, operation, time.Now()).ToSql()
	if err != nil {
		return fmt.Errorf("generating idempotency insert SQL: %w", err)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return newExecError("claiming idempotency key", query, err, args...)
	}
	return nil
}
