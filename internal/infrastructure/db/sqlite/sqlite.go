// Package sqlite implements the relational ports on an embedded SQLite
// database. Write transactions begin IMMEDIATE, so holding one serializes all
// writers, which is what the course lock requires.
package sqlite

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"
)

const (
	defaultBusyTimeout = 10 * time.Second
	defaultTxTimeout   = 30 * time.Second
)

//go:embed schema.sql
var schema string

// DB wraps the sqlx handle shared by all repositories.
type DB struct {
	x   *sqlx.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the database file at path and applies the
// schema.
func Open(ctx context.Context, path string, log zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(%d)",
		path, defaultBusyTimeout.Milliseconds(),
	)

	x, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := x.PingContext(ctx); err != nil {
		_ = x.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := x.ExecContext(ctx, stmt); err != nil {
			_ = x.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &DB{x: x, log: log}, nil
}

func (db *DB) Close() error {
	return db.x.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.x.PingContext(ctx)
}

// TxFunc runs inside WithTransaction.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// WithTransaction runs fn in an IMMEDIATE transaction, committing on nil and
// rolling back on error or panic.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	tx, err := db.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.log.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE failure on the given
// table.column list, as SQLite names it in the message.
func isUniqueViolation(err error, columns string) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) &&
		serr.ExtendedCode() == sqlite3.CONSTRAINT_UNIQUE &&
		strings.Contains(serr.Error(), columns)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
