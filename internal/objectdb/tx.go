package objectdb

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is one transaction. It commits when the callback returns nil and rolls
// back otherwise. Transactions commit independently of each other.
type Tx struct {
	ctx      context.Context
	conn     *sql.Conn
	db       *DB
	writable bool
}

// Update runs fn in a read-write transaction.
func (db *DB) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return db.run(ctx, true, fn)
}

// View runs fn in a read-only transaction.
func (db *DB) View(ctx context.Context, fn func(tx *Tx) error) error {
	return db.run(ctx, false, fn)
}

func (db *DB) run(ctx context.Context, writable bool, fn func(tx *Tx) error) (err error) {
	conn, err := db.sql.Conn(ctx)
	if err != nil {
		return classify(fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

	begin := "BEGIN"
	if writable {
		begin = "BEGIN IMMEDIATE"
	}
	if _, err := conn.ExecContext(ctx, begin); err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}

	done := false
	defer func() {
		if !done {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(&Tx{ctx: ctx, conn: conn, db: db, writable: writable}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return classify(fmt.Errorf("failed to commit: %w", err))
	}
	done = true
	return nil
}

// Store returns the named collection inside this transaction.
func (tx *Tx) Store(name string) (*ObjectStore, error) {
	spec, ok := tx.db.spec(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}
	return &ObjectStore{tx: tx, spec: spec}, nil
}
