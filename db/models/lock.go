package models

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.hackfix.me/trek/db/types"
)

// Lock is the advisory lock that serializes migration runs against a single
// target database. At most one lock row can exist at any time, which is
// enforced by a unique constraint.
type Lock struct {
	Owner      string
	AcquiredAt time.Time
}

// Acquire attempts to store the lock in the database. It returns a
// types.DuplicateError if the lock is already held by another process.
func (l *Lock) Acquire(ctx context.Context, d types.Querier) error {
	timeNow := d.TimeNow().UTC()
	insertStmt := `INSERT INTO _migrations_lock (id, owner, acquired_at)
		VALUES (1, ?, ?)`
	_, err := d.ExecContext(ctx, insertStmt, l.Owner, timeNow)
	if err != nil {
		return types.Err("lock", "ID 1", err)
	}
	l.AcquiredAt = timeNow

	return nil
}

// Release removes the lock from the database, but only if it is still held by
// the same owner.
func (l *Lock) Release(ctx context.Context, d types.Querier) error {
	res, err := d.ExecContext(ctx,
		`DELETE FROM _migrations_lock WHERE id = 1 AND owner = ?`, l.Owner)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.NoResultError{ModelName: "lock", ID: "owner '" + l.Owner + "'"}
	}

	return nil
}

// CurrentLock returns the currently held lock, or nil if the lock is free.
func CurrentLock(ctx context.Context, d types.Querier) (*Lock, error) {
	l := &Lock{}
	err := d.QueryRowContext(ctx,
		`SELECT owner, acquired_at FROM _migrations_lock WHERE id = 1`).
		Scan(&l.Owner, &l.AcquiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Unlock removes the lock from the database regardless of its owner. It is
// meant for operator recovery after a crashed run left a stale lock behind.
func Unlock(ctx context.Context, d types.Querier) (*Lock, error) {
	held, err := CurrentLock(ctx, d)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, nil
	}

	_, err = d.ExecContext(ctx, `DELETE FROM _migrations_lock WHERE id = 1`)
	if err != nil {
		return nil, err
	}

	return held, nil
}
