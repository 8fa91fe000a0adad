package migrator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/nrednav/cuid2"

	"go.hackfix.me/trek/db"
	"go.hackfix.me/trek/db/models"
	"go.hackfix.me/trek/db/types"
)

// ensureStmt creates the bookkeeping tables. This is the only schema change
// the migrator performs on its own, and it must stay idempotent.
const ensureStmt = `
	CREATE TABLE IF NOT EXISTS _migrations (
		id         TEXT      NOT NULL PRIMARY KEY,
		name       TEXT      NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		checksum   TEXT      NOT NULL
	);
	CREATE TABLE IF NOT EXISTS _migrations_lock (
		id          INTEGER   NOT NULL PRIMARY KEY CHECK (id = 1),
		owner       TEXT      NOT NULL,
		acquired_at TIMESTAMP NOT NULL
	);`

// Migrator applies forward-only schema migrations to a target database. It
// keeps no in-process state between runs; pending work is re-derived from the
// bookkeeping table on every invocation, so re-running after a failure is safe.
type Migrator struct {
	db          *db.DB
	logger      *slog.Logger
	strictOrder bool
}

// Option is a function that allows configuring the Migrator.
type Option func(*Migrator)

// WithStrictOrder makes the Migrator fail when a pending migration sorts below
// the highest already applied one, instead of applying it in sorted position
// with a warning.
func WithStrictOrder(strict bool) Option {
	return func(m *Migrator) {
		m.strictOrder = strict
	}
}

// New creates a new Migrator for the target database.
func New(d *db.DB, logger *slog.Logger, opts ...Option) *Migrator {
	m := &Migrator{db: d, logger: logger}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// EnsureTables creates the bookkeeping tables if they don't exist yet.
func (m *Migrator) EnsureTables(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, ensureStmt)
	if err != nil {
		return fmt.Errorf("failed creating migration bookkeeping tables: %w", err)
	}

	return nil
}

// Plan returns the migrations that haven't been applied yet, in ascending ID
// order. It fails if an already applied migration drifted from its recorded
// checksum, or disappeared from the source. The order of the input is
// irrelevant.
func (m *Migrator) Plan(ctx context.Context, migrations []*Migration) ([]*Migration, error) {
	if err := m.EnsureTables(ctx); err != nil {
		return nil, err
	}

	return m.plan(ctx, migrations)
}

func (m *Migrator) plan(ctx context.Context, migrations []*Migration) ([]*Migration, error) {
	sorted := sortMigrations(migrations)
	records, err := models.AppliedMigrations(ctx, m.db, nil)
	if err != nil {
		return nil, err
	}

	if err = verifyRecords(sorted, records); err != nil {
		return nil, err
	}

	applied := make(map[string]struct{}, len(records))
	for _, rec := range records {
		applied[rec.ID] = struct{}{}
	}

	var lastAppliedID string
	if len(records) > 0 {
		// Records are sorted in ascending ID order.
		lastAppliedID = records[len(records)-1].ID
	}

	var pending []*Migration
	for _, mig := range sorted {
		if _, ok := applied[mig.ID]; ok {
			continue
		}
		if mig.ID < lastAppliedID {
			if m.strictOrder {
				return nil, OutOfOrderError{ID: mig.ID, LastAppliedID: lastAppliedID}
			}
			m.logger.Warn("migration sorts below the last applied one",
				"id", mig.ID, "last_applied", lastAppliedID)
		}
		pending = append(pending, mig)
	}

	return pending, nil
}

// Apply applies all pending migrations in ascending ID order, stopping after
// target if it's not empty. Each migration is executed in its own transaction
// together with its bookkeeping record, so a failed migration leaves no
// partial state behind, and halts the run without attempting later ones.
// Concurrent runs against the same target are serialized with an advisory
// lock; the loser fails with a LockHeldError. It returns the migrations that
// were applied during this run.
func (m *Migrator) Apply(ctx context.Context, migrations []*Migration, target string) (
	[]*Migration, error,
) {
	if err := m.EnsureTables(ctx); err != nil {
		return nil, err
	}

	lock := &models.Lock{Owner: cuid2.Generate()}
	if err := lock.Acquire(ctx, m.db); err != nil {
		var dupErr *types.DuplicateError
		if errors.As(err, &dupErr) {
			held, lockErr := models.CurrentLock(ctx, m.db)
			if lockErr == nil && held != nil {
				return nil, LockHeldError{Owner: held.Owner, AcquiredAt: held.AcquiredAt}
			}
			return nil, LockHeldError{}
		}
		return nil, fmt.Errorf("failed acquiring migration lock: %w", err)
	}
	defer func() {
		if err := lock.Release(ctx, m.db); err != nil {
			m.logger.Error("failed releasing migration lock",
				"owner", lock.Owner, "error", err)
		}
	}()

	pending, err := m.plan(ctx, migrations)
	if err != nil {
		return nil, err
	}

	var appliedNow []*Migration
	for _, mig := range pending {
		if target != "" && mig.ID > target {
			break
		}
		if err = m.applyOne(ctx, mig); err != nil {
			return appliedNow, err
		}
		appliedNow = append(appliedNow, mig)
	}

	m.logger.Info("migration run finished",
		"applied", len(appliedNow), "pending", len(pending)-len(appliedNow))

	return appliedNow, nil
}

func (m *Migrator) applyOne(ctx context.Context, mig *Migration) error {
	m.logger.Debug("applying migration", "id", mig.ID, "name", mig.Name)

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return ApplyError{ID: mig.ID, Err: err}
	}

	_, err = tx.ExecContext(ctx, mig.SQL)
	if err == nil {
		rec := &models.AppliedMigration{ID: mig.ID, Name: mig.Name, Checksum: mig.Checksum()}
		err = rec.Save(ctx, tx)
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("failed rolling back migration", "id", mig.ID, "error", rbErr)
		}
		return ApplyError{ID: mig.ID, Err: err}
	}

	if err = tx.Commit(); err != nil {
		return ApplyError{ID: mig.ID, Err: err}
	}

	m.logger.Info("applied migration", "id", mig.ID, "name", mig.Name)

	return nil
}

// Verify checks all applied migrations against their recorded checksums
// without applying anything. It fails with a DriftError on the first mismatch,
// or a MissingError if an applied migration no longer exists in the source.
func (m *Migrator) Verify(ctx context.Context, migrations []*Migration) error {
	if err := m.EnsureTables(ctx); err != nil {
		return err
	}

	records, err := models.AppliedMigrations(ctx, m.db, nil)
	if err != nil {
		return err
	}

	return verifyRecords(sortMigrations(migrations), records)
}

// verifyRecords checks that every applied record still has a matching
// migration with an unchanged checksum.
func verifyRecords(sorted []*Migration, records []*models.AppliedMigration) error {
	byID := make(map[string]*Migration, len(sorted))
	for _, mig := range sorted {
		byID[mig.ID] = mig
	}

	for _, rec := range records {
		mig, ok := byID[rec.ID]
		if !ok {
			return MissingError{ID: rec.ID}
		}
		if sum := mig.Checksum(); sum != rec.Checksum {
			return DriftError{
				ID:               rec.ID,
				RecordedChecksum: rec.Checksum,
				CurrentChecksum:  sum,
			}
		}
	}

	return nil
}

// Unlock forcibly releases the advisory lock regardless of its owner, and
// returns the lock that was held, or nil if the lock was free. It is meant for
// operator recovery after a crashed run left a stale lock behind.
func (m *Migrator) Unlock(ctx context.Context) (*models.Lock, error) {
	if err := m.EnsureTables(ctx); err != nil {
		return nil, err
	}

	held, err := models.Unlock(ctx, m.db)
	if err != nil {
		return nil, fmt.Errorf("failed releasing migration lock: %w", err)
	}

	return held, nil
}

// State of a migration relative to the target database.
type State string

// Valid migration state values.
const (
	// StateApplied represents a migration that has been applied to the target.
	StateApplied State = "applied"
	// StatePending represents a migration that hasn't been applied yet.
	StatePending State = "pending"
	// StateMissing represents an applied record whose migration no longer
	// exists in the source.
	StateMissing State = "missing"
)

// MigrationStatus describes a single migration and its state relative to the
// target database, for operator display.
type MigrationStatus struct {
	ID        string
	Name      string
	State     State
	AppliedAt time.Time
	Drifted   bool
}

// Status returns the state of all known migrations and applied records, in
// ascending ID order. Unlike Verify, it doesn't fail on drift or missing
// migrations, but flags them instead.
func (m *Migrator) Status(ctx context.Context, migrations []*Migration) (
	[]*MigrationStatus, error,
) {
	if err := m.EnsureTables(ctx); err != nil {
		return nil, err
	}

	records, err := models.AppliedMigrations(ctx, m.db, nil)
	if err != nil {
		return nil, err
	}
	recsByID := make(map[string]*models.AppliedMigration, len(records))
	for _, rec := range records {
		recsByID[rec.ID] = rec
	}

	sorted := sortMigrations(migrations)
	statuses := make([]*MigrationStatus, 0, len(sorted))
	migsByID := make(map[string]struct{}, len(sorted))
	for _, mig := range sorted {
		migsByID[mig.ID] = struct{}{}
		status := &MigrationStatus{ID: mig.ID, Name: mig.Name, State: StatePending}
		if rec, ok := recsByID[mig.ID]; ok {
			status.State = StateApplied
			status.AppliedAt = rec.AppliedAt
			status.Drifted = mig.Checksum() != rec.Checksum
		}
		statuses = append(statuses, status)
	}

	// Applied records without a matching migration file.
	for _, rec := range records {
		if _, ok := migsByID[rec.ID]; !ok {
			statuses = append(statuses, &MigrationStatus{
				ID: rec.ID, Name: rec.Name, State: StateMissing, AppliedAt: rec.AppliedAt,
			})
		}
	}

	slices.SortFunc(statuses, func(a, b *MigrationStatus) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return statuses, nil
}
