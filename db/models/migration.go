package models

import (
	"context"
	"fmt"
	"time"

	"go.hackfix.me/trek/db/types"
)

// AppliedMigration is the bookkeeping record of a single applied migration.
// Records are only ever appended, never mutated.
type AppliedMigration struct {
	ID        string
	Name      string
	AppliedAt time.Time
	Checksum  string
}

// Save stores the record in the database.
func (m *AppliedMigration) Save(ctx context.Context, d types.Querier) error {
	timeNow := d.TimeNow().UTC()
	insertStmt := `INSERT INTO _migrations (id, name, applied_at, checksum)
		VALUES (?, ?, ?, ?)`
	_, err := d.ExecContext(ctx, insertStmt, m.ID, m.Name, timeNow, m.Checksum)
	if err != nil {
		return types.Err("migration record", fmt.Sprintf("ID '%s'", m.ID), err)
	}
	m.AppliedAt = timeNow

	return nil
}

// Load the record from the database. The record ID must be set for the lookup.
func (m *AppliedMigration) Load(ctx context.Context, d types.Querier) error {
	if m.ID == "" {
		return types.InvalidInputError{Msg: "the migration record ID must be set"}
	}

	filter := types.NewFilter("id = ?", []any{m.ID})
	records, err := AppliedMigrations(ctx, d, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return types.NoResultError{ModelName: "migration record", ID: fmt.Sprintf("ID '%s'", m.ID)}
	}

	*m = *records[0]

	return nil
}

// AppliedMigrations returns one or more migration records from the database,
// in ascending ID order. An optional filter can be passed to limit the results.
func AppliedMigrations(ctx context.Context, d types.Querier, filter *types.Filter) (
	[]*AppliedMigration, error,
) {
	query := `SELECT id, name, applied_at, checksum FROM _migrations`
	var args []any
	if filter != nil {
		query = fmt.Sprintf("%s WHERE %s", query, filter.Where)
		args = filter.Args
	}
	query = fmt.Sprintf("%s ORDER BY id ASC", query)

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed querying migration records: %w", err)
	}
	defer rows.Close()

	var records []*AppliedMigration
	for rows.Next() {
		rec := &AppliedMigration{}
		err = rows.Scan(&rec.ID, &rec.Name, &rec.AppliedAt, &rec.Checksum)
		if err != nil {
			return nil, types.ScanError{ModelName: "migration record", Err: err}
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading migration records: %w", err)
	}

	return records, nil
}
