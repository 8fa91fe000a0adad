package cli

import (
	"fmt"
	"time"

	actx "go.hackfix.me/trek/app/context"
	aerrors "go.hackfix.me/trek/app/errors"
	"go.hackfix.me/trek/db/migrator"
)

// The Status command shows the state of all migrations relative to the target
// database.
type Status struct{}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context) error {
	migrations, err := loadMigrations(appCtx)
	if err != nil {
		return err
	}

	m := migrator.New(appCtx.DB, appCtx.Logger)
	statuses, err := m.Status(appCtx.DB.NewContext(), migrations)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(appCtx.Stdout, "No migrations found.")
		return nil
	}

	header := []string{"ID", "Name", "State", "Applied At"}
	data := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		state := string(status.State)
		if status.Drifted {
			state = fmt.Sprintf("%s (drift!)", state)
		}
		appliedAt := "-"
		if !status.AppliedAt.IsZero() {
			appliedAt = status.AppliedAt.Format(time.DateTime)
		}
		data = append(data, []string{status.ID, status.Name, state, appliedAt})
	}

	if err = renderTable(header, data, appCtx.Stdout); err != nil {
		return aerrors.NewWithCause("failed rendering the status table", err)
	}

	return nil
}
