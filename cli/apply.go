package cli

import (
	"fmt"

	actx "go.hackfix.me/trek/app/context"
	"go.hackfix.me/trek/db/migrator"
)

// The Apply command applies all pending migrations to the target database, in
// ascending ID order.
type Apply struct {
	DryRun      bool   `help:"Only show the migrations that would be applied, without applying them."`
	StrictOrder bool   `help:"Fail if a pending migration sorts below the last applied one."`
	Target      string `placeholder:"ID" help:"Apply migrations up to and including this ID."`
}

// Run the apply command.
func (c *Apply) Run(appCtx *actx.Context) error {
	migrations, err := loadMigrations(appCtx)
	if err != nil {
		return err
	}

	m := migrator.New(appCtx.DB, appCtx.Logger, migrator.WithStrictOrder(c.StrictOrder))
	dbCtx := appCtx.DB.NewContext()

	if c.DryRun {
		pending, err := m.Plan(dbCtx, migrations)
		if err != nil {
			return err
		}
		pending = untilTarget(pending, c.Target)
		if len(pending) == 0 {
			fmt.Fprintln(appCtx.Stdout, "No pending migrations.")
			return nil
		}
		for _, mig := range pending {
			fmt.Fprintf(appCtx.Stdout, "would apply %s-%s\n", mig.ID, mig.Name)
		}

		return nil
	}

	applied, err := m.Apply(dbCtx, migrations, c.Target)
	// Report the migrations that were applied even if a later one failed.
	for _, mig := range applied {
		fmt.Fprintf(appCtx.Stdout, "applied %s-%s\n", mig.ID, mig.Name)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(appCtx.Stdout, "No pending migrations.")
	}

	return nil
}

func untilTarget(migrations []*migrator.Migration, target string) []*migrator.Migration {
	if target == "" {
		return migrations
	}
	for i, mig := range migrations {
		if mig.ID > target {
			return migrations[:i]
		}
	}

	return migrations
}

func loadMigrations(appCtx *actx.Context) ([]*migrator.Migration, error) {
	source := migrator.NewDirSource(appCtx.FS, appCtx.MigrationsDir, appCtx.Logger)
	return source.Load()
}
