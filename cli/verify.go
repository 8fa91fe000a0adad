package cli

import (
	"fmt"

	actx "go.hackfix.me/trek/app/context"
	"go.hackfix.me/trek/db/migrator"
)

// The Verify command checks that all applied migrations still match their
// recorded checksums, without applying anything.
type Verify struct{}

// Run the verify command.
func (c *Verify) Run(appCtx *actx.Context) error {
	migrations, err := loadMigrations(appCtx)
	if err != nil {
		return err
	}

	m := migrator.New(appCtx.DB, appCtx.Logger)
	if err = m.Verify(appCtx.DB.NewContext(), migrations); err != nil {
		return err
	}

	fmt.Fprintln(appCtx.Stdout, "No drift detected.")

	return nil
}
