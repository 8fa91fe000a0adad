package cli

import (
	"fmt"
	"time"

	actx "go.hackfix.me/trek/app/context"
	"go.hackfix.me/trek/db/migrator"
)

// The Unlock command forcibly releases the migration lock. It is only meant to
// recover from a crashed run that left a stale lock behind; releasing the lock
// while another run is in progress removes the protection against concurrent
// application.
type Unlock struct{}

// Run the unlock command.
func (c *Unlock) Run(appCtx *actx.Context) error {
	m := migrator.New(appCtx.DB, appCtx.Logger)
	held, err := m.Unlock(appCtx.DB.NewContext())
	if err != nil {
		return err
	}
	if held == nil {
		fmt.Fprintln(appCtx.Stdout, "The migration lock is not held.")
		return nil
	}

	fmt.Fprintf(appCtx.Stdout, "Released the migration lock held by %s since %s.\n",
		held.Owner, held.AcquiredAt.Format(time.RFC3339))

	return nil
}
