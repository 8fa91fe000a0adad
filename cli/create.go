package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "go.hackfix.me/trek/app/context"
	aerrors "go.hackfix.me/trek/app/errors"
)

const migrationTemplate = `-- Forward-only migration. Editing this file after it has been applied
-- anywhere will be detected as drift.
`

// The Create command scaffolds a new migration file with a timestamp ID in the
// migrations directory.
type Create struct {
	Name string `arg:"" help:"Short descriptive name of the migration."`
}

// Run the create command.
func (c *Create) Run(appCtx *actx.Context) error {
	slug := slugify(c.Name)
	if slug == "" {
		return aerrors.NewWith("the migration name must contain letters or digits",
			"name", c.Name)
	}

	if err := appCtx.FS.MkdirAll(appCtx.MigrationsDir, 0o755); err != nil {
		return aerrors.NewWithCause("failed creating the migrations directory", err,
			"dir", appCtx.MigrationsDir)
	}

	id := appCtx.TimeNow().UTC().Format("20060102150405")
	entries, err := vfs.ReadDir(appCtx.FS, appCtx.MigrationsDir)
	if err != nil {
		return aerrors.NewWithCause("failed reading the migrations directory", err,
			"dir", appCtx.MigrationsDir)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), fmt.Sprintf("%s-", id)) {
			return aerrors.NewWith("a migration with this ID already exists",
				"id", id, "file", entry.Name())
		}
	}

	filename := fmt.Sprintf("%s-%s.sql", id, slug)
	path := filepath.Join(appCtx.MigrationsDir, filename)

	if err := vfs.WriteFile(appCtx.FS, path, []byte(migrationTemplate), 0o644); err != nil {
		return aerrors.NewWithCause("failed writing the migration file", err, "path", path)
	}

	fmt.Fprintf(appCtx.Stdout, "Created %s\n", path)

	return nil
}

// slugify converts the name to lowercase, and replaces runs of characters
// other than letters and digits with a single dash, so that the resulting
// filename parses back into the same ID and name.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}
