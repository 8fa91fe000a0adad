package app

import (
	"testing"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/trek/db/migrator"
)

var testMigrationFiles = map[string]string{
	"20250101000001-create-deals.sql":   `CREATE TABLE deals (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
	"20250101000002-add-deal-stage.sql": `ALTER TABLE deals ADD COLUMN stage TEXT NOT NULL DEFAULT 'new';`,
}

func TestAppApply(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.writeMigrations(t, "/migrations", testMigrationFiles)

	err := ta.Run("--dir", "/migrations", "apply")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "applied 20250101000001-create-deals")
	assert.Contains(t, ta.stdout.String(), "applied 20250101000002-add-deal-stage")

	// Re-running is a no-op.
	err = ta.Run("--dir", "/migrations", "apply")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "No pending migrations.")

	err = ta.Run("--dir", "/migrations", "verify")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "No drift detected.")

	err = ta.Run("--dir", "/migrations", "status")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "20250101000001")
	assert.Contains(t, ta.stdout.String(), "applied")
	assert.NotContains(t, ta.stdout.String(), "pending")
}

func TestAppApplyDryRun(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.writeMigrations(t, "/migrations", testMigrationFiles)

	err := ta.Run("--dir", "/migrations", "apply", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "would apply 20250101000001-create-deals")

	// Nothing was applied.
	err = ta.Run("--dir", "/migrations", "status")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "pending")
	assert.NotContains(t, ta.stdout.String(), "applied ")
}

func TestAppApplyFailure(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	files := map[string]string{
		"20250101000001-create-deals.sql": `CREATE TABLE deals (id INTEGER PRIMARY KEY);`,
		"20250101000002-broken.sql":       `ALTER TABLE nonexistent ADD COLUMN broken TEXT;`,
	}
	ta.writeMigrations(t, "/migrations", files)

	err := ta.Run("--dir", "/migrations", "apply")
	var applyErr migrator.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "20250101000002", applyErr.ID)
	// The successfully applied migration is still reported.
	assert.Contains(t, ta.stdout.String(), "applied 20250101000001-create-deals")
}

func TestAppApplyDrift(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.writeMigrations(t, "/migrations", testMigrationFiles)

	require.NoError(t, ta.Run("--dir", "/migrations", "apply"))

	// Edit an already applied migration file.
	err := vfs.WriteFile(ta.fs, "/migrations/20250101000001-create-deals.sql",
		[]byte(`CREATE TABLE deals (id INTEGER PRIMARY KEY);`), 0o644)
	require.NoError(t, err)

	var driftErr migrator.DriftError
	require.ErrorAs(t, ta.Run("--dir", "/migrations", "verify"), &driftErr)
	assert.Equal(t, "20250101000001", driftErr.ID)

	require.ErrorAs(t, ta.Run("--dir", "/migrations", "apply"), &driftErr)

	// Status flags the drift instead of failing.
	require.NoError(t, ta.Run("--dir", "/migrations", "status"))
	assert.Contains(t, ta.stdout.String(), "drift!")
}

func TestAppCreate(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)

	err := ta.Run("--dir", "/migrations", "create", "Add Deal Stage")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "Created /migrations/20250101000000-add-deal-stage.sql")

	content, err := vfs.ReadFile(ta.fs, "/migrations/20250101000000-add-deal-stage.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "Forward-only migration")

	// A second file with the same timestamp ID is rejected.
	err = ta.Run("--dir", "/migrations", "create", "another one")
	assert.ErrorContains(t, err, "already exists")
}

func TestAppUnlock(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.writeMigrations(t, "/migrations", testMigrationFiles)

	err := ta.Run("--dir", "/migrations", "unlock")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "The migration lock is not held.")
}

func TestAppConfigFile(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.writeMigrations(t, "/conf-migrations", testMigrationFiles)

	configJSON := `{"Migrations": {"Dir": {"V": "/conf-migrations", "Valid": true}}}`
	require.NoError(t, vfs.WriteFile(ta.fs, "/config.json", []byte(configJSON), 0o644))

	// No --dir flag; the directory comes from the configuration file.
	err := ta.Run("apply")
	require.NoError(t, err)
	assert.Contains(t, ta.stdout.String(), "applied 20250101000001-create-deals")
}
