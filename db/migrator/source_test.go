package migrator

import (
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSourceLoad(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	require.NoError(t, fs.MkdirAll("migrations/archive", 0o755))
	files := map[string]string{
		"migrations/20250102000000-add-payments.sql": "CREATE TABLE payments (id INTEGER PRIMARY KEY);",
		"migrations/20250101000000-create-deals.sql": "CREATE TABLE deals (id INTEGER PRIMARY KEY);",
		"migrations/README.md":                       "not a migration",
		"migrations/notes.sql":                       "-- no ID prefix",
	}
	for path, content := range files {
		require.NoError(t, vfs.WriteFile(fs, path, []byte(content), 0o644))
	}

	source := NewDirSource(fs, "migrations", newTestLogger())
	migrations, err := source.Load()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	// Returned in ascending ID order, regardless of directory listing order.
	assert.Equal(t, "20250101000000", migrations[0].ID)
	assert.Equal(t, "create-deals", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE deals (id INTEGER PRIMARY KEY);", migrations[0].SQL)
	assert.Equal(t, "20250102000000", migrations[1].ID)
	assert.Equal(t, "add-payments", migrations[1].Name)
}

func TestDirSourceLoadDuplicateID(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	require.NoError(t, fs.MkdirAll("migrations", 0o755))
	require.NoError(t, vfs.WriteFile(fs, "migrations/001-first.sql", []byte("SELECT 1;"), 0o644))
	require.NoError(t, vfs.WriteFile(fs, "migrations/001-second.sql", []byte("SELECT 2;"), 0o644))

	source := NewDirSource(fs, "migrations", newTestLogger())
	_, err := source.Load()
	assert.ErrorContains(t, err, "duplicate migration ID '001'")
}

func TestDirSourceLoadMissingDir(t *testing.T) {
	t.Parallel()

	source := NewDirSource(memoryfs.New(), "nonexistent", newTestLogger())
	_, err := source.Load()
	assert.ErrorContains(t, err, "failed reading migrations directory")
}

func TestParseFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		expID    string
		expName  string
		expOK    bool
	}{
		{"20250101000000-create-deals.sql", "20250101000000", "create-deals", true},
		{"001-add-deal-stage.sql", "001", "add-deal-stage", true},
		{"notes.sql", "", "", false},
		{"abc-def.sql", "", "", false},
		{"123.sql", "", "", false},
		{"123-.sql", "", "", false},
		{"-name.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			id, name, ok := parseFilename(tt.filename)
			assert.Equal(t, tt.expOK, ok)
			assert.Equal(t, tt.expID, id)
			assert.Equal(t, tt.expName, name)
		})
	}
}

func TestMigrationChecksum(t *testing.T) {
	t.Parallel()

	mig := &Migration{ID: "001", Name: "create-deals", SQL: "CREATE TABLE deals (id INTEGER);"}
	sum := mig.Checksum()
	assert.NotEmpty(t, sum)

	// Stable for identical content, regardless of ID and name.
	other := &Migration{ID: "002", Name: "other", SQL: mig.SQL}
	assert.Equal(t, sum, other.Checksum())

	mig.SQL += " -- changed"
	assert.NotEqual(t, sum, mig.Checksum())
}
