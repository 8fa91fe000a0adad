package migrator

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Source loads migrations for the Migrator to apply.
type Source interface {
	Load() ([]*Migration, error)
}

// DirSource loads migrations from a directory of SQL files named
// '{id}-{name}.sql'. Files with other extensions or malformed names are
// ignored.
type DirSource struct {
	fs     vfs.FileSystem
	dir    string
	logger *slog.Logger
}

var _ Source = (*DirSource)(nil)

// NewDirSource creates a new DirSource for the given directory.
func NewDirSource(fs vfs.FileSystem, dir string, logger *slog.Logger) *DirSource {
	return &DirSource{fs: fs, dir: dir, logger: logger}
}

// Load reads all migration files from the directory, and returns them in
// ascending ID order. It returns an error if two files share the same ID.
func (s *DirSource) Load() ([]*Migration, error) {
	entries, err := vfs.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory '%s': %w", s.dir, err)
	}

	seen := map[string]string{}
	var migrations []*Migration
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(filename), ".sql") {
			s.logger.Debug("skipping non-SQL file", "file", filename)
			continue
		}

		id, name, ok := parseFilename(filename)
		if !ok {
			s.logger.Debug("skipping file with malformed name", "file", filename)
			continue
		}
		if dup, exists := seen[id]; exists {
			return nil, fmt.Errorf("duplicate migration ID '%s' in files '%s' and '%s'",
				id, dup, filename)
		}
		seen[id] = filename

		content, err := vfs.ReadFile(s.fs, filepath.Join(s.dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", filename, err)
		}

		migrations = append(migrations, &Migration{ID: id, Name: name, SQL: string(content)})
	}

	migrations = sortMigrations(migrations)
	s.logger.Debug("loaded migrations", "dir", s.dir, "count", len(migrations))

	return migrations, nil
}
