package migrator

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mr-tron/base58"

	"go.hackfix.me/trek/crypto"
)

// checksumKey domain-separates migration checksums from other hashes.
const checksumKey = "trek migration"

// Migration is a single versioned batch of schema statements, applied exactly
// once. Its ID must sort ascending relative to all other migrations, which is
// typically achieved with a timestamp prefix in the filename. A migration is
// immutable once it has been applied anywhere; editing it afterwards is
// detected as drift.
type Migration struct {
	ID   string
	Name string
	SQL  string
}

// Checksum returns the base58-encoded BLAKE2b hash of the migration content.
func (m *Migration) Checksum() string {
	return base58.Encode(crypto.Hash(checksumKey, []byte(m.SQL)))
}

// sortMigrations sorts migrations in ascending ID order, regardless of the
// order they were provided in.
func sortMigrations(migrations []*Migration) []*Migration {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b *Migration) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return sorted
}

// parseFilename extracts the migration ID and name from a filename in the
// format '{id}-{name}.sql', where the ID is a sequence of digits. It returns
// false if the filename doesn't match the format.
func parseFilename(filename string) (id, name string, ok bool) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	id, name, found := strings.Cut(base, "-")
	if !found || id == "" || name == "" {
		return "", "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}

	return id, name, true
}
