package migrator

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.hackfix.me/trek/db"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	// A unique name per test, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:trek-%x?mode=memory&cache=shared", rndName), timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testMigrations returns a migration sequence with later migrations depending
// on schema created by earlier ones, so that any out-of-order application
// fails loudly.
func testMigrations() []*Migration {
	return []*Migration{
		{
			ID:   "20250101000001",
			Name: "create-deals",
			SQL:  `CREATE TABLE deals (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
		},
		{
			ID:   "20250101000002",
			Name: "add-deal-stage",
			SQL:  `ALTER TABLE deals ADD COLUMN stage TEXT NOT NULL DEFAULT 'new';`,
		},
		{
			ID:   "20250101000003",
			Name: "index-deal-stage",
			SQL:  `CREATE INDEX idx_deals_stage ON deals (stage);`,
		},
	}
}
