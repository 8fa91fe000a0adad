package app

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/require"

	actx "go.hackfix.me/trek/app/context"
	"go.hackfix.me/trek/db"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	fs             vfs.FileSystem
	db             *db.DB
	stdout, stderr *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	// A unique name per app, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:trek-%x?mode=memory&cache=shared", rndName), timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	fs := memoryfs.New()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	app, err := New("trek", "/config.json", "/data",
		WithTimeNow(timeNowFn),
		WithEnv(&mockEnv{env: map[string]string{}}),
		WithDB(d),
		WithContext(t.Context()),
		WithFDs(strings.NewReader(""), stdout, stderr),
		WithFS(fs),
		WithLogger(false, false),
	)
	require.NoError(t, err)

	return &testApp{App: app, fs: fs, db: d, stdout: stdout, stderr: stderr}
}

// Run executes a single command, resetting the output buffers beforehand.
func (ta *testApp) Run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()
	return ta.App.Run(args)
}

// writeMigrations stores the given migration files in dir on the test
// filesystem.
func (ta *testApp) writeMigrations(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, ta.fs.MkdirAll(dir, 0o755))
	for name, content := range files {
		err := vfs.WriteFile(ta.fs, fmt.Sprintf("%s/%s", dir, name), []byte(content), 0o644)
		require.NoError(t, err)
	}
}

type mockEnv struct {
	mx  sync.RWMutex
	env map[string]string
}

var _ actx.Environment = (*mockEnv)(nil)

func (me *mockEnv) Get(key string) string {
	me.mx.RLock()
	defer me.mx.RUnlock()
	return me.env[key]
}

func (me *mockEnv) Set(key, val string) error {
	me.mx.Lock()
	defer me.mx.Unlock()
	me.env[key] = val
	return nil
}
