package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/trek/app"
	actx "go.hackfix.me/trek/app/context"
	aerrors "go.hackfix.me/trek/app/errors"
	"go.hackfix.me/trek/db/migrator"
)

func main() {
	configFile := filepath.Join(xdg.ConfigHome, "trek", "config.json")
	dataDir := filepath.Join(xdg.DataHome, "trek")

	a, err := app.New("trek", configFile, dataDir,
		app.WithTimeNow(time.Now),
		app.WithEnv(osEnv{}),
		app.WithFDs(
			os.Stdin,
			colorable.NewColorable(os.Stdout),
			colorable.NewColorable(os.Stderr),
		),
		app.WithFS(osfs.New()),
		app.WithLogger(
			isatty.IsTerminal(os.Stdout.Fd()),
			isatty.IsTerminal(os.Stderr.Fd()),
		),
	)
	if err != nil {
		aerrors.Log(err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Log(err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes the halt conditions operators are most likely to
// script around: 2 for checksum drift, 3 for a held lock, 1 for anything else.
func exitCode(err error) int {
	var (
		driftErr migrator.DriftError
		lockErr  migrator.LockHeldError
	)
	switch {
	case errors.As(err, &driftErr):
		return 2
	case errors.As(err, &lockErr):
		return 3
	}

	return 1
}

type osEnv struct{}

var _ actx.Environment = &osEnv{}

func (e osEnv) Get(key string) string {
	return os.Getenv(key)
}

func (e osEnv) Set(key, val string) error {
	return os.Setenv(key, val)
}
