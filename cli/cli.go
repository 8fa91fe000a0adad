package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"go.hackfix.me/trek/app/config"
	actx "go.hackfix.me/trek/app/context"
)

// CLI is the command line interface of trek.
type CLI struct {
	Apply  Apply  `kong:"cmd,help='Apply pending migrations to the target database.'"`
	Create Create `kong:"cmd,help='Create a new migration file.'"`
	Status Status `kong:"cmd,help='Show the state of all migrations.'"`
	Unlock Unlock `kong:"cmd,help='Forcibly release the migration lock left behind by a crashed run.'"`
	Verify Verify `kong:"cmd,help='Verify that applied migrations still match their recorded checksums.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	ConfigFile string           `kong:"default='${configFile}',help='Path to the trek configuration file.'"`
	DB         string           `kong:"name='db',help='Path to the target SQLite database.'"`
	Dir        string           `kong:"help='Path to the directory containing migration files.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(version, configFilePath string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("trek"),
		kong.UsageOnError(),
		kong.DefaultEnvars("TREK"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.DB == "" && cfg.Database.Path.Valid {
		c.DB = cfg.Database.Path.V
	}
	if c.Dir == "" && cfg.Migrations.Dir.Valid {
		c.Dir = cfg.Migrations.Dir.V
	}
	if !c.Apply.StrictOrder && cfg.Migrations.StrictOrder.Valid {
		c.Apply.StrictOrder = cfg.Migrations.StrictOrder.V
	}
}
