package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/stagerunner/internal/config"
)

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (default: stagerunner.yaml when present)"`
	Workspace string           `short:"w" help:"Workspace root; overrides workspace.dir"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run a CI stage (the default command)"`
	Stages  StagesCmd  `cmd:"" help:"List the stages and their steps"`
	History HistoryCmd `cmd:"" help:"Show recent runs from the run history"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig resolves the configuration file and applies global flag overrides.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Workspace != "" {
		cfg.Workspace.Dir = c.Workspace
	}
	return cfg, nil
}
