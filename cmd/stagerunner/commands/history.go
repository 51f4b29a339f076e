package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/eventstore"
	"git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of runs to show"`
	Stage string `help:"Only show runs of this stage"`

	out io.Writer
}

// Run prints recent runs, newest first.
func (h *HistoryCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.ConfigError("run history is not configured (history.path)").Build()
	}
	if _, err := os.Stat(cfg.History.Path); err != nil {
		return errors.ConfigError("run history database not found").
			WithCause(err).
			WithContext("path", cfg.History.Path).
			Build()
	}

	var filter stage.ID
	if h.Stage != "" {
		id, ok := stage.Parse(h.Stage)
		if !ok {
			return errors.ValidationError(fmt.Sprintf("unknown stage %q", h.Stage)).Build()
		}
		filter = id
	}

	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewRunHistoryProjection(store, 1000)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}

	out := h.out
	if out == nil {
		out = os.Stdout
	}
	var runs []*eventstore.RunSummary
	for _, run := range projection.GetHistory() {
		if filter != "" && run.Stage != string(filter) {
			continue
		}
		runs = append(runs, run)
		if h.Limit > 0 && len(runs) == h.Limit {
			break
		}
	}
	writeHistory(out, runs)
	return nil
}

func writeHistory(w io.Writer, runs []*eventstore.RunSummary) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %-36s  %-18s %-8s exit=%-3d %s",
			run.StartedAt.Local().Format(time.DateTime), run.RunID, run.Stage, run.Status,
			run.ExitCode, run.Duration.Round(time.Millisecond))
		if run.FailedStep != "" {
			line += "  failed: " + run.FailedStep
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
