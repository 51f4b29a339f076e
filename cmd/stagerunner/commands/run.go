package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/stagerunner/internal/config"
	"git.home.luguber.info/inful/stagerunner/internal/eventstore"
	"git.home.luguber.info/inful/stagerunner/internal/execenv"
	"git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
	"git.home.luguber.info/inful/stagerunner/internal/git"
	"git.home.luguber.info/inful/stagerunner/internal/logfields"
	"git.home.luguber.info/inful/stagerunner/internal/metrics"
	"git.home.luguber.info/inful/stagerunner/internal/notify"
	"git.home.luguber.info/inful/stagerunner/internal/orchestrator"
	"git.home.luguber.info/inful/stagerunner/internal/retry"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
	"git.home.luguber.info/inful/stagerunner/internal/workspace"
)

// RunCmd implements the default command: run one stage.
type RunCmd struct {
	Stage     string `arg:"" help:"Stage to run: test-plugins, test-rest-service, run-integration-tests or flake8"`
	DryRun    bool   `help:"Print the plan without executing any step"`
	Strict    bool   `help:"Fail on an unknown stage instead of doing nothing"`
	Ephemeral bool   `help:"Clone dependencies into a temporary directory removed after the run"`

	out io.Writer
}

// Run executes the stage.
func (r *RunCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ws := newWorkspace(cfg, r.Ephemeral)
	if err := ws.Create(); err != nil {
		return errors.WrapError(err, errors.CategoryEnvironment, "failed to prepare workspace").
			Fatal().
			WithContext("path", cfg.Workspace.Dir).
			Build()
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to clean up workspace", logfields.Path(ws.DepsDir()), logfields.Error(err))
		}
	}()

	fetcher := git.NewClient().
		WithDepth(cfg.Source.Depth).
		WithRetryPolicy(retry.FromConfig(cfg.Source.Retry))
	if root.Verbose {
		fetcher = fetcher.WithProgress(os.Stderr)
	}

	observers := openObservers(cfg)
	defer observers.Close()

	out := r.out
	if out == nil {
		out = os.Stdout
	}
	exec := orchestrator.New(cfg, stage.NewCatalog(cfg), ws).
		WithFetcher(fetcher).
		WithObserver(observers.Observer()).
		WithDryRun(r.DryRun, out).
		WithStrict(r.Strict)

	_, err = exec.Run(ctx, execenv.FromProcess(ws.Root()), r.Stage)
	return err
}

func newWorkspace(cfg *config.Config, ephemeral bool) *workspace.Manager {
	if ephemeral || cfg.Workspace.Ephemeral {
		return workspace.NewEphemeralManager(cfg.Workspace.Dir, "")
	}
	return workspace.NewManager(cfg.Workspace.Dir)
}

// observerSet owns the optional observers of one run.
type observerSet struct {
	observers []orchestrator.Observer
	closers   []func()
}

// openObservers enables each observer whose configuration is present. An
// observer that cannot be opened is skipped with a warning.
func openObservers(cfg *config.Config) *observerSet {
	set := &observerSet{}

	if path := cfg.Metrics.Textfile; path != "" {
		rec := metrics.NewPrometheusRecorder(nil)
		set.add(orchestrator.RecorderObserver{Recorder: rec}, func() {
			if err := rec.WriteTextfile(path); err != nil {
				slog.Warn("Failed to export metrics", logfields.Path(path), logfields.Error(err))
			}
		})
	}

	if path := cfg.History.Path; path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			slog.Warn("Run history disabled", logfields.Path(path), logfields.Error(err))
		} else {
			set.add(eventstore.NewRecorder(store), func() { _ = store.Close() })
		}
	}

	if url := cfg.Notify.NATSURL; url != "" {
		n, err := notify.Connect(url, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Event notifications disabled", logfields.URL(url), logfields.Error(err))
		} else {
			set.add(n, func() {
				if err := n.Close(); err != nil {
					slog.Warn("Failed to close notifier", logfields.Error(err))
				}
			})
		}
	}
	return set
}

func (s *observerSet) add(o orchestrator.Observer, closer func()) {
	s.observers = append(s.observers, o)
	s.closers = append(s.closers, closer)
}

// Observer returns the fan-out of every enabled observer.
func (s *observerSet) Observer() orchestrator.Observer {
	return orchestrator.NewMulti(s.observers...)
}

// Close runs the closers in reverse order.
func (s *observerSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
