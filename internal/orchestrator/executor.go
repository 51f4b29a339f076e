package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/stagerunner/internal/config"
	"git.home.luguber.info/inful/stagerunner/internal/execenv"
	derrors "git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
	"git.home.luguber.info/inful/stagerunner/internal/git"
	"git.home.luguber.info/inful/stagerunner/internal/logfields"
	"git.home.luguber.info/inful/stagerunner/internal/runner"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
	"git.home.luguber.info/inful/stagerunner/internal/workspace"
)

// ExitCloneFailed is reported when a dependency could not be fetched, the
// status git itself exits with on a failed clone.
const ExitCloneFailed = 128

// Fetcher acquires a sibling repository into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, repo git.Repository, dest string) (git.Result, error)
}

// Executor runs stages from a catalog.
type Executor struct {
	cfg      *config.Config
	catalog  *stage.Catalog
	ws       *workspace.Manager
	runner   runner.Runner
	fetcher  Fetcher
	observer Observer
	plan     io.Writer
	dryRun   bool
	strict   bool
	newID    func() string
}

// New creates an executor. The runner defaults to local processes and the
// fetcher to a go-git client configured from cfg.Source.
func New(cfg *config.Config, catalog *stage.Catalog, ws *workspace.Manager) *Executor {
	return &Executor{
		cfg:      cfg,
		catalog:  catalog,
		ws:       ws,
		runner:   runner.NewExecRunner(),
		fetcher:  git.NewClient().WithDepth(cfg.Source.Depth),
		observer: NoopObserver{},
		plan:     os.Stdout,
		newID:    uuid.NewString,
	}
}

// WithRunner replaces the command runner.
func (e *Executor) WithRunner(r runner.Runner) *Executor { e.runner = r; return e }

// WithFetcher replaces the dependency fetcher.
func (e *Executor) WithFetcher(f Fetcher) *Executor { e.fetcher = f; return e }

// WithObserver installs observer; nil restores the no-op observer.
func (e *Executor) WithObserver(o Observer) *Executor {
	if o == nil {
		o = NoopObserver{}
	}
	e.observer = o
	return e
}

// WithDryRun prints the plan to w instead of executing it.
func (e *Executor) WithDryRun(enabled bool, w io.Writer) *Executor {
	e.dryRun = enabled
	if w != nil {
		e.plan = w
	}
	return e
}

// WithStrict rejects unknown stage names instead of doing nothing.
func (e *Executor) WithStrict(enabled bool) *Executor { e.strict = enabled; return e }

// Run executes the stage called name in ec. The returned error, when not nil,
// is a ClassifiedError carrying the exit status of the failing step.
func (e *Executor) Run(ctx context.Context, ec *execenv.Context, name string) (*Result, error) {
	res := &Result{RunID: e.newID(), Requested: name, Started: time.Now()}
	st, ok := e.catalog.Lookup(name)
	if !ok {
		res.Finished = time.Now()
		if e.strict {
			return res, derrors.ValidationError(fmt.Sprintf("unknown stage %q", name)).
				WithContext("stage", name).
				WithContext("known", strings.Join(stage.Aliases(), ", ")).
				Build()
		}
		slog.Warn("Unknown stage, nothing to run", logfields.Stage(name), logfields.RunID(res.RunID))
		return res, nil
	}
	res.Found = true
	res.Stage = st.ID
	res.Planned = st.Steps

	if e.dryRun {
		res.DryRun = true
		e.printPlan(st)
		res.Finished = time.Now()
		return res, nil
	}

	run := RunInfo{ID: res.RunID, Stage: st.ID, Requested: name, Started: res.Started}
	log := slog.With(logfields.RunID(run.ID), logfields.Stage(string(st.ID)))
	log.Info("Stage starting", slog.Int("steps", len(st.Steps)))
	e.observer.OnStageStart(run, st.Steps)

	var failure error
	for i, step := range st.Steps {
		if err := ctx.Err(); err != nil {
			res.ExitCode = runner.ExitCanceled
			failure = derrors.WrapError(err, derrors.CategoryRuntime, "stage interrupted").
				Fatal().
				WithContext("stage", string(st.ID)).
				WithContext("step", step.Label()).
				WithExitCode(runner.ExitCanceled).
				Build()
			break
		}

		e.observer.OnStepStart(run, i, step)
		outcome := e.runStep(ctx, ec, i, step)
		res.Steps = append(res.Steps, outcome)
		e.observer.OnStepComplete(run, outcome)

		attrs := []any{
			logfields.Index(i), logfields.Kind(string(step.Kind)), logfields.Step(outcome.Name),
			logfields.ExitCode(outcome.ExitCode), logfields.DurationMS(millis(outcome.Duration)),
		}
		if !outcome.Failed() {
			log.Debug("Step complete", attrs...)
			continue
		}
		if outcome.Err != nil {
			attrs = append(attrs, logfields.Error(outcome.Err))
		}
		if !step.Guarded {
			log.Warn("Step failed, continuing", append(attrs, logfields.Guarded(false))...)
			continue
		}
		log.Error("Step failed", attrs...)
		res.ExitCode = outcome.ExitCode
		failure = stepError(st.ID, outcome)
		break
	}

	res.Finished = time.Now()
	e.observer.OnStageComplete(run, res)
	if failure == nil {
		log.Info("Stage complete", logfields.DurationMS(millis(res.Duration())))
	}
	return res, failure
}

func (e *Executor) runStep(ctx context.Context, ec *execenv.Context, index int, step stage.Step) StepOutcome {
	if timeout := e.cfg.StepTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t0 := time.Now()
	code, err := e.execute(ctx, ec, step)
	if err != nil && code == 0 {
		code = runner.ExitGeneric
	}
	return StepOutcome{
		Index:    index,
		Kind:     step.Kind,
		Name:     step.Label(),
		Guarded:  step.Guarded,
		ExitCode: code,
		Duration: time.Since(t0),
		Err:      err,
	}
}

func (e *Executor) printPlan(st stage.Stage) {
	fmt.Fprintf(e.plan, "stage %s (%d steps)\n", st.ID, len(st.Steps))
	for i, step := range st.Steps {
		guard := " "
		if step.Guarded {
			guard = "*"
		}
		fmt.Fprintf(e.plan, "%3d %s %-8s %s\n", i+1, guard, step.Kind, e.describe(step))
	}
}

// describe renders the command a step would run.
func (e *Executor) describe(step stage.Step) string {
	switch step.Kind {
	case stage.KindClone:
		return fmt.Sprintf("%s -> %s", e.cfg.RepositoryURL(step.Repo), e.ws.DepPath(step.Repo))
	case stage.KindEnv:
		return e.command(step).String() + " && activate"
	default:
		return e.command(step).String()
	}
}

func millis(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// stepError classifies a failed guarded step by its kind.
func stepError(id stage.ID, o StepOutcome) error {
	msg := fmt.Sprintf("step %q failed with exit code %d", o.Name, o.ExitCode)
	var b *derrors.ErrorBuilder
	switch o.Kind {
	case stage.KindEnv:
		b = derrors.EnvironmentError(msg)
	case stage.KindClone:
		b = derrors.FetchError(msg)
	case stage.KindInstall:
		b = derrors.InstallError(msg)
	case stage.KindServe:
		b = derrors.ServeError(msg)
	case stage.KindTest:
		b = derrors.TestError(msg)
	case stage.KindLint:
		b = derrors.LintError(msg)
	default:
		b = derrors.RuntimeError(msg)
	}
	return b.WithCause(o.Err).
		WithContext("stage", string(id)).
		WithContext("step", o.Name).
		WithContext("index", o.Index).
		WithExitCode(o.ExitCode).
		Build()
}
