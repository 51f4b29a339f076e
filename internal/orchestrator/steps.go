package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"git.home.luguber.info/inful/stagerunner/internal/execenv"
	"git.home.luguber.info/inful/stagerunner/internal/git"
	"git.home.luguber.info/inful/stagerunner/internal/logfields"
	"git.home.luguber.info/inful/stagerunner/internal/runner"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// execute runs one step and returns its exit status.
func (e *Executor) execute(ctx context.Context, ec *execenv.Context, step stage.Step) (int, error) {
	switch step.Kind {
	case stage.KindEnv:
		return e.prepareEnv(ctx, ec, step)
	case stage.KindClone:
		return e.clone(ctx, step)
	case stage.KindServe:
		return e.runner.Start(ec, e.command(step))
	case stage.KindInstall, stage.KindTest, stage.KindLint, stage.KindShell:
		return e.runner.Run(ctx, ec, e.command(step))
	default:
		return runner.ExitGeneric, fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}

// command builds the process invocation for a step.
func (e *Executor) command(step stage.Step) runner.Command {
	tools := e.cfg.Tools
	switch step.Kind {
	case stage.KindEnv:
		return runner.Command{Name: tools.Virtualenv, Args: []string{step.Target}}
	case stage.KindInstall:
		dir := step.Dir
		if step.Repo != "" {
			dir = e.ws.DepPath(step.Repo)
		}
		args := append([]string{"install", step.Target}, step.Args...)
		return runner.Command{Name: tools.Pip, Args: args, Dir: dir}
	case stage.KindServe:
		return runner.Command{
			Name: tools.Python,
			Args: []string{"-m", "SimpleHTTPServer", strconv.Itoa(step.Port)},
			Dir:  step.Dir,
		}
	case stage.KindTest:
		args := append([]string{step.Target}, tools.NoseArgs...)
		return runner.Command{Name: tools.Nosetests, Args: args, Dir: step.Dir}
	case stage.KindLint:
		return runner.Command{Name: tools.Flake8, Args: []string{step.Target}, Dir: step.Dir}
	default:
		return runner.Command{Name: step.Command, Args: step.Args, Dir: step.Dir}
	}
}

// prepareEnv creates the virtualenv and activates it for the remaining steps.
func (e *Executor) prepareEnv(ctx context.Context, ec *execenv.Context, step stage.Step) (int, error) {
	code, err := e.runner.Run(ctx, ec, e.command(step))
	if err != nil || code != 0 {
		return code, err
	}
	if err := ec.Activate(step.Target); err != nil {
		return runner.ExitGeneric, err
	}
	slog.Debug("Virtualenv activated", logfields.Path(ec.VirtualEnv()))
	return 0, nil
}

func (e *Executor) clone(ctx context.Context, step stage.Step) (int, error) {
	repo := git.Repository{
		Name:   step.Repo,
		URL:    e.cfg.RepositoryURL(step.Repo),
		Branch: e.cfg.RepositoryBranch(step.Repo),
	}
	dest := e.ws.DepPath(step.Repo)
	res, err := e.fetcher.Fetch(ctx, repo, dest)
	if err != nil {
		return ExitCloneFailed, err
	}
	slog.Info("Dependency ready",
		logfields.Repository(repo.Name),
		logfields.URL(repo.URL),
		logfields.Path(res.Path),
		slog.String("commit", res.Commit),
		slog.Bool("updated", res.Updated))
	return 0, nil
}
