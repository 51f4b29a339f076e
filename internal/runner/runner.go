package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/execenv"
	"git.home.luguber.info/inful/stagerunner/internal/logfields"
)

// Exit codes synthesized when a command produced no status of its own.
const (
	ExitGeneric  = 1
	ExitTimeout  = 124 // matches coreutils timeout(1)
	ExitNotFound = 127 // matches POSIX shells for a missing command
	ExitCanceled = 130 // 128 + SIGINT
)

// waitDelay bounds how long Run waits for output pipes after the child is killed.
const waitDelay = 2 * time.Second

// Command is one process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string // working directory; empty means the context directory
}

// String renders the command the way it would be typed into a shell.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(shellQuote(c.Name))
	for _, arg := range c.Args {
		b.WriteByte(' ')
		b.WriteString(shellQuote(arg))
	}
	return b.String()
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " \t\n'\"\\$`|&;<>()*?[]#~") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// Runner abstracts command execution for the stage executor.
type Runner interface {
	// Run executes cmd in the foreground and returns its exit code.
	Run(ctx context.Context, ec *execenv.Context, cmd Command) (int, error)
	// Start launches cmd detached. The caller gets no handle and never waits.
	Start(ec *execenv.Context, cmd Command) (int, error)
}

// ExecRunner executes commands on the local host, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner bound to the process stdout/stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, ec *execenv.Context, cmd Command) (int, error) {
	path, err := ec.LookPath(cmd.Name)
	if err != nil {
		return ExitNotFound, err
	}
	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.WaitDelay = waitDelay
	r.prepare(c, ec, cmd)

	slog.Debug("Running command", logfields.Command(cmd.String()), logfields.Path(c.Dir))
	err = c.Run()
	return exitCode(ctx, err), err
}

// Start implements Runner. The child is reaped in the background so it does
// not linger as a zombie; it is never signalled.
func (r *ExecRunner) Start(ec *execenv.Context, cmd Command) (int, error) {
	path, err := ec.LookPath(cmd.Name)
	if err != nil {
		return ExitNotFound, err
	}
	c := exec.Command(path, cmd.Args...)
	r.prepare(c, ec, cmd)

	slog.Debug("Starting background command", logfields.Command(cmd.String()), logfields.Path(c.Dir))
	if err := c.Start(); err != nil {
		return exitCode(context.Background(), err), err
	}
	go func() { _ = c.Wait() }()
	return 0, nil
}

func (r *ExecRunner) prepare(c *exec.Cmd, ec *execenv.Context, cmd Command) {
	c.Dir = ec.Resolve(cmd.Dir)
	c.Env = ec.Environ()
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
}

// exitCode maps a process error onto a shell-style exit status.
func exitCode(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ExitTimeout
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ExitCanceled
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return ExitGeneric
	}
	if execenv.IsNotFound(err) || errors.Is(err, os.ErrNotExist) {
		return ExitNotFound
	}
	return ExitGeneric
}
