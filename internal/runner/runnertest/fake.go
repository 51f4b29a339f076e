// Package runnertest provides a scripted runner.Runner for executor tests.
package runnertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"git.home.luguber.info/inful/stagerunner/internal/execenv"
	"git.home.luguber.info/inful/stagerunner/internal/runner"
)

// Call is one recorded invocation.
type Call struct {
	Command    runner.Command
	Background bool
	VirtualEnv string // virtualenv active when the call was made
	Dir        string // resolved working directory
}

// Line renders the call as "name arg1 arg2".
func (c Call) Line() string {
	return strings.TrimSpace(c.Command.Name + " " + strings.Join(c.Command.Args, " "))
}

// Fake records calls and returns scripted exit codes. Commands match when
// their rendered line contains the scripted substring; the first match wins.
type Fake struct {
	mu      sync.Mutex
	calls   []Call
	scripts []script
	// OnCall, when set, runs for every call before the exit code is chosen.
	OnCall func(Call)
}

type script struct {
	match string
	code  int
}

// New returns a fake where every command succeeds.
func New() *Fake { return &Fake{} }

// FailOn makes the first command whose line contains match exit with code.
func (f *Fake) FailOn(match string, code int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script{match: match, code: code})
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(ctx context.Context, ec *execenv.Context, cmd runner.Command) (int, error) {
	if err := ctx.Err(); err != nil {
		return runner.ExitCanceled, err
	}
	return f.record(ec, cmd, false)
}

// Start implements runner.Runner.
func (f *Fake) Start(ec *execenv.Context, cmd runner.Command) (int, error) {
	return f.record(ec, cmd, true)
}

func (f *Fake) record(ec *execenv.Context, cmd runner.Command, background bool) (int, error) {
	call := Call{Command: cmd, Background: background, VirtualEnv: ec.VirtualEnv(), Dir: ec.Resolve(cmd.Dir)}
	if f.OnCall != nil {
		f.OnCall(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	line := call.Line()
	for _, s := range f.scripts {
		if strings.Contains(line, s.match) {
			if s.code == 0 {
				return 0, nil
			}
			return s.code, fmt.Errorf("exit status %d", s.code)
		}
	}
	return 0, nil
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the rendered lines of the recorded calls in order.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Line()
	}
	return out
}

var _ runner.Runner = (*Fake)(nil)
