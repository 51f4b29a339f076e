package orchestrator

import (
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// RunInfo identifies one invocation for observers.
type RunInfo struct {
	ID        string
	Stage     stage.ID
	Requested string // name given on the command line
	Started   time.Time
}

// StepOutcome records how a single step ended.
type StepOutcome struct {
	Index    int
	Kind     stage.Kind
	Name     string
	Guarded  bool
	ExitCode int
	Duration time.Duration
	Err      error
}

// Failed reports whether the step exited non-zero.
func (o StepOutcome) Failed() bool { return o.ExitCode != 0 }

// Result is the outcome of a whole run.
type Result struct {
	RunID     string
	Stage     stage.ID
	Requested string
	Found     bool
	DryRun    bool
	Planned   []stage.Step
	Steps     []StepOutcome
	ExitCode  int
	Started   time.Time
	Finished  time.Time
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Outcome returns a short label for the run: success, failed, skipped or planned.
func (r *Result) Outcome() string {
	switch {
	case !r.Found:
		return "skipped"
	case r.DryRun:
		return "planned"
	case r.ExitCode != 0:
		return "failed"
	default:
		return "success"
	}
}

// FailedStep returns the guarded step that ended the run, if any.
func (r *Result) FailedStep() (StepOutcome, bool) {
	if r.ExitCode == 0 || len(r.Steps) == 0 {
		return StepOutcome{}, false
	}
	last := r.Steps[len(r.Steps)-1]
	if last.Guarded && last.Failed() {
		return last, true
	}
	return StepOutcome{}, false
}
