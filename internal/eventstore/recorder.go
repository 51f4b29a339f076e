package eventstore

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/logfields"
	"git.home.luguber.info/inful/stagerunner/internal/orchestrator"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// appendTimeout bounds a single history write so a locked database cannot
// stall the stage.
const appendTimeout = 5 * time.Second

// Recorder is an orchestrator.Observer that appends every transition to a
// Store. Write failures are logged and otherwise ignored.
type Recorder struct {
	store Store
}

// NewRecorder returns a recorder appending to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) OnStageStart(run orchestrator.RunInfo, plan []stage.Step) {
	labels := make([]string, len(plan))
	for i, st := range plan {
		labels[i] = st.Label()
	}
	ev, err := NewStageStarted(run.ID, StageStartedData{Stage: string(run.Stage), Requested: run.Requested, Plan: labels})
	r.append(run.ID, ev, err)
}

func (r *Recorder) OnStepStart(orchestrator.RunInfo, int, stage.Step) {}

func (r *Recorder) OnStepComplete(run orchestrator.RunInfo, o orchestrator.StepOutcome) {
	data := StepCompletedData{
		Index:      o.Index,
		Kind:       string(o.Kind),
		Name:       o.Name,
		Guarded:    o.Guarded,
		ExitCode:   o.ExitCode,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		data.Error = o.Err.Error()
	}
	ev, err := NewStepCompleted(run.ID, data)
	r.append(run.ID, ev, err)
}

func (r *Recorder) OnStageComplete(run orchestrator.RunInfo, res *orchestrator.Result) {
	data := StageCompletedData{
		Stage:      string(run.Stage),
		Outcome:    res.Outcome(),
		ExitCode:   res.ExitCode,
		DurationMS: res.Duration().Milliseconds(),
	}
	if failed, ok := res.FailedStep(); ok {
		data.FailedStep = failed.Name
	}
	ev, err := NewStageCompleted(run.ID, data)
	r.append(run.ID, ev, err)
}

func (r *Recorder) append(runID string, ev Event, err error) {
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()
		err = r.store.Append(ctx, runID, ev.Type(), ev.Payload(), ev.Metadata())
	}
	if err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(runID), logfields.Error(err))
	}
}

var _ orchestrator.Observer = (*Recorder)(nil)
