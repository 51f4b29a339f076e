package orchestrator

import (
	"git.home.luguber.info/inful/stagerunner/internal/metrics"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(RunInfo, []stage.Step)   {}
func (r RecorderObserver) OnStepStart(RunInfo, int, stage.Step) {}

func (r RecorderObserver) OnStepComplete(run RunInfo, o StepOutcome) {
	if r.Recorder == nil {
		return
	}
	result := metrics.ResultSuccess
	switch {
	case o.Failed() && o.Guarded:
		result = metrics.ResultFailed
	case o.Failed():
		result = metrics.ResultIgnored
	}
	r.Recorder.ObserveStepDuration(string(run.Stage), string(o.Kind), o.Duration)
	r.Recorder.IncStepResult(string(run.Stage), string(o.Kind), result)
}

func (r RecorderObserver) OnStageComplete(run RunInfo, res *Result) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStageDuration(string(run.Stage), res.Duration())
	r.Recorder.IncStageOutcome(string(run.Stage), res.Outcome())
	r.Recorder.SetLastExitCode(string(run.Stage), res.ExitCode)
}
