package orchestrator

import "git.home.luguber.info/inful/stagerunner/internal/stage"

// Observer receives callbacks around stage and step execution.
type Observer interface {
	OnStageStart(run RunInfo, plan []stage.Step)
	OnStepStart(run RunInfo, index int, step stage.Step)
	OnStepComplete(run RunInfo, outcome StepOutcome)
	OnStageComplete(run RunInfo, result *Result)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(RunInfo, []stage.Step)   {}
func (NoopObserver) OnStepStart(RunInfo, int, stage.Step) {}
func (NoopObserver) OnStepComplete(RunInfo, StepOutcome)  {}
func (NoopObserver) OnStageComplete(RunInfo, *Result)     {}

// Multi fans callbacks out to several observers in order.
type Multi []Observer

// NewMulti drops nil entries.
func NewMulti(observers ...Observer) Multi {
	out := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m Multi) OnStageStart(run RunInfo, plan []stage.Step) {
	for _, o := range m {
		o.OnStageStart(run, plan)
	}
}

func (m Multi) OnStepStart(run RunInfo, index int, step stage.Step) {
	for _, o := range m {
		o.OnStepStart(run, index, step)
	}
}

func (m Multi) OnStepComplete(run RunInfo, outcome StepOutcome) {
	for _, o := range m {
		o.OnStepComplete(run, outcome)
	}
}

func (m Multi) OnStageComplete(run RunInfo, result *Result) {
	for _, o := range m {
		o.OnStageComplete(run, result)
	}
}
