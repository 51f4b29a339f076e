package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	// ResultIgnored is a failure of a step that does not abort the stage.
	ResultIgnored ResultLabel = "ignored"
)

// Recorder defines observability hooks for stage and step metrics.
type Recorder interface {
	ObserveStepDuration(stage, kind string, d time.Duration)
	IncStepResult(stage, kind string, result ResultLabel)
	ObserveStageDuration(stage string, d time.Duration)
	IncStageOutcome(stage, outcome string) // outcome: success|failed|skipped
	SetLastExitCode(stage string, code int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, string, time.Duration) {}
func (NoopRecorder) IncStepResult(string, string, ResultLabel)         {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration)        {}
func (NoopRecorder) IncStageOutcome(string, string)                    {}
func (NoopRecorder) SetLastExitCode(string, int)                       {}
