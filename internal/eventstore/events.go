package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
)

// Event type names as stored in the events table.
const (
	TypeStageStarted   = "StageStarted"
	TypeStepCompleted  = "StepCompleted"
	TypeStageCompleted = "StageCompleted"
)

// StageStartedData is the payload of a StageStarted event.
type StageStartedData struct {
	Stage     string   `json:"stage"`
	Requested string   `json:"requested"`
	Plan      []string `json:"plan"`
}

// StepCompletedData is the payload of a StepCompleted event.
type StepCompletedData struct {
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Guarded    bool   `json:"guarded"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// StageCompletedData is the payload of a StageCompleted event.
type StageCompletedData struct {
	Stage      string `json:"stage"`
	Outcome    string `json:"outcome"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	FailedStep string `json:"failed_step,omitempty"`
}

// StageStarted is emitted when a run begins executing its plan.
type StageStarted struct {
	BaseEvent
	Data StageStartedData
}

// NewStageStarted creates a StageStarted event.
func NewStageStarted(runID string, data StageStartedData) (*StageStarted, error) {
	payload, err := marshal(runID, TypeStageStarted, data)
	if err != nil {
		return nil, err
	}
	return &StageStarted{BaseEvent: newBase(runID, TypeStageStarted, payload), Data: data}, nil
}

// StepCompleted is emitted after every executed step, failed or not.
type StepCompleted struct {
	BaseEvent
	Data StepCompletedData
}

// NewStepCompleted creates a StepCompleted event.
func NewStepCompleted(runID string, data StepCompletedData) (*StepCompleted, error) {
	payload, err := marshal(runID, TypeStepCompleted, data)
	if err != nil {
		return nil, err
	}
	return &StepCompleted{BaseEvent: newBase(runID, TypeStepCompleted, payload), Data: data}, nil
}

// StageCompleted is emitted when a run ends, successfully or at its first
// failing guarded step.
type StageCompleted struct {
	BaseEvent
	Data StageCompletedData
}

// NewStageCompleted creates a StageCompleted event.
func NewStageCompleted(runID string, data StageCompletedData) (*StageCompleted, error) {
	payload, err := marshal(runID, TypeStageCompleted, data)
	if err != nil {
		return nil, err
	}
	return &StageCompleted{BaseEvent: newBase(runID, TypeStageCompleted, payload), Data: data}, nil
}

func newBase(runID, eventType string, payload []byte) BaseEvent {
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}
}

func marshal(runID, eventType string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEventStore, ErrMarshalPayloadFailed.Message()).
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return payload, nil
}

// Decode unmarshals the payload of a stored event into v.
func Decode(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return errors.WrapError(err, errors.CategoryEventStore, ErrUnmarshalPayloadFailed.Message()).
			WithContext("run_id", e.RunID()).
			WithContext("event_type", e.Type()).
			Build()
	}
	return nil
}
