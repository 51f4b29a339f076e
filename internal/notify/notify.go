// Package notify publishes stage run events to NATS so dashboards and chat
// bridges can follow CI progress without polling.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/stagerunner/internal/logfields"
	"git.home.luguber.info/inful/stagerunner/internal/orchestrator"
	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// Event types, appended to the base subject.
const (
	TypeStageStarted   = "stage_started"
	TypeStepStarted    = "step_started"
	TypeStepCompleted  = "step_completed"
	TypeStageCompleted = "stage_completed"
)

const flushTimeout = 5 * time.Second

// Event is the JSON document published for every transition.
type Event struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	Requested  string    `json:"requested,omitempty"`
	Step       *StepInfo `json:"step,omitempty"`
	Steps      int       `json:"steps,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	ExitCode   int       `json:"exit_code"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StepInfo describes the step an event refers to.
type StepInfo struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Guarded bool   `json:"guarded"`
	Error   string `json:"error,omitempty"`
}

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier is an orchestrator.Observer publishing events under subject.
// Publish failures are logged and otherwise ignored.
type Notifier struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// New returns a notifier publishing through pub.
func New(pub Publisher, subject string) *Notifier {
	return &Notifier{pub: pub, subject: subject, now: time.Now}
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Notifier, error) {
	conn, err := nats.Connect(url, nats.Name("stagerunner"), nats.Timeout(flushTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n := New(conn, subject)
	n.conn = conn
	slog.Info("NATS notifier connected", logfields.URL(conn.ConnectedUrlRedacted()), slog.String("subject", subject))
	return n, nil
}

// Subject returns the subject an event type is published on.
func (n *Notifier) Subject(eventType string) string {
	return n.subject + "." + eventType
}

func (n *Notifier) OnStageStart(run orchestrator.RunInfo, plan []stage.Step) {
	n.publish(Event{Type: TypeStageStarted, RunID: run.ID, Stage: string(run.Stage), Requested: run.Requested, Steps: len(plan)})
}

func (n *Notifier) OnStepStart(run orchestrator.RunInfo, index int, step stage.Step) {
	n.publish(Event{
		Type:  TypeStepStarted,
		RunID: run.ID,
		Stage: string(run.Stage),
		Step:  &StepInfo{Index: index, Kind: string(step.Kind), Name: step.Label(), Guarded: step.Guarded},
	})
}

func (n *Notifier) OnStepComplete(run orchestrator.RunInfo, o orchestrator.StepOutcome) {
	info := &StepInfo{Index: o.Index, Kind: string(o.Kind), Name: o.Name, Guarded: o.Guarded}
	if o.Err != nil {
		info.Error = o.Err.Error()
	}
	n.publish(Event{
		Type:       TypeStepCompleted,
		RunID:      run.ID,
		Stage:      string(run.Stage),
		Step:       info,
		ExitCode:   o.ExitCode,
		DurationMS: o.Duration.Milliseconds(),
	})
}

func (n *Notifier) OnStageComplete(run orchestrator.RunInfo, res *orchestrator.Result) {
	n.publish(Event{
		Type:       TypeStageCompleted,
		RunID:      run.ID,
		Stage:      string(run.Stage),
		Requested:  run.Requested,
		Steps:      len(res.Steps),
		Outcome:    res.Outcome(),
		ExitCode:   res.ExitCode,
		DurationMS: res.Duration().Milliseconds(),
	})
}

func (n *Notifier) publish(ev Event) {
	ev.Timestamp = n.now().UTC()
	data, err := json.Marshal(ev)
	if err == nil {
		err = n.pub.Publish(n.Subject(ev.Type), data)
	}
	if err != nil {
		slog.Warn("Failed to publish run event", logfields.RunID(ev.RunID), slog.String("type", ev.Type), logfields.Error(err))
		return
	}
	slog.Debug("Published run event", logfields.RunID(ev.RunID), slog.String("type", ev.Type))
}

// Close flushes buffered events and closes a connection opened by Connect.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.FlushTimeout(flushTimeout)
	n.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to flush NATS events: %w", err)
	}
	return nil
}

var _ orchestrator.Observer = (*Notifier)(nil)
