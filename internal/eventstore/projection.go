// Package eventstore persists stage run history as an append-only event log
// in SQLite and derives per-run summaries from it.
package eventstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/logfields"
)

const (
	runStatusRunning = "running"
	runStatusSuccess = "success"
	runStatusFailed  = "failed"
)

// RunSummary is a read model summarizing a completed or in-progress run.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	Stage           string        `json:"stage"`
	Status          string        `json:"status"` // "running", "success", "failed"
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
	StepsPlanned    int           `json:"steps_planned"`
	StepsRun        int           `json:"steps_run"`
	IgnoredFailures int           `json:"ignored_failures"`
	ExitCode        int           `json:"exit_code"`
	FailedStep      string        `json:"failed_step,omitempty"`

	seq int
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from events stored in the event store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // newest first
	maxSize int
	seq     int
}

// NewRunHistoryProjection creates a new projection backed by the given store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = make([]*RunSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.sortHistoryLocked()
	p.pruneLocked()
	return nil
}

// Apply updates the projection with a single event.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
	p.sortHistoryLocked()
	p.pruneLocked()
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	summary, exists := p.runs[runID]
	if !exists {
		p.seq++
		summary = &RunSummary{RunID: runID, Status: runStatusRunning, StartedAt: event.Timestamp(), seq: p.seq}
		p.runs[runID] = summary
		p.history = append(p.history, summary)
	}

	switch event.Type() {
	case TypeStageStarted:
		var data StageStartedData
		if !p.decode(event, &data) {
			return
		}
		summary.Stage = data.Stage
		summary.StepsPlanned = len(data.Plan)
		summary.StartedAt = event.Timestamp()

	case TypeStepCompleted:
		var data StepCompletedData
		if !p.decode(event, &data) {
			return
		}
		summary.StepsRun++
		if data.ExitCode != 0 && !data.Guarded {
			summary.IgnoredFailures++
		}

	case TypeStageCompleted:
		var data StageCompletedData
		if !p.decode(event, &data) {
			return
		}
		completed := event.Timestamp()
		summary.CompletedAt = &completed
		summary.Duration = time.Duration(data.DurationMS) * time.Millisecond
		summary.ExitCode = data.ExitCode
		summary.FailedStep = data.FailedStep
		summary.Status = runStatusSuccess
		if data.ExitCode != 0 {
			summary.Status = runStatusFailed
		}
	}
}

func (p *RunHistoryProjection) decode(event Event, v any) bool {
	if err := Decode(event, v); err != nil {
		slog.Warn("Skipping undecodable history event", logfields.RunID(event.RunID()), logfields.Error(err))
		return false
	}
	return true
}

func (p *RunHistoryProjection) sortHistoryLocked() {
	sort.SliceStable(p.history, func(i, j int) bool {
		a, b := p.history[i], p.history[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.seq > b.seq
	})
}

func (p *RunHistoryProjection) pruneLocked() {
	if len(p.history) <= p.maxSize {
		return
	}
	for _, old := range p.history[p.maxSize:] {
		delete(p.runs, old.RunID)
	}
	p.history = p.history[:p.maxSize]
}

// GetHistory returns run summaries, newest first.
func (p *RunHistoryProjection) GetHistory() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*RunSummary, len(p.history))
	for i, s := range p.history {
		c := *s
		out[i] = &c
	}
	return out
}

// GetRun returns the summary for one run.
func (p *RunHistoryProjection) GetRun(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return nil, false
	}
	c := *s
	return &c, true
}

// LastRun returns the most recent run of stage, if any.
func (p *RunHistoryProjection) LastRun(stage string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.history {
		if s.Stage == stage {
			c := *s
			return &c, true
		}
	}
	return nil, false
}
