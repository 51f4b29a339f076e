package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "stagerunner"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stepDuration  *prom.HistogramVec
	stepResults   *prom.CounterVec
	stageDuration *prom.HistogramVec
	stageOutcome  *prom.CounterVec
	lastExitCode  *prom.GaugeVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual stage steps",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage", "kind"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Step result counts by outcome",
		}, []string{"stage", "kind", "result"}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Total stage duration",
			Buckets:   []float64{1, 10, 30, 60, 300, 600, 1800, 3600},
		}, []string{"stage"}),
		stageOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcomes_total",
			Help:      "Stage outcomes by final status",
		}, []string{"stage", "outcome"}),
		lastExitCode: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_exit_code",
			Help:      "Exit code of the most recent run of a stage",
		}, []string{"stage"}),
	}
	reg.MustRegister(pr.stepDuration, pr.stepResults, pr.stageDuration, pr.stageOutcome, pr.lastExitCode)
	return pr
}

// Registry returns the registry the metrics live on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// WriteTextfile writes every gathered metric to path atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func (p *PrometheusRecorder) ObserveStepDuration(stage, kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.stepDuration.WithLabelValues(stage, kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(stage, kind string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stepResults.WithLabelValues(stage, kind, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageOutcome(stage, outcome string) {
	if p == nil {
		return
	}
	p.stageOutcome.WithLabelValues(stage, outcome).Inc()
}

func (p *PrometheusRecorder) SetLastExitCode(stage string, code int) {
	if p == nil {
		return
	}
	p.lastExitCode.WithLabelValues(stage).Set(float64(code))
}

var _ Recorder = (*PrometheusRecorder)(nil)
