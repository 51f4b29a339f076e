package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStepDuration("lint", "lint", 150*time.Millisecond)
	pr.IncStepResult("lint", "lint", ResultSuccess)
	pr.IncStepResult("lint", "lint", ResultFailed)
	pr.ObserveStageDuration("lint", 2*time.Second)
	pr.IncStageOutcome("lint", "failed")
	pr.SetLastExitCode("lint", 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 5)

	byName := map[string]int{}
	for _, mf := range mfs {
		byName[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 2, byName["stagerunner_step_results_total"])
	assert.Equal(t, 1, byName["stagerunner_stage_last_exit_code"])
}

func TestPrometheusRecorderPrivateRegistry(t *testing.T) {
	a := NewPrometheusRecorder(nil)
	b := NewPrometheusRecorder(nil)
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncStageOutcome("rest-service", "success")

	path := filepath.Join(t.TempDir(), "stagerunner.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `stagerunner_stage_outcomes_total{outcome="success",stage="rest-service"} 1`))
}

func TestWriteTextfileBadDir(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	err := pr.WriteTextfile(filepath.Join(t.TempDir(), "missing", "out.prom"))
	assert.Error(t, err)
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncStageOutcome("lint", "success")
		pr.SetLastExitCode("lint", 0)
	})
}
