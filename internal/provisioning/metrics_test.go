package provisioning

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powervm-tools/lparvol/internal/hmc"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.observeStep(StateEnsureMapping, "ok", time.Second)
	m.observeRollbackAction()
}

func TestMetrics_CountsStepsAndRollbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeStep(StateEnsureLogicalVolume, "ok", 100*time.Millisecond)
	m.observeStep(StateEnsureMapping, "failed", 50*time.Millisecond)
	m.observeRollbackAction()
	m.observeRollbackAction()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepOutcomes.WithLabelValues(string(StateEnsureLogicalVolume), "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepOutcomes.WithLabelValues(string(StateEnsureMapping), "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rollbackActions))
}

func TestMetrics_ObservedByRunner(t *testing.T) {
	reg := prometheus.NewRegistry()

	script := &scriptedHMC{responses: []scriptedResponse{
		{contains: "lsmap -all", result: hmc.CommandResult{Stdout: happyListing}},
		{contains: "mkvdev", result: hmc.CommandResult{ExitCode: 1, Stderr: "backing device busy"}},
	}}
	runner := newTestRunner(script.session())
	runner.Metrics = NewMetrics(reg)

	_, err := runner.Run(context.Background(), testInputs())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(runner.Metrics.stepOutcomes.WithLabelValues(string(StateEnsureMapping), "failed")))
	// Three compensations: volume, client adapter, server adapter.
	assert.Equal(t, 3.0, testutil.ToFloat64(runner.Metrics.rollbackActions))
}
