package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8)
	w.observe(StageLLMCall, 500)
	w.observe(StageLLMCall, 700)
	w.observe(StageLLMCall, 4900)
	w.observe(StageCannedLookup, 1)
	w.count(IndicatorSanitized)
	w.count(IndicatorSanitized)
	w.count(" ")

	snap := w.snapshot()
	assert.Equal(t, 8, snap.WindowSize)
	require.Len(t, snap.Stages, 2)
	assert.Equal(t, StageCannedLookup, snap.Stages[0].Stage)

	s := snap.Stages[1]
	assert.Equal(t, StageLLMCall, s.Stage)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, 4900.0, s.LastMS)
	assert.Equal(t, 700.0, s.P50MS)
	assert.Equal(t, 4480.0, s.P95MS)
	assert.Equal(t, 4000.0, s.BudgetP95MS)
	assert.Equal(t, 1, s.OverBudget)

	require.Len(t, snap.Indicators, 1)
	assert.Equal(t, IndicatorCount{Name: IndicatorSanitized, Count: 2}, snap.Indicators[0])
}

func TestLatencyWindowKeepsMostRecent(t *testing.T) {
	w := newLatencyWindow(2)
	for _, v := range []float64{1, 2, 3} {
		w.observe(StageTurnTotal, v)
	}
	w.observe(StageTurnTotal, -1)

	snap := w.snapshot()
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, 2, snap.Stages[0].Samples)
	assert.Equal(t, 2.5, snap.Stages[0].AvgMS)
	assert.Equal(t, 3.0, snap.Stages[0].LastMS)
}

func TestPercentile(t *testing.T) {
	samples := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, percentile(samples, 0))
	assert.Equal(t, 30.0, percentile(samples, 50))
	assert.InDelta(t, 48.0, percentile(samples, 95), 1e-9)
	assert.Equal(t, 50.0, percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
	assert.Equal(t, 7.0, percentile([]float64{7}, 99))
}

func TestMetricsObserveStageFeedsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg, "test")

	m.ObserveStage(StageLLMCall, 1500*time.Millisecond)
	m.ObserveStage(StageCannedLookup, time.Millisecond)
	m.ObserveIndicator(IndicatorCannedHit)

	assert.Equal(t, 1, testutil.CollectAndCount(m.LLMLatency))
	snap := m.SnapshotStages()
	assert.Len(t, snap.Stages, 2)
	assert.Len(t, snap.Indicators, 1)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStage(StageTurnTotal, time.Second)
	m.ObserveIndicator(IndicatorCannedHit)
	assert.Empty(t, m.SnapshotStages().Stages)
}
