package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Dispatcher stages tracked by the rolling latency window.
const (
	StageCannedLookup = "canned_lookup"
	StageContextBuild = "context_build"
	StageLLMCall      = "llm_call"
	StageTurnTotal    = "turn_total"
)

// Indicators counted alongside stage latencies.
const (
	IndicatorCannedHit     = "canned_hit"
	IndicatorSanitized     = "reply_sanitized"
	IndicatorProviderError = "provider_error"
)

// stageBudgets is the p95 each stage is expected to stay under, in ms.
var stageBudgets = map[string]float64{
	StageCannedLookup: 5,
	StageContextBuild: 50,
	StageLLMCall:      4000,
	StageTurnTotal:    4500,
}

// StageLatency summarizes the retained samples of one stage. OverBudget
// counts samples slower than BudgetP95MS.
type StageLatency struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	BudgetP95MS float64 `json:"budget_p95_ms,omitempty"`
	OverBudget  int     `json:"over_budget,omitempty"`
}

type IndicatorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LatencySnapshot is served by /v1/perf/latency.
type LatencySnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowSize  int              `json:"window_size"`
	Stages      []StageLatency   `json:"stages"`
	Indicators  []IndicatorCount `json:"indicators,omitempty"`
}

// sampleRing keeps the most recent samples of one stage.
type sampleRing struct {
	buf  []float64
	size int
	head int
	last float64
}

func (r *sampleRing) push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
	r.last = v
}

func (r *sampleRing) sorted() []float64 {
	out := make([]float64, r.size)
	copy(out, r.buf[:r.size])
	sort.Float64s(out)
	return out
}

type latencyWindow struct {
	mu         sync.Mutex
	capacity   int
	stages     map[string]*sampleRing
	indicators map[string]int
}

func newLatencyWindow(capacity int) *latencyWindow {
	if capacity <= 0 {
		capacity = 256
	}
	return &latencyWindow{
		capacity:   capacity,
		stages:     make(map[string]*sampleRing),
		indicators: make(map[string]int),
	}
}

func (w *latencyWindow) observe(stage string, ms float64) {
	if stage == "" || ms < 0 || math.IsNaN(ms) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	ring := w.stages[stage]
	if ring == nil {
		ring = &sampleRing{buf: make([]float64, w.capacity)}
		w.stages[stage] = ring
	}
	ring.push(ms)
}

func (w *latencyWindow) count(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *latencyWindow) snapshot() LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.capacity,
		Stages:      make([]StageLatency, 0, len(w.stages)),
	}
	for stage, ring := range w.stages {
		if ring.size == 0 {
			continue
		}
		samples := ring.sorted()
		budget := stageBudgets[stage]
		var sum float64
		over := 0
		for _, v := range samples {
			sum += v
			if budget > 0 && v > budget {
				over++
			}
		}
		snap.Stages = append(snap.Stages, StageLatency{
			Stage:       stage,
			Samples:     len(samples),
			LastMS:      round2(ring.last),
			AvgMS:       round2(sum / float64(len(samples))),
			P50MS:       round2(percentile(samples, 50)),
			P95MS:       round2(percentile(samples, 95)),
			P99MS:       round2(percentile(samples, 99)),
			BudgetP95MS: budget,
			OverBudget:  over,
		})
	}
	sort.Slice(snap.Stages, func(i, j int) bool { return snap.Stages[i].Stage < snap.Stages[j].Stage })

	for name, n := range w.indicators {
		snap.Indicators = append(snap.Indicators, IndicatorCount{Name: name, Count: n})
	}
	sort.Slice(snap.Indicators, func(i, j int) bool { return snap.Indicators[i].Name < snap.Indicators[j].Name })
	return snap
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(rank-float64(lo))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
