// Package metrics aggregates per-step latency and outcome counters for
// a run: HDR histograms for percentiles, atomic counters for totals,
// and the run phase for reporting. An optional Prometheus exporter
// mirrors records for scraping.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds: 1 microsecond to 60 seconds at 3 significant
// figures. Latencies are recorded in microseconds.
const (
	histogramMin     = 1
	histogramMax     = 60_000_000
	histogramSigFigs = 3
)

// Phase is the lifecycle stage of a run.
type Phase int32

const (
	PhaseInit Phase = iota
	PhaseRamp
	PhaseSteady
	PhaseDone
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRamp:
		return "ramp"
	case PhaseSteady:
		return "steady"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Engine collects latency and outcome data from every virtual user.
// All methods are safe for concurrent use.
type Engine struct {
	mu      sync.RWMutex
	overall *hdrhistogram.Histogram
	perStep map[string]*hdrhistogram.Histogram

	totalSteps   atomic.Int64
	successSteps atomic.Int64
	failedSteps  atomic.Int64
	totalBytes   atomic.Int64
	activeVUs    atomic.Int32
	phase        atomic.Int32

	startTime time.Time
}

// NewEngine returns an engine ready to record.
func NewEngine() *Engine {
	return &Engine{
		overall:   hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		perStep:   make(map[string]*hdrhistogram.Histogram),
		startTime: time.Now(),
	}
}

// RecordStep records one executed request step.
func (e *Engine) RecordStep(step string, duration time.Duration, success bool, bytes int64) {
	micros := duration.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	e.mu.Lock()
	e.overall.RecordValue(micros)
	hist, ok := e.perStep[step]
	if !ok {
		hist = hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
		e.perStep[step] = hist
	}
	hist.RecordValue(micros)
	e.mu.Unlock()

	e.totalSteps.Add(1)
	if success {
		e.successSteps.Add(1)
	} else {
		e.failedSteps.Add(1)
	}
	e.totalBytes.Add(bytes)
}

// SetActiveVUs records the current number of running virtual users.
func (e *Engine) SetActiveVUs(n int) {
	e.activeVUs.Store(int32(n))
}

// ActiveVUs returns the current number of running virtual users.
func (e *Engine) ActiveVUs() int {
	return int(e.activeVUs.Load())
}

// SetPhase moves the run into a new phase.
func (e *Engine) SetPhase(p Phase) {
	e.phase.Store(int32(p))
}

// GetPhase returns the current run phase.
func (e *Engine) GetPhase() Phase {
	return Phase(e.phase.Load())
}

// LatencyStats summarizes one latency distribution.
type LatencyStats struct {
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P90    time.Duration
	P95    time.Duration
	P99    time.Duration
	Count  int64
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	Elapsed      time.Duration
	TotalSteps   int64
	SuccessSteps int64
	FailedSteps  int64
	TotalBytes   int64
	ErrorRate    float64
	Throughput   float64
	ActiveVUs    int
	Phase        Phase
	Overall      LatencyStats
	PerStep      map[string]LatencyStats
}

// GetSnapshot returns a consistent copy of everything recorded so far.
func (e *Engine) GetSnapshot() Snapshot {
	elapsed := time.Since(e.startTime)
	total := e.totalSteps.Load()
	failed := e.failedSteps.Load()

	snap := Snapshot{
		Elapsed:      elapsed,
		TotalSteps:   total,
		SuccessSteps: e.successSteps.Load(),
		FailedSteps:  failed,
		TotalBytes:   e.totalBytes.Load(),
		ActiveVUs:    e.ActiveVUs(),
		Phase:        e.GetPhase(),
		PerStep:      make(map[string]LatencyStats),
	}
	if total > 0 {
		snap.ErrorRate = float64(failed) / float64(total)
	}
	if elapsed > 0 {
		snap.Throughput = float64(total) / elapsed.Seconds()
	}

	e.mu.RLock()
	snap.Overall = histStats(e.overall)
	for step, hist := range e.perStep {
		snap.PerStep[step] = histStats(hist)
	}
	e.mu.RUnlock()

	return snap
}

// Reset clears all recorded data and restarts the elapsed clock.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.overall.Reset()
	e.perStep = make(map[string]*hdrhistogram.Histogram)
	e.startTime = time.Now()
	e.mu.Unlock()

	e.totalSteps.Store(0)
	e.successSteps.Store(0)
	e.failedSteps.Store(0)
	e.totalBytes.Store(0)
}

func histStats(hist *hdrhistogram.Histogram) LatencyStats {
	if hist.TotalCount() == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Min:    time.Duration(hist.Min()) * time.Microsecond,
		Max:    time.Duration(hist.Max()) * time.Microsecond,
		Mean:   time.Duration(hist.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(hist.StdDev() * float64(time.Microsecond)),
		P50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  hist.TotalCount(),
	}
}
