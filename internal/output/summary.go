package output

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/wesleyorama2/riposte/internal/metrics"
)

// SummaryData is the machine-readable form of a finished run.
type SummaryData struct {
	Scenario     string                 `json:"scenario"`
	DurationMS   int64                  `json:"durationMs"`
	TotalSteps   int64                  `json:"totalSteps"`
	SuccessSteps int64                  `json:"successSteps"`
	FailedSteps  int64                  `json:"failedSteps"`
	TotalBytes   int64                  `json:"totalBytes"`
	ErrorRate    float64                `json:"errorRate"`
	Throughput   float64                `json:"throughput"`
	Latency      LatencyData            `json:"latency"`
	Steps        map[string]LatencyData `json:"steps,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// LatencyData holds one latency distribution in milliseconds.
type LatencyData struct {
	MinMS  float64 `json:"minMs"`
	MeanMS float64 `json:"meanMs"`
	P50MS  float64 `json:"p50Ms"`
	P90MS  float64 `json:"p90Ms"`
	P95MS  float64 `json:"p95Ms"`
	P99MS  float64 `json:"p99Ms"`
	MaxMS  float64 `json:"maxMs"`
	Count  int64   `json:"count"`
}

// NewSummaryData converts a final metrics snapshot into its
// serializable form.
func NewSummaryData(scenario string, snap metrics.Snapshot) SummaryData {
	data := SummaryData{
		Scenario:     scenario,
		DurationMS:   snap.Elapsed.Milliseconds(),
		TotalSteps:   snap.TotalSteps,
		SuccessSteps: snap.SuccessSteps,
		FailedSteps:  snap.FailedSteps,
		TotalBytes:   snap.TotalBytes,
		ErrorRate:    snap.ErrorRate,
		Throughput:   snap.Throughput,
		Latency:      latencyData(snap.Overall),
		Timestamp:    time.Now().Format(time.RFC3339),
	}

	if len(snap.PerStep) > 0 {
		data.Steps = make(map[string]LatencyData, len(snap.PerStep))
		for name, stats := range snap.PerStep {
			data.Steps[name] = latencyData(stats)
		}
	}
	return data
}

// StepNames returns the recorded step names in sorted order.
func (d SummaryData) StepNames() []string {
	names := make([]string, 0, len(d.Steps))
	for name := range d.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteJSONSummary writes the summary as indented JSON.
func WriteJSONSummary(w io.Writer, data SummaryData) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}

func latencyData(stats metrics.LatencyStats) LatencyData {
	return LatencyData{
		MinMS:  millis(stats.Min),
		MeanMS: millis(stats.Mean),
		P50MS:  millis(stats.P50),
		P90MS:  millis(stats.P90),
		P95MS:  millis(stats.P95),
		P99MS:  millis(stats.P99),
		MaxMS:  millis(stats.Max),
		Count:  stats.Count,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
