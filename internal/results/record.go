// Package results carries per-step outcome records from running virtual
// users to whatever wants them: a JSONL file, an in-memory buffer for
// tests, or a metrics exporter. Sinks must tolerate concurrent Record
// calls; every virtual user feeds the same sink.
package results

import "time"

// ErrorClass labels the failure mode of a step.
type ErrorClass string

const (
	// ErrorTransport marks network-level failures: dial, TLS, timeout.
	ErrorTransport ErrorClass = "transport"
	// ErrorHTTP marks responses whose status failed the step's check.
	ErrorHTTP ErrorClass = "http"
	// ErrorExpect marks responses that violated an explicit expect block.
	ErrorExpect ErrorClass = "expectation"
	// ErrorTemplate marks steps whose body could not be rendered, so no
	// request went out.
	ErrorTemplate ErrorClass = "template"
)

// StepRecord is the outcome of one executed request step.
type StepRecord struct {
	Time       time.Time  `json:"ts"`
	VU         int        `json:"vu"`
	Pass       int64      `json:"pass"`
	Step       string     `json:"step"`
	Method     string     `json:"method"`
	Path       string     `json:"path"`
	Status     int        `json:"status,omitempty"`
	LatencyMS  float64    `json:"latency_ms"`
	Bytes      int64      `json:"bytes"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	ErrorClass ErrorClass `json:"error_class,omitempty"`
}

// LatencyMillis converts a duration to the fractional milliseconds the
// record carries.
func LatencyMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
