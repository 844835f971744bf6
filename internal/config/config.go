// Package config defines the scenario file format (YAML or JSON), its
// validation, post-parse defaults, and the property overlay that
// injects hostname, port, and load parameters from outside the file.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with friendly serialization: "30s" style
// strings in both YAML and JSON, or a bare number of seconds.
type Duration time.Duration

// MarshalJSON serializes as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "30s" or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := ParseDurationString(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(value * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

// MarshalYAML serializes as a duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "30s" or a number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := ParseDurationString(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration: %s", value.Value)
}

// ParseDurationString parses a Go duration string, falling back to a
// bare integer meaning seconds.
func ParseDurationString(s string) (time.Duration, error) {
	if parsed, err := time.ParseDuration(s); err == nil {
		return parsed, nil
	}
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration: %q", s)
}

// Scenario is the root of a scenario file.
type Scenario struct {
	Name      string            `json:"name" yaml:"name"`
	BaseURL   string            `json:"base_url" yaml:"base_url"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Load      LoadProfile       `json:"load,omitempty" yaml:"load,omitempty"`
	HTTP      HTTPConfig        `json:"http,omitempty" yaml:"http,omitempty"`
	Steps     []StepConfig      `json:"steps" yaml:"steps"`
}

// LoadProfile is the thread-group shape of a run.
type LoadProfile struct {
	Threads      int      `json:"threads,omitempty" yaml:"threads,omitempty"`
	Loops        int64    `json:"loops,omitempty" yaml:"loops,omitempty"`
	RampUp       Duration `json:"ramp_up,omitempty" yaml:"ramp_up,omitempty"`
	GracefulStop Duration `json:"graceful_stop,omitempty" yaml:"graceful_stop,omitempty"`
}

// HTTPConfig tunes the shared HTTP client.
type HTTPConfig struct {
	Timeout             Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	InsecureSkipVerify  bool     `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	DisableKeepAlives   bool     `json:"disable_keep_alives,omitempty" yaml:"disable_keep_alives,omitempty"`
	MaxIdleConnsPerHost int      `json:"max_idle_conns_per_host,omitempty" yaml:"max_idle_conns_per_host,omitempty"`
}

// StepConfig is one entry of a step list: exactly one of Request,
// ForEach, or Loop is set.
type StepConfig struct {
	Request *RequestConfig `json:"request,omitempty" yaml:"request,omitempty"`
	ForEach *ForEachConfig `json:"for_each,omitempty" yaml:"for_each,omitempty"`
	Loop    *LoopConfig    `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// RequestConfig describes one templated HTTP call.
type RequestConfig struct {
	Name      string            `json:"name" yaml:"name"`
	Method    string            `json:"method,omitempty" yaml:"method,omitempty"`
	Path      string            `json:"path" yaml:"path"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      string            `json:"body,omitempty" yaml:"body,omitempty"`
	Fields    []BodyFieldConfig `json:"body_fields,omitempty" yaml:"body_fields,omitempty"`
	Extract   []ExtractConfig   `json:"extract,omitempty" yaml:"extract,omitempty"`
	Expect    *ExpectConfig     `json:"expect,omitempty" yaml:"expect,omitempty"`
	ThinkTime Duration          `json:"think_time,omitempty" yaml:"think_time,omitempty"`
}

// BodyFieldConfig is one ordered field of a structured JSON body.
type BodyFieldConfig struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
}

// ExtractConfig attaches a post-response extraction to a request.
// Source "body" evaluates Path as JSONPath over the response body and
// binds all matches; source "header" applies Pattern to the response
// header block and binds capture group 1 of the first match.
type ExtractConfig struct {
	Name    string `json:"name" yaml:"name"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// ExpectConfig declares the status a request must return.
type ExpectConfig struct {
	Status int `json:"status,omitempty" yaml:"status,omitempty"`
}

// ForEachConfig iterates a bound list.
type ForEachConfig struct {
	Name  string       `json:"name,omitempty" yaml:"name,omitempty"`
	In    string       `json:"in" yaml:"in"`
	As    string       `json:"as" yaml:"as"`
	Steps []StepConfig `json:"steps" yaml:"steps"`
}

// LoopConfig repeats its body a fixed number of times.
type LoopConfig struct {
	Name    string       `json:"name,omitempty" yaml:"name,omitempty"`
	Count   int          `json:"count,omitempty" yaml:"count,omitempty"`
	Forever bool         `json:"forever,omitempty" yaml:"forever,omitempty"`
	Steps   []StepConfig `json:"steps" yaml:"steps"`
}

// Extract sources.
const (
	SourceBody   = "body"
	SourceHeader = "header"
)

// Body field types accepted by the config.
const (
	FieldTypeString = "string"
	FieldTypeBool   = "bool"
	FieldTypeInt    = "int"
	FieldTypeRaw    = "raw"
)
