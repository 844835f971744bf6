package results

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Sink consumes step records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(rec StepRecord)
	Close() error
}

// Discard is a sink that drops every record.
var Discard Sink = nopSink{}

type nopSink struct{}

func (nopSink) Record(StepRecord) {}
func (nopSink) Close() error      { return nil }

// JSONLSink appends one JSON object per record to a file.
type JSONLSink struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	err     error
}

// NewJSONLSink creates (or truncates) the file at path and returns a
// sink writing one record per line.
func NewJSONLSink(path string) (*JSONLSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating results file: %w", err)
	}

	writer := bufio.NewWriter(file)
	return &JSONLSink{
		file:    file,
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}, nil
}

// Record encodes the record as one JSONL line. The first write error is
// retained and surfaced by Close.
func (s *JSONLSink) Record(rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	if err := s.encoder.Encode(rec); err != nil {
		s.err = fmt.Errorf("writing record: %w", err)
	}
}

// Close flushes buffered records and closes the file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if flushErr := s.writer.Flush(); flushErr != nil && s.err == nil {
		s.err = fmt.Errorf("flushing results file: %w", flushErr)
	}
	if closeErr := s.file.Close(); closeErr != nil && s.err == nil {
		s.err = fmt.Errorf("closing results file: %w", closeErr)
	}
	return s.err
}

// MemorySink buffers records in memory. Tests use it to assert on the
// exact sequence of step outcomes.
type MemorySink struct {
	mu      sync.Mutex
	records []StepRecord
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the record.
func (s *MemorySink) Record(rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// Close is a no-op.
func (s *MemorySink) Close() error { return nil }

// Records returns a copy of everything recorded so far.
func (s *MemorySink) Records() []StepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records held.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// MultiSink fans every record out to a set of sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one. Nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Record forwards to every sink.
func (m *MultiSink) Record(rec StepRecord) {
	for _, s := range m.sinks {
		s.Record(rec)
	}
}

// Close closes every sink and returns the first error.
func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
