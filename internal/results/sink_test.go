package results

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func sampleRecord(step string, success bool) StepRecord {
	rec := StepRecord{
		Time:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		VU:        1,
		Pass:      0,
		Step:      step,
		Method:    "POST",
		Path:      "/api/v2/login",
		Status:    201,
		LatencyMS: 12.5,
		Bytes:     64,
		Success:   success,
	}
	if !success {
		rec.Status = 401
		rec.Error = "unexpected status 401"
		rec.ErrorClass = ErrorHTTP
	}
	return rec
}

func TestJSONLSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("NewJSONLSink() error: %v", err)
	}

	sink.Record(sampleRecord("AdminLogin", true))
	sink.Record(sampleRecord("CreateUser", false))
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening results file: %v", err)
	}
	defer file.Close()

	var lines []StepRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec StepRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", len(lines)+1, err)
		}
		lines = append(lines, rec)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Step != "AdminLogin" || !lines[0].Success {
		t.Errorf("first line = %+v, want successful AdminLogin", lines[0])
	}
	if lines[1].ErrorClass != ErrorHTTP {
		t.Errorf("second line error class = %q, want %q", lines[1].ErrorClass, ErrorHTTP)
	}
}

func TestJSONLSinkOmitsEmptyErrorFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("NewJSONLSink() error: %v", err)
	}
	sink.Record(sampleRecord("Logout", true))
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading results file: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parsing line: %v", err)
	}
	if _, present := raw["error"]; present {
		t.Error("successful record should omit the error field")
	}
	if _, present := raw["error_class"]; present {
		t.Error("successful record should omit the error_class field")
	}
}

func TestMemorySinkConcurrent(t *testing.T) {
	sink := NewMemorySink()

	var wg sync.WaitGroup
	for vu := 0; vu < 8; vu++ {
		wg.Add(1)
		go func(vu int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rec := sampleRecord("CreateUser", true)
				rec.VU = vu
				sink.Record(rec)
			}
		}(vu)
	}
	wg.Wait()

	if sink.Len() != 400 {
		t.Errorf("Len() = %d, want 400", sink.Len())
	}
	if len(sink.Records()) != 400 {
		t.Errorf("Records() returned %d records, want 400", len(sink.Records()))
	}
}

func TestMultiSink(t *testing.T) {
	a := NewMemorySink()
	b := NewMemorySink()

	multi := NewMultiSink(a, nil, b)
	multi.Record(sampleRecord("SetQuota", true))

	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", a.Len(), b.Len())
	}
	if err := multi.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestLatencyMillis(t *testing.T) {
	if got := LatencyMillis(12500 * time.Microsecond); got != 12.5 {
		t.Errorf("LatencyMillis = %v, want 12.5", got)
	}
	if got := LatencyMillis(0); got != 0 {
		t.Errorf("LatencyMillis(0) = %v, want 0", got)
	}
}
