package load

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wesleyorama2/riposte/internal/httpclient"
	"github.com/wesleyorama2/riposte/internal/metrics"
	"github.com/wesleyorama2/riposte/internal/results"
	"github.com/wesleyorama2/riposte/internal/scenario"
)

func singleStepPlan() *scenario.Plan {
	return &scenario.Plan{
		Name: "ping",
		Steps: []scenario.Step{
			&scenario.RequestStep{Name: "Ping", Method: http.MethodGet, Path: "/ping"},
		},
	}
}

func TestNewDriverValidation(t *testing.T) {
	client := httpclient.NewClient()

	if _, err := NewDriver(Config{Client: client}); err == nil {
		t.Error("NewDriver without plan expected error")
	}
	if _, err := NewDriver(Config{Plan: singleStepPlan()}); err == nil {
		t.Error("NewDriver without client expected error")
	}

	driver, err := NewDriver(Config{Plan: singleStepPlan(), Client: client})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}
	if driver.config.Threads != 1 || driver.config.Loops != 1 {
		t.Errorf("defaults = %d threads %d loops, want 1 and 1",
			driver.config.Threads, driver.config.Loops)
	}
	if driver.Engine() == nil {
		t.Error("Engine() = nil, want a default engine")
	}
}

func TestDriverRunsThreadsTimesLoops(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	sink := results.NewMemorySink()
	driver, err := NewDriver(Config{
		Plan:    singleStepPlan(),
		Client:  httpclient.NewClient(httpclient.WithBaseURL(server.URL)),
		Threads: 3,
		Loops:   4,
		Sink:    sink,
	})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}

	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if hits.Load() != 12 {
		t.Errorf("server hits = %d, want 12", hits.Load())
	}
	if sink.Len() != 12 {
		t.Errorf("sink records = %d, want 12", sink.Len())
	}

	// Each virtual user contributed every one of its passes.
	perVU := make(map[int]int)
	passes := make(map[int64]bool)
	for _, rec := range sink.Records() {
		perVU[rec.VU]++
		passes[rec.Pass] = true
	}
	if len(perVU) != 3 {
		t.Errorf("distinct VUs = %d, want 3", len(perVU))
	}
	for vu, count := range perVU {
		if count != 4 {
			t.Errorf("VU %d records = %d, want 4", vu, count)
		}
	}
	for pass := int64(0); pass < 4; pass++ {
		if !passes[pass] {
			t.Errorf("pass %d missing from records", pass)
		}
	}

	snap := driver.Engine().GetSnapshot()
	if snap.TotalSteps != 12 {
		t.Errorf("engine TotalSteps = %d, want 12", snap.TotalSteps)
	}
	if snap.Phase != metrics.PhaseDone {
		t.Errorf("final phase = %v, want %v", snap.Phase, metrics.PhaseDone)
	}
}

func TestDriverRampUpStaggersStarts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	sink := results.NewMemorySink()
	driver, err := NewDriver(Config{
		Plan:    singleStepPlan(),
		Client:  httpclient.NewClient(httpclient.WithBaseURL(server.URL)),
		Threads: 3,
		Loops:   1,
		RampUp:  300 * time.Millisecond,
		Sink:    sink,
	})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}

	start := time.Now()
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	elapsed := time.Since(start)

	// The last user starts two intervals (200ms) into the window.
	if elapsed < 180*time.Millisecond {
		t.Errorf("run elapsed %v, want >= 180ms with staggered starts", elapsed)
	}

	firstRecord := make(map[int]time.Time)
	for _, rec := range sink.Records() {
		if existing, ok := firstRecord[rec.VU]; !ok || rec.Time.Before(existing) {
			firstRecord[rec.VU] = rec.Time
		}
	}
	if len(firstRecord) != 3 {
		t.Fatalf("distinct VUs = %d, want 3", len(firstRecord))
	}
	if gap := firstRecord[3].Sub(firstRecord[1]); gap < 100*time.Millisecond {
		t.Errorf("VU3 started %v after VU1, want >= 100ms", gap)
	}
}

func TestDriverNoRampUpStartsImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	driver, err := NewDriver(Config{
		Plan:    singleStepPlan(),
		Client:  httpclient.NewClient(httpclient.WithBaseURL(server.URL)),
		Threads: 5,
		Loops:   1,
	})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}

	start := time.Now()
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run with no ramp-up took %v", elapsed)
	}
}

func TestDriverCancellationStopsBetweenPasses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
	}))
	defer server.Close()

	sink := results.NewMemorySink()
	driver, err := NewDriver(Config{
		Plan:         singleStepPlan(),
		Client:       httpclient.NewClient(httpclient.WithBaseURL(server.URL)),
		Threads:      2,
		Loops:        1000,
		GracefulStop: 2 * time.Second,
		Sink:         sink,
	})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err = driver.Run(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if elapsed > 3*time.Second {
		t.Errorf("cancelled run took %v to drain", elapsed)
	}
	if sink.Len() == 0 {
		t.Error("no records before cancellation")
	}
	if sink.Len() >= 2000 {
		t.Error("run completed every pass despite cancellation")
	}
}

func TestDriverSeededRunsAreReproducible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	plan := &scenario.Plan{
		Name:      "random-path",
		Variables: map[string]string{"iam_username": "newiamuser"},
		Steps: []scenario.Step{
			&scenario.RequestStep{
				Name:   "CreateUser",
				Method: http.MethodPost,
				Path:   "/api/v2/iam/users/${iam_username}${random(0,1000,uid_suffix)}",
			},
		},
	}

	paths := func() []string {
		sink := results.NewMemorySink()
		driver, err := NewDriver(Config{
			Plan:   plan,
			Client: httpclient.NewClient(httpclient.WithBaseURL(server.URL)),
			Loops:  3,
			Seed:   99,
			Sink:   sink,
		})
		if err != nil {
			t.Fatalf("NewDriver() error: %v", err)
		}
		if err := driver.Run(context.Background()); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		var out []string
		for _, rec := range sink.Records() {
			out = append(out, rec.Path)
		}
		return out
	}

	first := paths()
	second := paths()
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("record counts = %d, %d, want 3 each", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("pass %d path %q != %q with identical seeds", i, first[i], second[i])
		}
	}
}
