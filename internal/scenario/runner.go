package scenario

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/riposte/internal/httpclient"
	"github.com/wesleyorama2/riposte/internal/metrics"
	"github.com/wesleyorama2/riposte/internal/results"
)

// Runner executes a plan for one virtual user. Steps run strictly in
// order; a failed step is recorded and execution continues with
// whatever variables exist. Cancellation is honored between steps and
// between loop iterations.
type Runner struct {
	vuID     int
	plan     *Plan
	client   *httpclient.Client
	scope    *Scope
	renderer *Renderer
	sink     results.Sink
	metrics  *metrics.Engine
	log      *logrus.Entry
	pass     int64
}

// RunnerOptions carries the optional collaborators of a Runner.
type RunnerOptions struct {
	// Sink receives one record per executed request step. Defaults to
	// results.Discard.
	Sink results.Sink
	// Metrics, when set, aggregates per-step latency and counters.
	Metrics *metrics.Engine
	// Logger, when set, gets per-step debug lines. Defaults to a silent
	// logger.
	Logger *logrus.Logger
	// Seed fixes the random source; zero draws a time-based seed.
	Seed int64
}

// NewRunner builds a runner whose scope is seeded from the plan's
// variables.
func NewRunner(vuID int, plan *Plan, client *httpclient.Client, opts RunnerOptions) *Runner {
	scope := NewScopeFrom(plan.Variables)

	var renderer *Renderer
	if opts.Seed != 0 {
		renderer = NewRendererWithSeed(scope, opts.Seed)
	} else {
		renderer = NewRenderer(scope)
	}

	sink := opts.Sink
	if sink == nil {
		sink = results.Discard
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Runner{
		vuID:     vuID,
		plan:     plan,
		client:   client,
		scope:    scope,
		renderer: renderer,
		sink:     sink,
		metrics:  opts.Metrics,
		log:      logger.WithField("vu", vuID),
	}
}

// Scope exposes the runner's variable scope.
func (r *Runner) Scope() *Scope { return r.scope }

// Pass returns the number of completed passes.
func (r *Runner) Pass() int64 { return r.pass }

// RunPass executes the plan once. Variables persist across passes of
// the same runner. The only error it returns is cancellation.
func (r *Runner) RunPass(ctx context.Context) error {
	err := r.runSteps(ctx, r.plan.Steps)
	r.pass++
	return err
}

func (r *Runner) runSteps(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch s := step.(type) {
		case *RequestStep:
			r.runRequest(ctx, s)
		case *ForEachStep:
			if err := r.runForEach(ctx, s); err != nil {
				return err
			}
		case *LoopStep:
			if err := r.runLoop(ctx, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runForEach(ctx context.Context, step *ForEachStep) error {
	items, _ := r.scope.GetList(step.In)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.scope.Push()
		r.scope.Set(step.As, item)
		r.scope.Set(step.As+"_idx", strconv.Itoa(i))
		err := r.runSteps(ctx, step.Steps)
		r.scope.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runLoop(ctx context.Context, step *LoopStep) error {
	for i := 0; step.Forever || i < step.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.scope.Push()
		err := r.runSteps(ctx, step.Steps)
		r.scope.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// runRequest renders, sends, extracts, and records one request step. It
// never fails the pass: every outcome becomes a record.
func (r *Runner) runRequest(ctx context.Context, step *RequestStep) {
	path := r.renderer.Render(step.Path)

	req := httpclient.NewRequest(step.Method, path)
	for key, value := range step.Headers {
		req.WithHeader(key, r.renderer.Render(value))
	}

	if len(step.BodyFields) > 0 {
		body, err := r.renderer.RenderFields(step.BodyFields)
		if err != nil {
			r.record(step, path, 0, 0, 0, false, results.ErrorTemplate, err.Error())
			r.think(ctx, step)
			return
		}
		req.WithBody(body)
		if _, ok := step.Headers["Content-Type"]; !ok {
			req.WithHeader("Content-Type", "application/json")
		}
	} else if step.Body != "" {
		req.WithBody(r.renderer.Render(step.Body))
	}

	start := time.Now()
	resp, err := r.client.Do(ctx, req)
	duration := time.Since(start)

	if err != nil {
		r.record(step, path, duration, 0, 0, false, results.ErrorTransport, err.Error())
		r.think(ctx, step)
		return
	}

	// Extractions run on every response, success or not. A rejected
	// logout still goes through header extraction, where no match means
	// the previous token value stays bound.
	for _, extract := range step.JSONExtracts {
		extract.Apply(r.scope, resp.GetBodyAsString())
	}
	for _, extract := range step.HeaderExtracts {
		extract.Apply(r.scope, resp.HeaderBlock())
	}

	success, class, message := evaluate(step, resp)
	r.record(step, path, duration, resp.StatusCode, resp.BodySize(), success, class, message)
	r.think(ctx, step)
}

// evaluate applies the step's expectation to the response.
func evaluate(step *RequestStep, resp *httpclient.Response) (bool, results.ErrorClass, string) {
	if step.Expect != nil && step.Expect.Status != 0 {
		if resp.StatusCode != step.Expect.Status {
			return false, results.ErrorExpect, fmt.Sprintf("expected status %d, got %d", step.Expect.Status, resp.StatusCode)
		}
		return true, "", ""
	}
	if !resp.IsSuccess() {
		return false, results.ErrorHTTP, fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return true, "", ""
}

func (r *Runner) record(step *RequestStep, path string, duration time.Duration, status int, bytes int64, success bool, class results.ErrorClass, message string) {
	r.sink.Record(results.StepRecord{
		Time:       time.Now(),
		VU:         r.vuID,
		Pass:       r.pass,
		Step:       step.Name,
		Method:     step.Method,
		Path:       path,
		Status:     status,
		LatencyMS:  results.LatencyMillis(duration),
		Bytes:      bytes,
		Success:    success,
		Error:      message,
		ErrorClass: class,
	})

	if r.metrics != nil {
		r.metrics.RecordStep(step.Name, duration, success, bytes)
	}

	fields := logrus.Fields{"step": step.Name, "status": status, "pass": r.pass}
	if success {
		r.log.WithFields(fields).Debug("step complete")
	} else {
		fields["error"] = message
		r.log.WithFields(fields).Debug("step failed")
	}
}

// think sleeps the step's think time, cut short by cancellation.
func (r *Runner) think(ctx context.Context, step *RequestStep) {
	if step.ThinkTime <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(step.ThinkTime):
	}
}
