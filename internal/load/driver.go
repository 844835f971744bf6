// Package load runs a plan under a thread-group profile: a fixed number
// of virtual users, each executing a fixed number of passes, with
// starts staggered evenly across a ramp-up window. Ramp-up shapes start
// times only; it never throttles a running virtual user.
package load

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/riposte/internal/httpclient"
	"github.com/wesleyorama2/riposte/internal/metrics"
	"github.com/wesleyorama2/riposte/internal/results"
	"github.com/wesleyorama2/riposte/internal/scenario"
)

// ActiveVUGauge receives active virtual-user counts. Both the metrics
// engine and the Prometheus exporter satisfy it.
type ActiveVUGauge interface {
	SetActiveVUs(n int)
}

// Config assembles a run.
type Config struct {
	Plan   *scenario.Plan
	Client *httpclient.Client

	// Threads is the number of virtual users. Defaults to 1.
	Threads int
	// Loops is the number of passes each virtual user executes.
	// Defaults to 1.
	Loops int64
	// RampUp staggers virtual-user starts evenly across the window.
	RampUp time.Duration
	// GracefulStop bounds the drain after cancellation. Zero waits
	// indefinitely; running users still stop at the next step boundary.
	GracefulStop time.Duration

	// Engine aggregates metrics. A fresh engine is created when nil.
	Engine *metrics.Engine
	// Sink receives step records. Defaults to results.Discard.
	Sink results.Sink
	// Logger gets run lifecycle lines. Defaults to a silent logger.
	Logger *logrus.Logger
	// Gauges receive active-VU updates in addition to the engine.
	Gauges []ActiveVUGauge
	// Seed makes per-user random draws reproducible: user i runs with
	// Seed+i. Zero seeds from the clock.
	Seed int64
}

// Driver owns the virtual users of one run.
type Driver struct {
	config Config
	log    *logrus.Entry
	active atomic.Int32
}

// NewDriver validates the config and returns a ready driver.
func NewDriver(config Config) (*Driver, error) {
	if config.Plan == nil {
		return nil, fmt.Errorf("load: plan is required")
	}
	if config.Client == nil {
		return nil, fmt.Errorf("load: client is required")
	}
	if config.Threads <= 0 {
		config.Threads = 1
	}
	if config.Loops <= 0 {
		config.Loops = 1
	}
	if config.Engine == nil {
		config.Engine = metrics.NewEngine()
	}
	if config.Sink == nil {
		config.Sink = results.Discard
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
		config.Logger.SetOutput(io.Discard)
	}

	return &Driver{
		config: config,
		log:    config.Logger.WithField("scenario", config.Plan.Name),
	}, nil
}

// Engine returns the metrics engine backing this run.
func (d *Driver) Engine() *metrics.Engine {
	return d.config.Engine
}

// Run starts every virtual user per the ramp-up schedule and waits for
// all passes to finish. It returns the context's error when the run was
// cancelled, nil otherwise.
func (d *Driver) Run(ctx context.Context) error {
	threads := d.config.Threads
	interval := rampInterval(d.config.RampUp, threads)

	if interval > 0 {
		d.config.Engine.SetPhase(metrics.PhaseRamp)
	} else {
		d.config.Engine.SetPhase(metrics.PhaseSteady)
	}
	d.log.WithFields(logrus.Fields{
		"threads": threads,
		"loops":   d.config.Loops,
		"ramp_up": d.config.RampUp.String(),
	}).Info("run starting")

	var wg sync.WaitGroup
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

spawn:
	for i := 0; i < threads; i++ {
		if i > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				d.log.WithField("started", i).Debug("cancelled during ramp-up")
				break spawn
			case <-ticker.C:
			}
		}
		wg.Add(1)
		go d.runVU(ctx, i+1, &wg)
	}
	d.config.Engine.SetPhase(metrics.PhaseSteady)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if d.config.GracefulStop > 0 {
			select {
			case <-done:
			case <-time.After(d.config.GracefulStop):
				d.log.Warn("graceful stop window elapsed before all virtual users drained")
			}
		} else {
			<-done
		}
	}

	d.config.Engine.SetPhase(metrics.PhaseDone)
	d.log.WithField("elapsed", d.config.Engine.GetSnapshot().Elapsed.String()).Info("run complete")
	return ctx.Err()
}

// runVU executes every pass of one virtual user.
func (d *Driver) runVU(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	d.setActiveVUs(int(d.active.Add(1)))
	defer func() {
		d.setActiveVUs(int(d.active.Add(-1)))
	}()

	seed := int64(0)
	if d.config.Seed != 0 {
		seed = d.config.Seed + int64(id)
	}
	runner := scenario.NewRunner(id, d.config.Plan, d.config.Client, scenario.RunnerOptions{
		Sink:    d.config.Sink,
		Metrics: d.config.Engine,
		Logger:  d.config.Logger,
		Seed:    seed,
	})

	d.log.WithField("vu", id).Debug("virtual user started")
	for pass := int64(0); pass < d.config.Loops; pass++ {
		if err := runner.RunPass(ctx); err != nil {
			d.log.WithFields(logrus.Fields{"vu": id, "pass": pass}).Debug("virtual user stopped")
			return
		}
	}
	d.log.WithField("vu", id).Debug("virtual user finished")
}

func (d *Driver) setActiveVUs(n int) {
	d.config.Engine.SetActiveVUs(n)
	for _, gauge := range d.config.Gauges {
		gauge.SetActiveVUs(n)
	}
}

// rampInterval is the start-to-start gap between virtual users: the
// window divided by the user count, so the last user starts just inside
// the window.
func rampInterval(rampUp time.Duration, threads int) time.Duration {
	if rampUp <= 0 || threads <= 1 {
		return 0
	}
	return rampUp / time.Duration(threads)
}
