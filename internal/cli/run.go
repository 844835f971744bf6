package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/riposte/internal/config"
	"github.com/wesleyorama2/riposte/internal/httpclient"
	"github.com/wesleyorama2/riposte/internal/load"
	"github.com/wesleyorama2/riposte/internal/logging"
	"github.com/wesleyorama2/riposte/internal/metrics"
	"github.com/wesleyorama2/riposte/internal/output"
	"github.com/wesleyorama2/riposte/internal/results"
	"github.com/wesleyorama2/riposte/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario from a configuration file",
	Long: `Execute a scenario with the configured number of virtual users, loop
count, and ramp-up window. Properties from --prop flags and
RIPOSTE_PROP_* environment variables are merged into the scenario's
variables before the run starts.

Basic usage:
  riposte run -f scenario.yaml

Override the load shape and target:
  riposte run -f scenario.yaml --threads 10 --loops 100 \
    --prop hostname=10.230.246.7 --prop port=28100

Write per-step records and a machine-readable summary:
  riposte run -f scenario.yaml --out steps.jsonl --summary-json summary.json`,
	Run: func(cmd *cobra.Command, args []string) {
		runScenario(cmd, args)
	},
}

// runScenario loads, validates, and drives one scenario run.
func runScenario(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	threads, _ := cmd.Flags().GetInt("threads")
	loops, _ := cmd.Flags().GetInt64("loops")
	rampUp, _ := cmd.Flags().GetDuration("ramp-up")
	props, _ := cmd.Flags().GetStringArray("prop")
	outPath, _ := cmd.Flags().GetString("out")
	summaryPath, _ := cmd.Flags().GetString("summary-json")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	insecure, _ := cmd.Flags().GetBool("insecure")
	verbose, _ := cmd.Flags().GetBool("verbose")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	quiet, _ := cmd.Flags().GetBool("quiet")
	seed, _ := cmd.Flags().GetInt64("seed")

	cfg, err := loadValidated(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Properties overlay: environment first, then --prop flags on top.
	if err := config.ApplyProperties(cfg, config.EnvProps(os.Environ())); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying environment properties: %v\n", err)
		os.Exit(1)
	}
	cliProps, err := config.ParseProps(props)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := config.ApplyProperties(cfg, cliProps); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying properties: %v\n", err)
		os.Exit(1)
	}

	// Explicit load flags beat both the file and the properties.
	if cmd.Flags().Changed("threads") {
		cfg.Load.Threads = threads
	}
	if cmd.Flags().Changed("loops") {
		cfg.Load.Loops = loops
	}
	if cmd.Flags().Changed("ramp-up") {
		cfg.Load.RampUp = config.Duration(rampUp)
	}

	config.ApplyDefaults(cfg)

	log := logging.New(logging.Options{Verbose: verbose, JSON: logJSON})

	plan, err := scenario.BuildPlan(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building scenario: %v\n", err)
		os.Exit(1)
	}

	client := buildClient(cfg, timeout, cmd.Flags().Changed("timeout"), insecure)
	engine := metrics.NewEngine()

	sinks := []results.Sink{}
	if outPath != "" {
		jsonl, err := results.NewJSONLSink(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening output file: %v\n", err)
			os.Exit(1)
		}
		sinks = append(sinks, jsonl)
	}

	gauges := []load.ActiveVUGauge{}
	if metricsAddr != "" {
		exporter := metrics.NewPromExporter()
		sinks = append(sinks, exporter)
		gauges = append(gauges, exporter)
		go serveMetrics(metricsAddr, exporter, log)
	}

	sink := results.Discard
	if len(sinks) > 0 {
		sink = results.NewMultiSink(sinks...)
	}

	console := output.NewConsole(output.ConsoleConfig{
		ScenarioName: cfg.Name,
		Quiet:        quiet,
		NoColor:      noColor,
	})
	console.PrintHeader(cfg.Load.Threads, cfg.Load.Loops, time.Duration(cfg.Load.RampUp))

	driver, err := load.NewDriver(load.Config{
		Plan:         plan,
		Client:       client,
		Threads:      cfg.Load.Threads,
		Loops:        cfg.Load.Loops,
		RampUp:       time.Duration(cfg.Load.RampUp),
		GracefulStop: time.Duration(cfg.Load.GracefulStop),
		Engine:       engine,
		Sink:         sink,
		Logger:       log,
		Gauges:       gauges,
		Seed:         seed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating driver: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = driver.Run(ctx)
		close(done)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

progressLoop:
	for {
		select {
		case <-ticker.C:
			snap := engine.GetSnapshot()
			if console.IsTTY() {
				console.Update(snap)
			} else {
				console.PrintProgress(snap)
			}
		case <-done:
			break progressLoop
		}
	}

	if err := sink.Close(); err != nil {
		log.WithError(err).Warn("closing result sink")
	}

	snap := engine.GetSnapshot()
	console.PrintSummary(snap)

	if summaryPath != "" {
		if err := writeSummary(summaryPath, cfg.Name, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing summary: %v\n", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error running scenario: %v\n", runErr)
		os.Exit(1)
	}
	if snap.SuccessSteps == 0 {
		os.Exit(1)
	}
}

// loadValidated reads a scenario file and runs schema plus structural
// validation, returning the parsed scenario or a printable error.
func loadValidated(file string) (*config.Scenario, error) {
	if file == "" {
		return nil, fmt.Errorf("Error: --file is required")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("Error reading scenario: %v", err)
	}
	if err := config.ValidateSchema(data, file); err != nil {
		return nil, fmt.Errorf("Error validating scenario: %v", err)
	}
	cfg, err := config.ParseScenario(data, file)
	if err != nil {
		return nil, fmt.Errorf("Error parsing scenario: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		var sb strings.Builder
		sb.WriteString("Configuration validation errors:")
		for _, e := range errs {
			sb.WriteString("\n  - ")
			sb.WriteString(e.Error())
		}
		return nil, errors.New(sb.String())
	}
	return cfg, nil
}

// buildClient assembles the shared HTTP client from the scenario's
// http block and the command-line overrides.
func buildClient(cfg *config.Scenario, timeout time.Duration, timeoutSet, insecure bool) *httpclient.Client {
	transportCfg := httpclient.DefaultTransportConfig()
	transportCfg.InsecureSkipVerify = insecure || cfg.HTTP.InsecureSkipVerify
	transportCfg.DisableKeepAlives = cfg.HTTP.DisableKeepAlives
	if cfg.HTTP.MaxIdleConnsPerHost > 0 {
		transportCfg.MaxIdleConnsPerHost = cfg.HTTP.MaxIdleConnsPerHost
	}

	clientTimeout := time.Duration(cfg.HTTP.Timeout)
	if timeoutSet {
		clientTimeout = timeout
	}

	baseURL := scenario.Expand(cfg.BaseURL, cfg.Variables)
	return httpclient.NewClient(
		httpclient.WithBaseURL(baseURL),
		httpclient.WithTimeout(clientTimeout),
		httpclient.WithTransport(httpclient.NewTransport(transportCfg)),
	)
}

// serveMetrics exposes the Prometheus endpoint for the run's lifetime.
func serveMetrics(addr string, exporter *metrics.PromExporter, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics endpoint failed")
	}
}

// writeSummary writes the machine-readable run summary to path.
func writeSummary(path, name string, snap metrics.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return output.WriteJSONSummary(f, output.NewSummaryData(name, snap))
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "Scenario file (YAML or JSON)")
	runCmd.Flags().Int("threads", 0, "Override the number of virtual users")
	runCmd.Flags().Int64("loops", 0, "Override the number of passes per virtual user")
	runCmd.Flags().Duration("ramp-up", 0, "Override the ramp-up window")
	runCmd.Flags().StringArrayP("prop", "P", nil, "Scenario property as key=value (repeatable)")
	runCmd.Flags().String("out", "", "Write per-step records as JSON Lines to this file")
	runCmd.Flags().String("summary-json", "", "Write the run summary as JSON to this file")
	runCmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().DurationP("timeout", "t", 30*time.Second, "Request timeout")
	runCmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
	runCmd.Flags().Bool("log-json", false, "Emit logs as JSON")
	runCmd.Flags().Bool("no-color", false, "Disable colored output")
	runCmd.Flags().BoolP("quiet", "q", false, "Disable live progress output, show only final summary")
	runCmd.Flags().Int64("seed", 0, "Seed for per-user random draws (0 seeds from the clock)")

	runCmd.MarkFlagRequired("file")
}
