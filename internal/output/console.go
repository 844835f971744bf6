// Package output renders run progress and the final summary to the
// console, with colors when the target is a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/wesleyorama2/riposte/internal/metrics"
)

// clearLine returns the cursor to column 0 and wipes the line, so the
// live status can be rewritten in place.
const clearLine = "\r\033[2K"

const bannerWidth = 56

// Console manages console output during a run: a banner, a live status
// line on terminals (a periodic status line otherwise), and the final
// summary.
type Console struct {
	scenarioName string
	writer       io.Writer
	scheme       *ColorScheme
	noColor      bool
	isTTY        bool
	quiet        bool

	mu   sync.Mutex
	live bool
}

// ConsoleConfig contains configuration for a Console.
type ConsoleConfig struct {
	ScenarioName string
	Writer       io.Writer
	Quiet        bool
	NoColor      bool
	ForceTTY     bool
}

// NewConsole creates a new console output handler.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	isTTY := config.ForceTTY || isTerminal(config.Writer)
	noColor := config.NoColor || os.Getenv("NO_COLOR") != "" || !isTTY

	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}

	return &Console{
		scenarioName: config.ScenarioName,
		writer:       config.Writer,
		scheme:       scheme,
		noColor:      noColor,
		isTTY:        isTTY,
		quiet:        config.Quiet,
	}
}

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run banner.
func (c *Console) PrintHeader(threads int, loops int64, rampUp time.Duration) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat("━", bannerWidth)
	profile := fmt.Sprintf("%d threads × %d loops", threads, loops)
	if rampUp > 0 {
		profile += fmt.Sprintf(", ramp-up %s", formatDuration(rampUp))
	}

	fmt.Fprintln(c.writer, c.scheme.Dim.Sprint(line))
	fmt.Fprintf(c.writer, "%s  %s\n",
		c.scheme.Header.Sprint(c.scenarioName),
		c.scheme.Value.Sprint(profile))
	fmt.Fprintln(c.writer, c.scheme.Dim.Sprint(line))
}

// Update rewrites the live status line in place. Outside a terminal it
// does nothing; PrintProgress is the non-interactive variant.
func (c *Console) Update(snap metrics.Snapshot) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.live = true
	fmt.Fprint(c.writer, clearLine+c.statusLine(snap))
}

// PrintProgress prints one status line. Used when output is not a
// terminal (piped to a file or CI).
func (c *Console) PrintProgress(snap metrics.Snapshot) {
	if c.quiet || c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.writer, c.statusLine(snap))
}

func (c *Console) statusLine(snap metrics.Snapshot) string {
	errText := fmt.Sprintf("%d (%.1f%%)", snap.FailedSteps, snap.ErrorRate*100)
	errColor := c.scheme.StatusOK
	if snap.ErrorRate > 0.05 {
		errColor = c.scheme.StatusError
	} else if snap.ErrorRate > 0.01 {
		errColor = c.scheme.StatusWarn
	}

	return fmt.Sprintf("[%s] %s | VUs: %s | steps: %s | rate: %s/s | errors: %s | p95: %s",
		formatDuration(snap.Elapsed),
		c.scheme.Highlight.Sprint(snap.Phase.String()),
		c.scheme.Value.Sprintf("%d", snap.ActiveVUs),
		c.scheme.Value.Sprint(formatNumber(snap.TotalSteps)),
		c.scheme.Success.Sprintf("%.1f", snap.Throughput),
		errColor.Sprint(errText),
		c.scheme.Value.Sprint(formatDurationShort(snap.Overall.P95)))
}

// PrintSummary prints the final run summary.
func (c *Console) PrintSummary(snap metrics.Snapshot) {
	status, statusColor := runStatus(c, snap)

	if c.quiet {
		if snap.SuccessSteps > 0 {
			fmt.Fprintln(c.writer, c.scheme.StatusOK.Sprint("PASSED"))
		} else {
			fmt.Fprintln(c.writer, c.scheme.StatusError.Sprint("FAILED"))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Leave the last live line behind before printing the summary.
	if c.live {
		fmt.Fprint(c.writer, "\n")
		c.live = false
	}

	line := strings.Repeat("━", bannerWidth)

	fmt.Fprintln(c.writer, "")
	fmt.Fprintln(c.writer, c.scheme.Dim.Sprint(line))
	fmt.Fprintf(c.writer, "%s - %s\n",
		c.scheme.Header.Sprint(c.scenarioName),
		statusColor.Sprint(status))
	fmt.Fprintln(c.writer, c.scheme.Dim.Sprint(line))
	fmt.Fprintln(c.writer, "")

	successRate := 0.0
	if snap.TotalSteps > 0 {
		successRate = float64(snap.SuccessSteps) / float64(snap.TotalSteps)
	}
	rateColor := c.scheme.StatusOK
	if successRate < 0.99 {
		rateColor = c.scheme.StatusWarn
	}
	if successRate < 0.95 {
		rateColor = c.scheme.StatusError
	}

	fmt.Fprintf(c.writer, "Duration:      %s\n", c.scheme.Value.Sprint(formatDuration(snap.Elapsed)))
	fmt.Fprintf(c.writer, "Steps:         %s\n", c.scheme.Value.Sprint(formatNumber(snap.TotalSteps)))
	fmt.Fprintf(c.writer, "Success Rate:  %s\n", rateColor.Sprintf("%.1f%%", successRate*100))
	fmt.Fprintf(c.writer, "Throughput:    %s steps/s\n", c.scheme.Value.Sprintf("%.1f", snap.Throughput))
	fmt.Fprintf(c.writer, "Received:      %s\n", c.scheme.Value.Sprint(formatBytes(snap.TotalBytes)))
	fmt.Fprintln(c.writer, "")

	fmt.Fprintln(c.writer, c.scheme.Header.Sprint("Latency Distribution:"))
	fmt.Fprintf(c.writer, "  Min:       %s\n", formatDurationShort(snap.Overall.Min))
	fmt.Fprintf(c.writer, "  P50:       %s\n", formatDurationShort(snap.Overall.P50))
	fmt.Fprintf(c.writer, "  P90:       %s\n", formatDurationShort(snap.Overall.P90))
	fmt.Fprintf(c.writer, "  P95:       %s\n", formatDurationShort(snap.Overall.P95))
	fmt.Fprintf(c.writer, "  P99:       %s\n", formatDurationShort(snap.Overall.P99))
	fmt.Fprintf(c.writer, "  Max:       %s\n", formatDurationShort(snap.Overall.Max))
	fmt.Fprintln(c.writer, "")

	if len(snap.PerStep) > 0 {
		c.printStepTable(snap.PerStep)
	}
}

// printStepTable prints per-step latency rows, widest name first
// deciding the column width, names sorted.
func (c *Console) printStepTable(perStep map[string]metrics.LatencyStats) {
	names := make([]string, 0, len(perStep))
	nameWidth := len("STEP")
	for name := range perStep {
		names = append(names, name)
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
	}
	sort.Strings(names)

	fmt.Fprintln(c.writer, c.scheme.Header.Sprint("Steps:"))
	fmt.Fprintf(c.writer, "  %-*s  %8s  %9s  %9s  %9s  %9s\n",
		nameWidth, "STEP", "COUNT", "P50", "P95", "P99", "MAX")
	for _, name := range names {
		stats := perStep[name]
		fmt.Fprintf(c.writer, "  %-*s  %8s  %9s  %9s  %9s  %9s\n",
			nameWidth, name,
			formatNumber(stats.Count),
			formatDurationShort(stats.P50),
			formatDurationShort(stats.P95),
			formatDurationShort(stats.P99),
			formatDurationShort(stats.Max))
	}
	fmt.Fprintln(c.writer, "")
}

// runStatus maps the final snapshot to a human verdict.
func runStatus(c *Console, snap metrics.Snapshot) (string, *color.Color) {
	switch {
	case snap.SuccessSteps == 0:
		return "Failed " + ErrorIcon(c.noColor), c.scheme.StatusError
	case snap.FailedSteps > 0:
		return "Completed with errors " + WarningIcon(c.noColor), c.scheme.StatusWarn
	default:
		return "Completed " + SuccessIcon(c.noColor), c.scheme.StatusOK
	}
}

// Helper functions

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatDurationShort formats a duration in a short format.
func formatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}

// formatBytes formats a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
