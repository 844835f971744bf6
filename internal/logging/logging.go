// Package logging configures the process-wide logger. Runs log
// lifecycle events at info and per-step detail at debug; step failures
// are data (they go to the results sink), so they never log above
// debug.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Options controls logger construction.
type Options struct {
	// Verbose enables debug-level output.
	Verbose bool
	// JSON switches to the JSON formatter for machine-readable logs.
	JSON bool
	// Output overrides the destination (stderr when nil).
	Output io.Writer
}

// New builds a configured logrus logger.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		forceColors := false
		if f, ok := out.(*os.File); ok {
			forceColors = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
			ForceColors:     forceColors,
		})
	}

	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}
