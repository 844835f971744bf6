package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/riposte/internal/config"
	"github.com/wesleyorama2/riposte/internal/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file without running it",
	Long: `Check a scenario file against the schema and the structural rules:
required fields, method and field-type enums, extraction patterns, and
step shapes. Exits non-zero when the file is invalid.

Usage:
  riposte validate -f scenario.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		validateScenario(cmd, args)
	},
}

func validateScenario(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg, err := loadValidated(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", output.ErrorIcon(noColor), err)
		os.Exit(1)
	}

	steps := countRequests(cfg.Steps)
	fmt.Printf("%s %s is valid (%d request", output.SuccessIcon(noColor), file, steps)
	if steps != 1 {
		fmt.Print("s")
	}
	fmt.Println(")")
}

// countRequests counts request steps across the whole step tree.
func countRequests(steps []config.StepConfig) int {
	n := 0
	for _, step := range steps {
		switch {
		case step.Request != nil:
			n++
		case step.ForEach != nil:
			n += countRequests(step.ForEach.Steps)
		case step.Loop != nil:
			n += countRequests(step.Loop.Steps)
		}
	}
	return n
}

func init() {
	validateCmd.Flags().StringP("file", "f", "", "Scenario file (YAML or JSON)")
	validateCmd.Flags().Bool("no-color", false, "Disable colored output")
	validateCmd.MarkFlagRequired("file")
}
