package offline

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/cohort/pkg/logger"
)

// SetupLogging initializes the global logger on stderr so a report written
// to stdout stays clean.
func SetupLogging(verbose bool) error {
	if err := logger.InitWithWriter(os.Stderr, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the offline assignment tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Cohort Offline Assignment
=========================

Assigns the participants of a YAML fixture to projects and writes the
report.

Usage:
  go run ./cmd/assign -in fixture.yaml [options]

Options:
  -in string
        Fixture path (required)
  -out string
        Report path; "-" writes to stdout (default "-")
  -format string
        csv or xlsx (default: from the -out extension, else csv)
  -seed int
        Project shuffle seed (default 1)
  -time-limit duration
        Solver time budget (default 60s)
  -threshold float
        Partner name match threshold in [0,1) (default 0.5)
  -verbose
        Log every placement
  -help
        Show this help message

Examples:
  go run ./cmd/assign -in internal/offline/testdata/fixture.yaml
  go run ./cmd/assign -in fall.yaml -out out/fall.xlsx -seed 42
`)
}
