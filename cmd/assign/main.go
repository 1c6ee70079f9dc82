package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/offline"
	"github.com/okian/cohort/pkg/logger"
)

// Default configuration constants.
const (
	defaultSeed      = 1
	defaultThreshold = 0.5
)

func main() {
	var (
		in        = flag.String("in", "", "Fixture path")
		out       = flag.String("out", "-", "Report path; - writes to stdout")
		format    = flag.String("format", "", "Report format: csv or xlsx")
		seed      = flag.Int64("seed", defaultSeed, "Project shuffle seed")
		timeLimit = flag.Duration("time-limit", assignment.DefaultTimeLimit, "Solver time budget")
		threshold = flag.Float64("threshold", defaultThreshold, "Partner name match threshold")
		verbose   = flag.Bool("verbose", false, "Log every placement")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		offline.ShowHelp(os.Stdout)
		return
	}

	if err := offline.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &offline.Config{
		In:        *in,
		Out:       *out,
		Format:    *format,
		Seed:      *seed,
		TimeLimit: *timeLimit,
		Threshold: *threshold,
		Verbose:   *verbose,
	}
	if _, err := offline.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "offline assignment failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
