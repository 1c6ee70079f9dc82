// Package offline solves a problem fixture without the HTTP service and
// writes the report to a file.
package offline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/domain/matching"
	"github.com/okian/cohort/internal/domain/report"
	"github.com/okian/cohort/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0640
)

// Run executes one offline assignment and writes its report.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("offline")

	format, err := config.format()
	if err != nil {
		return nil, err
	}
	if config.In == "" {
		return nil, fmt.Errorf("%w: missing fixture path", ErrUsage)
	}

	log.Info(ctx, "starting offline assignment",
		logger.String("in", config.In),
		logger.String("out", config.Out),
		logger.String("format", format),
		logger.Int64("seed", config.Seed),
		logger.Duration("timeLimit", config.TimeLimit),
	)

	// Step 1: Load the fixture
	fx, err := LoadFixture(config.In)
	if err != nil {
		return nil, err
	}
	participants, projects, err := fx.Problem()
	if err != nil {
		return nil, err
	}

	// Step 2: Solve
	opts := []assignment.Option{
		assignment.WithTimeLimit(config.TimeLimit),
		assignment.WithLogger(log.Named("engine")),
	}
	if config.Threshold > 0 {
		opts = append(opts, assignment.WithResolver(matching.NewFuzzyResolver(matching.WithThreshold(config.Threshold))))
	}
	engine := assignment.New(opts...)
	pb, err := engine.Prepare(participants, projects, config.Seed)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	res, err := engine.Solve(ctx, pb)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	stats.Participants = len(pb.Managers) + len(pb.Engineers)
	stats.Projects = len(pb.Projects)
	stats.Status = res.Status.String()
	if !res.Succeeded() {
		return stats, fmt.Errorf("%w: status %s", ErrNoSolution, res.Status)
	}
	stats.Objective = res.Objective
	stats.Summary = res.Summary

	// Step 3: Write the report
	rows := report.Build(pb, res.Assignment)
	if err := writeReport(config.Out, format, rows); err != nil {
		return stats, err
	}
	if config.Verbose {
		for _, r := range rows {
			log.Info(ctx, "placement", logger.String("name", r.Name), logger.String("project", r.Project))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func writeReport(out, format string, rows []report.Row) error {
	write := report.WriteCSV
	if format == FormatXLSX {
		write = report.WriteXLSX
	}
	if out == "" || out == "-" {
		return write(os.Stdout, rows)
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportPermission)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := write(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "offline assignment completed",
		logger.String("status", stats.Status),
		logger.Int64("objective", stats.Objective),
		logger.Int("participants", stats.Participants),
		logger.Int("projects", stats.Projects),
		logger.Int("firstChoice", stats.Summary.FirstChoice),
		logger.Int("secondChoice", stats.Summary.SecondChoice),
		logger.Int("thirdChoice", stats.Summary.ThirdChoice),
		logger.Int("noChoice", stats.Summary.NoChoice),
		logger.Int("partnerMatches", stats.Summary.PartnerMatches),
		logger.Duration("duration", stats.Duration),
	)
}
