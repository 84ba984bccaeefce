package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/speech"
	"github.com/verte-zerg/tinytalk/internal/stats"
)

const defaultStatsWindow = 5

var (
	statsSince  string
	statsLast   int
	statsWindow int
	statsWeak   int
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window")
	cmd.Flags().IntVar(&statsWeak, "weak", defaultWeakTop, "number of weak words to list (0 = none)")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeQuietly(st, "db")

	filter := model.HistoryFilter{Since: sinceTime, Last: statsLast}
	report, err := stats.BuildReport(context.Background(), st, filter, statsWindow)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Runs); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Runs) == 0 {
		return nil
	}
	if err := stats.RenderTrends(out, report.Runs, statsWindow, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderWordTable(out, report.WordsAll); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if statsWeak > 0 {
		weak := stats.SelectWeakWords(report.WordsWindow, statsWeak)
		if len(weak) > 0 {
			if _, err := fmt.Fprintf(out, "\nWeak words (last %d runs): %s\n", statsWindow, weakWordList(report.WordsWindow, weak)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

// weakWordList names the weak words, sorted.
func weakWordList(aggs []model.WordAggregate, weak map[string]struct{}) string {
	names := make([]string, 0, len(weak))
	for _, agg := range aggs {
		if _, ok := weak[agg.WordID]; ok {
			names = append(names, agg.Word)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and the speech engine",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	speaker, err := speech.Detect(speech.Options{Engine: defaultEngine}, nil)
	status := speech.Describe(speaker)
	if err != nil {
		status += " (no engine found)"
	}
	if _, err := fmt.Fprintf(out, "speech: %s\n", status); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("failed to open audio backend: %w", err)
	}
	defer ctx.Close()
	devices, err := ctx.Devices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		logErrln("No capture devices found.")
		return nil
	}
	for _, d := range devices {
		if _, err := fmt.Fprintf(out, "%s\t%s\n", d.ID, d.Name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
