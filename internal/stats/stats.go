// Package stats contains practice history metrics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/tinytalk/internal/model"
)

const sparkChars = " .:-=+*#%@"

// RunMetrics computes average stars per completed card and the share of the
// deck that was completed.
func RunMetrics(r model.RunAggregate) (starsPerCard, completion float64) {
	if r.Completed > 0 {
		starsPerCard = float64(r.Stars) / float64(r.Completed)
	}
	if r.Cards > 0 {
		completion = float64(r.Completed) / float64(r.Cards)
	}
	return starsPerCard, completion
}

// DetectionRate is the share of attempts on which the microphone heard speech.
func DetectionRate(agg model.WordAggregate) float64 {
	if agg.Attempts == 0 {
		return 0
	}
	return float64(agg.Detected) / float64(agg.Attempts)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary block for runs.
func RenderSummary(w io.Writer, runs []model.RunAggregate) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No practice runs found.")
		return err
	}
	var cards, completed, stars int
	var durationMs int64
	best := 0
	for _, r := range runs {
		cards += r.Cards
		completed += r.Completed
		stars += r.Stars
		durationMs += r.DurationMs
		if r.Stars > best {
			best = r.Stars
		}
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", len(runs)),
		fmt.Sprintf("Cards completed: %d of %d", completed, cards),
		fmt.Sprintf("Stars earned: %d", stars),
		fmt.Sprintf("Best run: %d stars", best),
		fmt.Sprintf("Practice time: %s", formatMinutes(durationMs)),
	}
	if completed > 0 {
		lines = append(lines, fmt.Sprintf("Avg stars per card: %.2f", float64(stars)/float64(completed)))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrends prints sparklines for stars per card and completion across
// runs, smoothed over window runs and fitted to width columns.
func RenderTrends(w io.Writer, runs []model.RunAggregate, window, width int) error {
	if len(runs) < 2 {
		return nil
	}
	stars := make([]float64, len(runs))
	completion := make([]float64, len(runs))
	for i, r := range runs {
		stars[i], completion[i] = RunMetrics(r)
		completion[i] *= 100
	}
	stars = MovingAverage(stars, window)
	completion = MovingAverage(completion, window)

	series := []struct {
		name   string
		values []float64
		format string
	}{
		{name: "Stars/card", values: stars, format: "%.2f"},
		{name: "Completion", values: completion, format: "%.0f%%"},
	}
	labelWidth := 0
	for _, s := range series {
		if l := displayWidth(s.name); l > labelWidth {
			labelWidth = l
		}
	}
	// label, two spaces, sparkline, two spaces, "last" figure
	lineWidth := SparkWidthFor(width, labelWidth+12)

	if _, err := fmt.Fprintln(w, "Trends"); err != nil {
		return err
	}
	for _, s := range series {
		values := Resample(s.values, lineWidth)
		last := fmt.Sprintf(s.format, s.values[len(s.values)-1])
		line := fmt.Sprintf("%s  %s  %s", padCell(s.name, labelWidth, false), Sparkline(values), last)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderWordTable prints per-word aggregates, hardest words first.
func RenderWordTable(w io.Writer, aggs []model.WordAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No word stats found.")
		return err
	}
	rows := make([]model.WordAggregate, len(aggs))
	copy(rows, aggs)
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := DetectionRate(rows[i]), DetectionRate(rows[j])
		if ri == rj {
			return rows[i].WordID < rows[j].WordID
		}
		return ri < rj
	})

	if _, err := fmt.Fprintln(w, "Per-Word"); err != nil {
		return err
	}
	headers := []string{"Word", "Cards", "Attempts", "Heard", "Helped", "Skipped", "Avg Stars", "Avg Volume", "Avg Speech (s)"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		completed := r.Cards - r.Skipped
		avgStars := 0.0
		if completed > 0 {
			avgStars = float64(r.Stars) / float64(completed)
		}
		avgVol := 0.0
		avgSpeech := 0.0
		if r.Cards > 0 {
			avgVol = r.VolumeSum / float64(r.Cards)
			avgSpeech = float64(r.SpeechSumMs) / float64(r.Cards) / 1000
		}
		tableRows = append(tableRows, []string{
			r.Word,
			fmt.Sprintf("%d", r.Cards),
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%.0f%%", DetectionRate(r)*100),
			fmt.Sprintf("%d", r.Forced),
			fmt.Sprintf("%d", r.Skipped),
			fmt.Sprintf("%.2f", avgStars),
			fmt.Sprintf("%.3f", avgVol),
			fmt.Sprintf("%.1f", avgSpeech),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func formatMinutes(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%dm%02ds", total/60, total%60)
}
