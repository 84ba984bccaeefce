package stats

import (
	"os"

	"golang.org/x/term"
)

const (
	minSparkWidth       = 8
	terminalWidthBackup = 80
)

// TerminalWidth returns the width of stdout, or a fallback when stdout is not
// a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// SparkWidthFor computes the sparkline width that fits next to reserved
// columns of labels within totalWidth.
func SparkWidthFor(totalWidth, reserved int) int {
	if totalWidth <= 0 {
		totalWidth = terminalWidthBackup
	}
	w := totalWidth - reserved
	if w < minSparkWidth {
		w = minSparkWidth
	}
	return w
}

// Resample fits values into width points. Longer series are averaged per
// bucket; shorter series are returned unchanged.
func Resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}
