package stats

import (
	"context"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// History is the run history the report reads from.
type History interface {
	ListRuns(ctx context.Context, filter model.HistoryFilter) ([]model.RunAggregate, error)
	WordAggregates(ctx context.Context, runIDs []int64) ([]model.WordAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs         []model.RunAggregate
	WindowRunIDs []int64
	WordsAll     []model.WordAggregate
	WordsWindow  []model.WordAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, h History, filter model.HistoryFilter, window int) (Report, error) {
	runs, err := h.ListRuns(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	windowIDs := lastRunIDs(runs, window)
	all, err := h.WordAggregates(ctx, runIDs(runs))
	if err != nil {
		return Report{}, err
	}
	recent, err := h.WordAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Runs:         runs,
		WindowRunIDs: windowIDs,
		WordsAll:     all,
		WordsWindow:  recent,
	}, nil
}

func runIDs(runs []model.RunAggregate) []int64 {
	ids := make([]int64, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	return ids
}

func lastRunIDs(runs []model.RunAggregate, window int) []int64 {
	if window <= 0 || len(runs) <= window {
		return runIDs(runs)
	}
	return runIDs(runs[len(runs)-window:])
}
