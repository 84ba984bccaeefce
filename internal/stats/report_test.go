package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tinytalk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		run := model.RunRecord{
			StartedAt:  start,
			EndedAt:    end,
			Mode:       model.RatingStandard,
			Cards:      2,
			Completed:  2,
			Finished:   true,
			Stars:      5,
			DurationMs: end.Sub(start).Milliseconds(),
		}
		cards := []model.CardResult{
			{WordID: "w001", Word: "汪汪", Attempts: 1, Detected: true, Stars: 3},
			{WordID: "w002", Word: "喵喵", Attempts: 3, Forced: true, Stars: 2},
		}
		id, err := st.InsertRun(ctx, run, cards)
		if err != nil {
			t.Fatalf("insert run: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.HistoryFilter{Last: 2}, 1)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(report.Runs))
	}
	if report.Runs[0].RunID != ids[1] || report.Runs[1].RunID != ids[2] {
		t.Fatalf("unexpected run ids: %+v", report.Runs)
	}
	if len(report.WindowRunIDs) != 1 || report.WindowRunIDs[0] != ids[2] {
		t.Fatalf("unexpected window run ids: %v", report.WindowRunIDs)
	}
	if len(report.WordsAll) != 2 {
		t.Fatalf("expected 2 words across runs, got %d", len(report.WordsAll))
	}
	for _, agg := range report.WordsAll {
		if agg.Cards != 2 {
			t.Fatalf("expected 2 cards per word over two runs, got %+v", agg)
		}
	}
	for _, agg := range report.WordsWindow {
		if agg.Cards != 1 {
			t.Fatalf("expected 1 card per word in window, got %+v", agg)
		}
	}
}

func TestBuildReportMemory(t *testing.T) {
	mem := store.NewMemory()
	report, err := BuildReport(context.Background(), mem, model.HistoryFilter{}, 5)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 0 || len(report.WordsAll) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
