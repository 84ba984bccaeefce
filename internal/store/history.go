package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// InsertRun stores a training run and its per-card results.
func (s *Store) InsertRun(ctx context.Context, run model.RunRecord, cards []model.CardResult) (runID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, ended_at, mode, cards, completed, finished, stars, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		string(run.Mode),
		run.Cards,
		run.Completed,
		boolInt(run.Finished),
		run.Stars,
		run.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(cards) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_cards (run_id, position, word_id, word, attempts, detected, forced, skipped, stars, avg_volume, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, c := range cards {
			if _, err := stmt.ExecContext(ctx, id, i, c.WordID, c.Word, c.Attempts,
				boolInt(c.Detected), boolInt(c.Forced), boolInt(c.Skipped),
				c.Stars, c.AverageVolume, c.DurationMs); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns run aggregates in chronological order.
func (s *Store) ListRuns(ctx context.Context, filter model.HistoryFilter) ([]model.RunAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, cards, completed, stars, duration_ms
		FROM runs
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunAggregate
	for rows.Next() {
		var agg model.RunAggregate
		var endedAt string
		if err := rows.Scan(&agg.RunID, &endedAt, &agg.Cards, &agg.Completed, &agg.Stars, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		runs = append(runs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(runs) > filter.Last {
		runs = runs[len(runs)-filter.Last:]
	}
	return runs, nil
}

const wordAggregateColumns = `word_id, MAX(word), COUNT(*), SUM(attempts), SUM(detected),
	SUM(forced), SUM(skipped), SUM(stars), SUM(avg_volume), SUM(duration_ms)`

// WordAggregates aggregates per-word results across the given runs.
func (s *Store) WordAggregates(ctx context.Context, runIDs []int64) ([]model.WordAggregate, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s
		FROM run_cards
		WHERE run_id IN (%s)
		GROUP BY word_id`, wordAggregateColumns, strings.Join(placeholders, ","))
	return s.queryWordAggregates(ctx, query, args...)
}

// RecentWordAggregates aggregates per-word results over the most recent
// window runs.
func (s *Store) RecentWordAggregates(ctx context.Context, window int) ([]model.WordAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`WITH recent_runs AS (
		SELECT id FROM runs
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT %s
	FROM run_cards rc
	JOIN recent_runs r ON r.id = rc.run_id
	GROUP BY word_id`, wordAggregateColumns)
	return s.queryWordAggregates(ctx, query, window)
}

func (s *Store) queryWordAggregates(ctx context.Context, query string, args ...any) ([]model.WordAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.WordAggregate
	for rows.Next() {
		var agg model.WordAggregate
		if err := rows.Scan(&agg.WordID, &agg.Word, &agg.Cards, &agg.Attempts, &agg.Detected,
			&agg.Forced, &agg.Skipped, &agg.Stars, &agg.VolumeSum, &agg.SpeechSumMs); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
