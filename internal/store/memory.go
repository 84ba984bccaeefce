package store

import (
	"context"
	"sort"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// Memory is an in-process repository with the same record semantics as
// Store. Writes can be made to fail to exercise fallback paths.
type Memory struct {
	records
	data map[string]string

	// FailWrites makes every record write return this error.
	FailWrites error

	runs  []memoryRun
	Reads int
}

type memoryRun struct {
	id    int64
	run   model.RunRecord
	cards []model.CardResult
}

func NewMemory() *Memory {
	m := &Memory{data: map[string]string{}}
	m.records = records{kv: memoryKV{m: m}}
	return m
}

// SetRaw stores a raw value, bypassing encoding.
func (m *Memory) SetRaw(key, value string) {
	m.data[key] = value
}

// Raw returns the raw stored value.
func (m *Memory) Raw(key string) (string, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Reset() error {
	m.data = map[string]string{}
	m.runs = nil
	return nil
}

type memoryKV struct {
	m *Memory
}

func (k memoryKV) get(key string) (string, error) {
	k.m.Reads++
	v, ok := k.m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (k memoryKV) put(key, value string) error {
	if k.m.FailWrites != nil {
		return k.m.FailWrites
	}
	k.m.data[key] = value
	return nil
}

func (m *Memory) InsertRun(_ context.Context, run model.RunRecord, cards []model.CardResult) (int64, error) {
	id := int64(len(m.runs) + 1)
	m.runs = append(m.runs, memoryRun{id: id, run: run, cards: append([]model.CardResult(nil), cards...)})
	return id, nil
}

// Runs returns the inserted run records in insertion order.
func (m *Memory) Runs() []model.RunRecord {
	out := make([]model.RunRecord, len(m.runs))
	for i, r := range m.runs {
		out[i] = r.run
	}
	return out
}

// Cards returns the card results stored for the run with the given id.
func (m *Memory) Cards(id int64) []model.CardResult {
	for _, r := range m.runs {
		if r.id == id {
			return r.cards
		}
	}
	return nil
}

func (m *Memory) ListRuns(_ context.Context, filter model.HistoryFilter) ([]model.RunAggregate, error) {
	var out []model.RunAggregate
	for _, r := range m.runs {
		if filter.Since != nil && r.run.EndedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, model.RunAggregate{
			RunID:      r.id,
			EndedAt:    r.run.EndedAt,
			Cards:      r.run.Cards,
			Completed:  r.run.Completed,
			Stars:      r.run.Stars,
			DurationMs: r.run.DurationMs,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.Before(out[j].EndedAt) })
	if filter.Last > 0 && len(out) > filter.Last {
		out = out[len(out)-filter.Last:]
	}
	return out, nil
}

func (m *Memory) WordAggregates(_ context.Context, runIDs []int64) ([]model.WordAggregate, error) {
	want := map[int64]bool{}
	for _, id := range runIDs {
		want[id] = true
	}
	var selected []memoryRun
	for _, r := range m.runs {
		if want[r.id] {
			selected = append(selected, r)
		}
	}
	return aggregateCards(selected), nil
}

func (m *Memory) RecentWordAggregates(_ context.Context, window int) ([]model.WordAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	runs := append([]memoryRun(nil), m.runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].run.EndedAt.After(runs[j].run.EndedAt) })
	if len(runs) > window {
		runs = runs[:window]
	}
	return aggregateCards(runs), nil
}

func aggregateCards(runs []memoryRun) []model.WordAggregate {
	index := map[string]int{}
	var out []model.WordAggregate
	for _, r := range runs {
		for _, c := range r.cards {
			i, ok := index[c.WordID]
			if !ok {
				i = len(out)
				index[c.WordID] = i
				out = append(out, model.WordAggregate{WordID: c.WordID, Word: c.Word})
			}
			agg := &out[i]
			agg.Cards++
			agg.Attempts += c.Attempts
			agg.Detected += boolInt(c.Detected)
			agg.Forced += boolInt(c.Forced)
			agg.Skipped += boolInt(c.Skipped)
			agg.Stars += c.Stars
			agg.VolumeSum += c.AverageVolume
			agg.SpeechSumMs += c.DurationMs
		}
	}
	return out
}
