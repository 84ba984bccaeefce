package stats

import (
	"sort"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// SelectWeakWords returns the ids of the top words with the lowest detection
// rate. Words never attempted are ignored.
func SelectWeakWords(aggs []model.WordAggregate, top int) map[string]struct{} {
	weak := map[string]struct{}{}
	candidates := make([]model.WordAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Attempts > 0 {
			candidates = append(candidates, agg)
		}
	}
	if len(candidates) == 0 {
		return weak
	}
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := DetectionRate(candidates[i]), DetectionRate(candidates[j])
		if ri == rj {
			return candidates[i].WordID < candidates[j].WordID
		}
		return ri < rj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, c := range candidates[:top] {
		weak[c.WordID] = struct{}{}
	}
	return weak
}
