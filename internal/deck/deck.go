// Package deck builds the card sequence for a training run.
package deck

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// Dealer draws cards from a word table.
type Dealer struct {
	rnd *rand.Rand
}

// New returns a Dealer seeded with the current time.
func New() *Dealer {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand returns a Dealer drawing from rnd.
func NewWithRand(rnd *rand.Rand) *Dealer {
	return &Dealer{rnd: rnd}
}

// Shuffle returns a Fisher-Yates shuffled copy of words.
func (d *Dealer) Shuffle(words []model.Word) []model.Word {
	out := make([]model.Word, len(words))
	copy(out, words)
	for i := len(out) - 1; i > 0; i-- {
		j := d.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal returns count shuffled cards without repeats. A count outside
// (0, len(words)] deals the whole table.
func (d *Dealer) Deal(words []model.Word, count int) []model.Word {
	out := d.Shuffle(words)
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}

// DealWeighted draws count cards without repeats, favouring words in weak.
// Each weak word weighs 1+factor, everything else weighs 1.
func (d *Dealer) DealWeighted(words []model.Word, count int, weak map[string]struct{}, factor float64) []model.Word {
	if len(weak) == 0 || factor <= 0 {
		return d.Deal(words, count)
	}
	if count <= 0 || count > len(words) {
		count = len(words)
	}
	pool := make([]model.Word, len(words))
	copy(pool, words)
	weights := make([]float64, len(pool))
	total := 0.0
	for i, w := range pool {
		weight := 1.0
		if _, ok := weak[w.ID]; ok {
			weight += factor
		}
		weights[i] = weight
		total += weight
	}

	result := make([]model.Word, 0, count)
	for len(result) < count {
		r := d.rnd.Float64() * total
		acc := 0.0
		idx := len(pool) - 1
		for j, w := range weights {
			acc += w
			if r < acc {
				idx = j
				break
			}
		}
		result = append(result, pool[idx])
		total -= weights[idx]
		last := len(pool) - 1
		pool[idx], weights[idx] = pool[last], weights[last]
		pool, weights = pool[:last], weights[:last]
	}
	return result
}
