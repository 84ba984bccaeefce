// Package rewards keeps the star ledger and achievement badges.
package rewards

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/store"
)

// Achievement is a badge unlocked by lifetime stars.
type Achievement struct {
	ID    string
	Name  string
	Emoji string
	Stars int
}

// Achievements lists every badge in unlock order.
var Achievements = []Achievement{
	{ID: "first", Name: "第一次开口", Emoji: "🎤", Stars: 1},
	{ID: "five", Name: "说了5个词", Emoji: "⭐", Stars: 5},
	{ID: "ten", Name: "说了10个词", Emoji: "🌟", Stars: 10},
	{ID: "twenty", Name: "小小演说家", Emoji: "🎉", Stars: 20},
	{ID: "fifty", Name: "语言小天才", Emoji: "🏆", Stars: 50},
}

// Repository persists the ledger.
type Repository interface {
	Rewards() (model.RewardsLedger, error)
	SaveRewards(model.RewardsLedger) error
}

type Ledger struct {
	repo Repository
	now  func() time.Time
	log  zerolog.Logger
}

func NewLedger(repo Repository, now func() time.Time, log zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, now: now, log: log}
}

// Load returns the ledger with today's stars reset on a new day.
func (l *Ledger) Load() model.RewardsLedger {
	data, err := l.repo.Rewards()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.log.Warn().Err(err).Msg("read rewards, starting fresh")
		}
		data = model.RewardsLedger{}
	}
	today := model.DateKey(l.now())
	if data.LastDate != today {
		data.TodayStars = 0
		data.LastDate = today
	}
	return data
}

// Credit adds n stars and returns the achievements unlocked by this credit.
func (l *Ledger) Credit(n int) (model.RewardsLedger, []Achievement, error) {
	data := l.Load()
	if n <= 0 {
		return data, nil, nil
	}
	data.TotalStars += n
	data.TodayStars += n

	var unlocked []Achievement
	for _, a := range Achievements {
		if data.TotalStars >= a.Stars && !has(data.Achievements, a.ID) {
			data.Achievements = append(data.Achievements, a.ID)
			unlocked = append(unlocked, a)
		}
	}
	if err := l.repo.SaveRewards(data); err != nil {
		return data, unlocked, fmt.Errorf("save rewards: %w", err)
	}
	l.log.Info().Int("stars", n).Int("total", data.TotalStars).Int("unlocked", len(unlocked)).Msg("rewards credited")
	return data, unlocked, nil
}

// Unlocked reports whether the ledger has reached a's threshold.
func Unlocked(data model.RewardsLedger, a Achievement) bool {
	return data.TotalStars >= a.Stars
}

// Next returns the first achievement not yet reached, if any.
func Next(data model.RewardsLedger) (Achievement, bool) {
	for _, a := range Achievements {
		if !Unlocked(data, a) {
			return a, true
		}
	}
	return Achievement{}, false
}

func has(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
