package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// ErrNotFound means a record has never been written.
var ErrNotFound = errors.New("record not found")

// Record keys.
const (
	KeyUsage      = "antiaddiction"
	KeySettings   = "settings"
	KeyRewards    = "rewards"
	KeyRatingMode = "rating_mode"
)

type kv interface {
	get(key string) (string, error)
	put(key, value string) error
}

// records maps the typed records onto JSON values in a key-value table.
type records struct {
	kv kv
}

func (r records) load(key string, dst any) error {
	raw, err := r.kv.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r records) store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.put(key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Usage returns the stored usage counters as written, without rollover.
func (r records) Usage() (model.UsageCounters, error) {
	var c model.UsageCounters
	err := r.load(KeyUsage, &c)
	return c, err
}

func (r records) SaveUsage(c model.UsageCounters) error {
	return r.store(KeyUsage, c)
}

// Settings returns the stored settings merged over the defaults.
func (r records) Settings() (model.GateSettings, error) {
	s := model.DefaultGateSettings()
	if err := r.load(KeySettings, &s); err != nil {
		return model.DefaultGateSettings(), err
	}
	def := model.DefaultGateSettings()
	if s.SessionLimitMinutes <= 0 {
		s.SessionLimitMinutes = def.SessionLimitMinutes
	}
	if s.DailyLimitMinutes <= 0 {
		s.DailyLimitMinutes = def.DailyLimitMinutes
	}
	if s.CooldownMinutes <= 0 {
		s.CooldownMinutes = def.CooldownMinutes
	}
	if s.ReminderIntervalSeconds <= 0 {
		s.ReminderIntervalSeconds = def.ReminderIntervalSeconds
	}
	return s, nil
}

func (r records) SaveSettings(s model.GateSettings) error {
	return r.store(KeySettings, s)
}

func (r records) Rewards() (model.RewardsLedger, error) {
	var l model.RewardsLedger
	err := r.load(KeyRewards, &l)
	return l, err
}

func (r records) SaveRewards(l model.RewardsLedger) error {
	return r.store(KeyRewards, l)
}

// RatingMode returns the stored mode, or an error for unknown values.
func (r records) RatingMode() (model.RatingMode, error) {
	var s string
	if err := r.load(KeyRatingMode, &s); err != nil {
		return model.DefaultRatingMode, err
	}
	mode, err := model.ParseRatingMode(s)
	if err != nil {
		return model.DefaultRatingMode, fmt.Errorf("decode %s: %w", KeyRatingMode, err)
	}
	return mode, nil
}

func (r records) SaveRatingMode(m model.RatingMode) error {
	if _, err := model.ParseRatingMode(string(m)); err != nil {
		return err
	}
	return r.store(KeyRatingMode, string(m))
}
