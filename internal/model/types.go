// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout formats the calendar-day keys stored with daily counters.
const DateLayout = "2006-01-02"

// DateKey returns the local calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// UsageCounters tracks today's screen time.
type UsageCounters struct {
	TodayUsedSeconds int        `json:"todayUsedSeconds"`
	LastDate         string     `json:"lastDate"`
	LastSessionEnd   *time.Time `json:"lastSessionEnd"`
	ParentUnlocked   bool       `json:"parentUnlocked"`
}

// GateSettings holds the screen-time limits.
type GateSettings struct {
	SessionLimitMinutes     int `json:"sessionLimit"`
	DailyLimitMinutes       int `json:"dailyLimit"`
	CooldownMinutes         int `json:"cooldownTime"`
	ReminderIntervalSeconds int `json:"reminderInterval"`
}

// DefaultGateSettings returns the limits used when nothing is stored.
func DefaultGateSettings() GateSettings {
	return GateSettings{
		SessionLimitMinutes:     8,
		DailyLimitMinutes:       30,
		CooldownMinutes:         20,
		ReminderIntervalSeconds: 3,
	}
}

// SettingsPatch updates a subset of GateSettings. Nil fields are kept.
type SettingsPatch struct {
	SessionLimitMinutes     *int
	DailyLimitMinutes       *int
	CooldownMinutes         *int
	ReminderIntervalSeconds *int
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.SessionLimitMinutes == nil && p.DailyLimitMinutes == nil &&
		p.CooldownMinutes == nil && p.ReminderIntervalSeconds == nil
}

// Apply returns s with the patch applied and validated.
func (p SettingsPatch) Apply(s GateSettings) (GateSettings, error) {
	if err := positive("session limit", p.SessionLimitMinutes); err != nil {
		return s, err
	}
	if err := positive("daily limit", p.DailyLimitMinutes); err != nil {
		return s, err
	}
	if err := positive("cooldown", p.CooldownMinutes); err != nil {
		return s, err
	}
	if err := positive("reminder interval", p.ReminderIntervalSeconds); err != nil {
		return s, err
	}
	if p.SessionLimitMinutes != nil {
		s.SessionLimitMinutes = *p.SessionLimitMinutes
	}
	if p.DailyLimitMinutes != nil {
		s.DailyLimitMinutes = *p.DailyLimitMinutes
	}
	if p.CooldownMinutes != nil {
		s.CooldownMinutes = *p.CooldownMinutes
	}
	if p.ReminderIntervalSeconds != nil {
		s.ReminderIntervalSeconds = *p.ReminderIntervalSeconds
	}
	return s, nil
}

func positive(name string, v *int) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be > 0", name)
	}
	return nil
}

// RewardsLedger stores earned stars and unlocked achievements.
type RewardsLedger struct {
	TotalStars   int      `json:"totalStars"`
	TodayStars   int      `json:"todayStars"`
	LastDate     string   `json:"lastDate"`
	Achievements []string `json:"achievements"`
}

// RatingMode selects how strictly attempts are graded.
type RatingMode string

const (
	RatingEasy     RatingMode = "easy"
	RatingStandard RatingMode = "standard"
	RatingStrict   RatingMode = "strict"
)

// DefaultRatingMode is used when no mode is stored.
const DefaultRatingMode = RatingEasy

// RatingModes lists the modes in cycling order.
var RatingModes = []RatingMode{RatingEasy, RatingStandard, RatingStrict}

// ParseRatingMode validates a mode name.
func ParseRatingMode(s string) (RatingMode, error) {
	mode := RatingMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range RatingModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown rating mode %q (want easy, standard or strict)", s)
}

// Next returns the mode after m in cycling order.
func (m RatingMode) Next() RatingMode {
	for i, v := range RatingModes {
		if v == m {
			return RatingModes[(i+1)%len(RatingModes)]
		}
	}
	return DefaultRatingMode
}

// Word is one practice card.
type Word struct {
	ID       string `toml:"id"`
	Category string `toml:"category"`
	Text     string `toml:"word"`
	Pinyin   string `toml:"pinyin"`
	Prompt   string `toml:"prompt"`
	Emoji    string `toml:"emoji"`
}

// Story is read aloud paragraph by paragraph.
type Story struct {
	ID         string   `toml:"id"`
	Title      string   `toml:"title"`
	Art        string   `toml:"art"`
	Difficulty string   `toml:"difficulty"`
	Paragraphs []string `toml:"paragraphs"`
	Moral      string   `toml:"moral"`
}

// Rhyme is read aloud line by line.
type Rhyme struct {
	ID         string   `toml:"id"`
	Title      string   `toml:"title"`
	Art        string   `toml:"art"`
	Difficulty string   `toml:"difficulty"`
	HasActions bool     `toml:"has_actions"`
	Lines      []string `toml:"lines"`
}

// Phrases holds the spoken feedback lines.
type Phrases struct {
	ChildName     string   `toml:"child_name"`
	Praise        []string `toml:"praise"`
	Encouragement []string `toml:"encouragement"`
	Reminder      string   `toml:"reminder"`
	MoralPrefix   string   `toml:"moral_prefix"`
	Greeting      string   `toml:"greeting"`
	Follow        string   `toml:"follow"`
	FollowOK      string   `toml:"follow_ok"`
	FollowRetry   string   `toml:"follow_retry"`
	FollowDone    string   `toml:"follow_done"`
}

// ReminderFor renders the reminder line for a word.
func (p Phrases) ReminderFor(word string) string {
	r := strings.ReplaceAll(p.Reminder, "{name}", p.ChildName)
	return strings.ReplaceAll(r, "{word}", word)
}

// FollowFor renders the follow-along prompt for a rhyme line.
func (p Phrases) FollowFor(line string) string {
	return strings.ReplaceAll(p.Follow, "{line}", line)
}

// RunRecord captures a finished or abandoned training run.
type RunRecord struct {
	StartedAt  time.Time
	EndedAt    time.Time
	Mode       RatingMode
	Cards      int
	Completed  int
	Finished   bool
	Stars      int
	DurationMs int64
}

// CardResult stores the outcome of one card in a run.
type CardResult struct {
	WordID        string
	Word          string
	Attempts      int
	Detected      bool
	Forced        bool
	Skipped       bool
	Stars         int
	AverageVolume float64
	DurationMs    int64
}

// RunAggregate summarizes a run for reporting.
type RunAggregate struct {
	RunID      int64
	EndedAt    time.Time
	Cards      int
	Completed  int
	Stars      int
	DurationMs int64
}

// WordAggregate aggregates card results across runs.
type WordAggregate struct {
	WordID      string
	Word        string
	Cards       int
	Attempts    int
	Detected    int
	Forced      int
	Skipped     int
	Stars       int
	VolumeSum   float64
	SpeechSumMs int64
}

// HistoryFilter narrows run history queries.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}
