// Package rating grades a detected attempt with one to three stars.
package rating

import (
	"time"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// Result is the grade shown after an attempt.
type Result struct {
	Stars    int
	Feedback string
}

const (
	feedbackGreat  = "太棒了！"
	feedbackGood   = "很好！"
	feedbackNotBad = "不错！"
	feedbackKeepGo = "加油！"
	feedbackLouder = "再大声点！"
)

type thresholds struct {
	threeVolume float64
	threeDur    time.Duration
	twoVolume   float64
	twoDur      time.Duration
	two, one    string
}

var graded = map[model.RatingMode]thresholds{
	model.RatingStandard: {
		threeVolume: 0.15, threeDur: 800 * time.Millisecond,
		twoVolume: 0.08, twoDur: 500 * time.Millisecond,
		two: feedbackGood, one: feedbackKeepGo,
	},
	model.RatingStrict: {
		threeVolume: 0.25, threeDur: 1200 * time.Millisecond,
		twoVolume: 0.15, twoDur: 800 * time.Millisecond,
		two: feedbackNotBad, one: feedbackLouder,
	},
}

// Full is the grade given in easy mode and for forced successes.
func Full() Result {
	return Result{Stars: 3, Feedback: feedbackGreat}
}

// Calculate grades an attempt. Easy and unknown modes always give three stars.
func Calculate(volume float64, duration time.Duration, mode model.RatingMode) Result {
	t, ok := graded[mode]
	if !ok {
		return Full()
	}
	volume = min(max(volume, 0), 1)
	switch {
	case volume >= t.threeVolume && duration >= t.threeDur:
		return Full()
	case volume >= t.twoVolume && duration >= t.twoDur:
		return Result{Stars: 2, Feedback: t.two}
	default:
		return Result{Stars: 1, Feedback: t.one}
	}
}
