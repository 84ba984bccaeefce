// Package vad turns microphone amplitude into speech attempts.
package vad

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/loop"
)

type Config struct {
	// MinDuration of sustained sound before an attempt counts as detected.
	MinDuration     time.Duration
	VolumeThreshold float64
	// MaxDuration caps a recording regardless of input.
	MaxDuration time.Duration
	// SilenceTimeout stops a recording once speech has begun and nothing
	// crossed the threshold for this long.
	SilenceTimeout time.Duration
	FrameInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinDuration:     400 * time.Millisecond,
		VolumeThreshold: 0.05,
		MaxDuration:     6 * time.Second,
		SilenceTimeout:  2 * time.Second,
		FrameInterval:   16 * time.Millisecond,
	}
}

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// StopReason records what ended a recording.
type StopReason int

const (
	StopManual StopReason = iota
	StopSilence
	StopMaxDuration
)

func (r StopReason) String() string {
	switch r {
	case StopSilence:
		return "silence"
	case StopMaxDuration:
		return "max-duration"
	default:
		return "manual"
	}
}

// State is the observable monitor state.
type State struct {
	Recording bool
	// Detected is sticky until the next Start.
	Detected      bool
	Volume        float64
	Duration      time.Duration
	AverageVolume float64
}

// Attempt is the outcome of one recording.
type Attempt struct {
	Detected      bool
	Duration      time.Duration
	AverageVolume float64
	Reason        StopReason
}

// Monitor samples an input stream every frame while recording. It must be
// driven from the scheduler's owner goroutine.
type Monitor struct {
	cfg   Config
	src   audio.Source
	sched loop.Scheduler
	log   zerolog.Logger

	state      State
	permission Permission

	stream   audio.Stream
	buf      []byte
	frame    loop.Timer
	maxTimer loop.Timer

	speaking    bool
	speechStart time.Time
	lastSound   time.Time
	samples     []float64

	onChange func(State)
	onStop   func(Attempt)
}

func New(cfg Config, src audio.Source, sched loop.Scheduler, log zerolog.Logger) *Monitor {
	def := DefaultConfig()
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = def.SilenceTimeout
	}
	return &Monitor{cfg: cfg, src: src, sched: sched, log: log}
}

// OnChange registers a listener for state updates, replacing any previous one.
func (m *Monitor) OnChange(fn func(State)) { m.onChange = fn }

// OnStop registers a listener for finished attempts.
func (m *Monitor) OnStop(fn func(Attempt)) { m.onStop = fn }

func (m *Monitor) State() State           { return m.state }
func (m *Monitor) Permission() Permission { return m.permission }
func (m *Monitor) Config() Config         { return m.cfg }

// RequestPermission probes the microphone without recording.
func (m *Monitor) RequestPermission() bool {
	stream, err := m.src.Open()
	if err != nil {
		m.deny(err)
		return false
	}
	stream.Close()
	m.permission = PermissionGranted
	return true
}

func (m *Monitor) deny(err error) {
	m.permission = PermissionDenied
	if errors.Is(err, audio.ErrPermissionDenied) {
		m.log.Warn().Err(err).Msg("microphone permission denied")
	} else {
		m.log.Error().Err(err).Msg("open microphone")
	}
	m.notify()
}

// Start begins a recording. It reports whether recording is now running
// because of this call; a call while already recording is a no-op.
func (m *Monitor) Start() bool {
	if m.state.Recording {
		return false
	}
	stream, err := m.src.Open()
	if err != nil {
		m.deny(err)
		return false
	}
	m.permission = PermissionGranted
	m.stream = stream
	m.buf = make([]byte, stream.FrequencyBinCount())

	now := m.sched.Now()
	m.state = State{Recording: true}
	m.speaking = false
	m.speechStart = time.Time{}
	m.lastSound = now
	m.samples = m.samples[:0]

	m.maxTimer = m.sched.AfterFunc(m.cfg.MaxDuration, func() {
		m.maxTimer = nil
		m.stop(StopMaxDuration)
	})
	m.log.Debug().Msg("recording started")
	m.analyse()
	return true
}

// Stop ends the current recording. Stop while idle is a no-op.
func (m *Monitor) Stop() {
	m.stop(StopManual)
}

// Toggle starts when idle and stops when recording.
func (m *Monitor) Toggle() {
	if m.state.Recording {
		m.Stop()
		return
	}
	m.Start()
}

func (m *Monitor) analyse() {
	m.frame = nil
	if !m.state.Recording {
		return
	}
	m.stream.ByteFrequencyData(m.buf)
	level := audio.MeanLevel(m.buf)
	now := m.sched.Now()
	m.state.Volume = level

	if level > m.cfg.VolumeThreshold {
		m.lastSound = now
		m.samples = append(m.samples, level)
		if !m.speaking {
			m.speaking = true
			m.speechStart = now
		} else {
			m.state.Duration = now.Sub(m.speechStart)
			if m.state.Duration >= m.cfg.MinDuration {
				m.state.Detected = true
			}
		}
	} else if m.speaking && now.Sub(m.lastSound) >= m.cfg.SilenceTimeout {
		m.stop(StopSilence)
		return
	}

	m.notify()
	m.frame = m.sched.AfterFunc(m.cfg.FrameInterval, m.analyse)
}

func (m *Monitor) stop(reason StopReason) {
	if !m.state.Recording {
		return
	}
	loop.StopTimer(m.maxTimer)
	loop.StopTimer(m.frame)
	m.maxTimer, m.frame = nil, nil
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}

	if len(m.samples) > 0 {
		sum := 0.0
		for _, s := range m.samples {
			sum += s
		}
		m.state.AverageVolume = sum / float64(len(m.samples))
	}
	m.state.Recording = false
	m.state.Volume = 0

	attempt := Attempt{
		Detected:      m.state.Detected,
		Duration:      m.state.Duration,
		AverageVolume: m.state.AverageVolume,
		Reason:        reason,
	}
	m.log.Debug().
		Bool("detected", attempt.Detected).
		Dur("duration", attempt.Duration).
		Float64("avg_volume", attempt.AverageVolume).
		Str("reason", reason.String()).
		Msg("recording stopped")

	m.notify()
	if m.onStop != nil {
		m.onStop(attempt)
	}
}

func (m *Monitor) notify() {
	if m.onChange != nil {
		m.onChange(m.state)
	}
}
