// Package speech reads text aloud through a local speech engine.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable means no speech engine could be found.
var ErrUnavailable = errors.New("speech engine unavailable")

// FallbackDelay stands in for an utterance when nothing can be spoken.
const FallbackDelay = time.Second

// Speaker speaks text and returns when it is finished or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Options select and tune the engine.
type Options struct {
	// Engine is auto, espeak-ng, espeak, say or none.
	Engine string
	Voice  string
	// Rate is words per minute; 0 keeps the engine default.
	Rate int
}

// Command runs a text-to-speech program once per utterance.
type Command struct {
	Name string
	Args []string
}

func (c Command) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), c.Args...), text)
	cmd := exec.CommandContext(ctx, c.Name, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// Silent waits Delay instead of speaking.
type Silent struct {
	Delay time.Duration
}

func (s Silent) Speak(ctx context.Context, _ string) error {
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var engines = []string{"espeak-ng", "espeak", "say"}

// Detect builds a Speaker for opts. When no engine is installed it returns
// a Silent speaker and ErrUnavailable so callers can log the degradation.
func Detect(opts Options, lookPath func(string) (string, error)) (Speaker, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	switch opts.Engine {
	case "none":
		return Silent{Delay: FallbackDelay}, nil
	case "", "auto":
		for _, name := range engines {
			if path, err := lookPath(name); err == nil {
				return commandFor(name, path, opts), nil
			}
		}
		return Silent{Delay: FallbackDelay}, ErrUnavailable
	default:
		path, err := lookPath(opts.Engine)
		if err != nil {
			return Silent{Delay: FallbackDelay}, fmt.Errorf("%w: %s: %v", ErrUnavailable, opts.Engine, err)
		}
		return commandFor(opts.Engine, path, opts), nil
	}
}

func commandFor(name, path string, opts Options) Command {
	var args []string
	switch name {
	case "say":
		if opts.Voice != "" {
			args = append(args, "-v", opts.Voice)
		}
		if opts.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(opts.Rate))
		}
	default:
		voice := opts.Voice
		if voice == "" {
			voice = "cmn"
		}
		args = append(args, "-v", voice)
		if opts.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(opts.Rate))
		}
		// Slightly raised pitch, as for a child audience.
		args = append(args, "-p", "60")
	}
	return Command{Name: path, Args: args}
}

// Describe names the speaker for logs and the devices command.
func Describe(s Speaker) string {
	switch v := s.(type) {
	case Command:
		return v.Name
	case Silent:
		return "silent (" + v.Delay.String() + " pause)"
	default:
		return fmt.Sprintf("%T", s)
	}
}

// Log records which speaker is in use.
func Log(log zerolog.Logger, s Speaker, err error) {
	if err != nil {
		log.Warn().Err(err).Str("speaker", Describe(s)).Msg("speech degraded to timed pauses")
		return
	}
	log.Info().Str("speaker", Describe(s)).Msg("speech engine ready")
}
