// Package playback reads stories and rhymes aloud, one item at a time.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/speech"
)

type Options struct {
	// Gap is the pause between items.
	Gap time.Duration
	// Poll is how often a paused run checks whether it may continue.
	Poll time.Duration
}

func DefaultOptions() Options {
	return Options{Gap: time.Second, Poll: 100 * time.Millisecond}
}

// Progress describes the run after each step.
type Progress struct {
	Index   int
	Total   int
	Text    string
	Paused  bool
	Done    bool
	Stopped bool
}

// Player runs one script at a time on its own goroutine. Requests to pause
// or stop take effect at the next checkpoint: before an item, after a pause
// wait, after speaking and after a gap.
type Player struct {
	speaker speech.Speaker
	opts    Options
	post    func(func())
	log     zerolog.Logger

	mu     sync.Mutex
	paused bool
	cancel context.CancelFunc
	run    int
	wg     sync.WaitGroup
}

// New returns a Player. post delivers progress callbacks to the UI loop in
// order and may block.
func New(speaker speech.Speaker, opts Options, post func(func()), log zerolog.Logger) *Player {
	def := DefaultOptions()
	if opts.Gap < 0 {
		opts.Gap = def.Gap
	}
	if opts.Poll <= 0 {
		opts.Poll = def.Poll
	}
	return &Player{speaker: speaker, opts: opts, post: post, log: log}
}

// Play stops any running script and starts items from index from.
func (p *Player) Play(ctx context.Context, items []string, from int, onProgress func(Progress)) {
	p.Stop()
	if from < 0 || from >= len(items) {
		from = 0
	}
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.paused = false
	p.cancel = cancel
	p.run++
	run := p.run
	p.mu.Unlock()

	report := func(pr Progress) {
		pr.Total = len(items)
		if onProgress == nil {
			return
		}
		p.post(func() {
			// Progress from a replaced or stopped script is dropped.
			if p.current() == run {
				onProgress(pr)
			}
		})
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.play(ctx, items, from, report)
	}()
}

func (p *Player) play(ctx context.Context, items []string, from int, report func(Progress)) {
	for i := from; i < len(items); i++ {
		if !p.checkpoint(ctx, i, report) {
			report(Progress{Index: i, Stopped: true})
			return
		}
		report(Progress{Index: i, Text: items[i]})
		if err := p.speaker.Speak(ctx, items[i]); err != nil && ctx.Err() == nil {
			p.log.Warn().Err(err).Int("item", i).Msg("speak item")
			_ = speech.Silent{Delay: speech.FallbackDelay}.Speak(ctx, items[i])
		}
		if ctx.Err() != nil {
			report(Progress{Index: i, Stopped: true})
			return
		}
		if i == len(items)-1 {
			break
		}
		if !sleep(ctx, p.opts.Gap) {
			report(Progress{Index: i, Stopped: true})
			return
		}
	}
	report(Progress{Index: len(items) - 1, Done: true})
}

// checkpoint blocks while paused and reports whether the run may continue.
func (p *Player) checkpoint(ctx context.Context, index int, report func(Progress)) bool {
	announced := false
	for p.Paused() {
		if !announced {
			report(Progress{Index: index, Paused: true})
			announced = true
		}
		if !sleep(ctx, p.opts.Poll) {
			return false
		}
	}
	return ctx.Err() == nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *Player) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run
}

// Stop cancels the running script. It does not wait for the goroutine,
// which may itself be waiting to post progress to the caller's loop.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.paused = false
	p.run++
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the last script goroutine has exited. Never call it
// from the loop that receives progress.
func (p *Player) Wait() {
	p.wg.Wait()
}
