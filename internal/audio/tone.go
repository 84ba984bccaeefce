package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

const toneSampleRate = 44100

// Player plays pre-rendered tones on the default output device.
type Player struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	log    zerolog.Logger

	click   []byte
	success []byte
	start   []byte

	mu      sync.Mutex
	samples atomic.Pointer[[]byte]
	pos     atomic.Uint32
}

// NewPlayer opens a playback device. Callers fall back to Mute on error.
func NewPlayer(log zerolog.Logger) (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("playback context: %w", err)
	}
	p := &Player{
		ctx:     ctx,
		log:     log,
		click:   renderTone(toneSampleRate, []float64{800}, 0.1, 0.3, 20),
		success: renderTone(toneSampleRate, []float64{523.25, 659.25, 783.99}, 0.4, 0.3, 6),
		start:   renderTone(toneSampleRate, []float64{1200}, 0.03, 0.5, 60),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = toneSampleRate
	dev, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.fill})
	if err != nil {
		p.closeContext()
		return nil, fmt.Errorf("playback device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		p.closeContext()
		return nil, fmt.Errorf("start playback: %w", err)
	}
	p.device = dev
	return p, nil
}

func (p *Player) Click()   { p.play(p.click) }
func (p *Player) Success() { p.play(p.success) }
func (p *Player) Start()   { p.play(p.start) }

func (p *Player) Close() {
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.closeContext()
}

func (p *Player) closeContext() {
	if p.ctx == nil {
		return
	}
	if err := p.ctx.Uninit(); err != nil {
		p.log.Debug().Err(err).Msg("uninit playback context")
	}
	p.ctx.Free()
	p.ctx = nil
}

func (p *Player) play(samples []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos.Store(0)
	p.samples.Store(&samples)
}

func (p *Player) fill(out, _ []byte, frameCount uint32) {
	want := frameCount * 2
	samples := p.samples.Load()
	written := uint32(0)
	if samples != nil {
		pos := p.pos.Load()
		total := uint32(len(*samples))
		if pos < total {
			written = min(want, total-pos)
			copy(out[:written], (*samples)[pos:pos+written])
			p.pos.Store(pos + written)
		} else {
			p.samples.Store(nil)
		}
	}
	for i := written; i < uint32(len(out)); i++ {
		out[i] = 0
	}
}

// renderTone plays freqs one after another across duration seconds, each
// note with an exponential decay envelope.
func renderTone(sampleRate int, freqs []float64, duration, volume, decay float64) []byte {
	n := int(float64(sampleRate) * duration)
	buf := make([]byte, n*2)
	per := n / len(freqs)
	for i := 0; i < n; i++ {
		note := min(i/per, len(freqs)-1)
		t := float64(i-note*per) / float64(sampleRate)
		env := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freqs[note]*t) * 32767 * volume * env)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(uint16(s) >> 8)
	}
	return buf
}

// Mute satisfies Tones without making a sound.
type Mute struct{}

func (Mute) Click()   {}
func (Mute) Success() {}
func (Mute) Start()   {}
