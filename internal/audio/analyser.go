package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// AnalyserConfig mirrors the tunables of a browser AnalyserNode.
type AnalyserConfig struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:     256,
		Smoothing:   0.8,
		MinDecibels: -100,
		MaxDecibels: -30,
	}
}

// Analyser keeps the most recent FFTSize samples and turns them into a
// smoothed byte spectrum. Write is called from the audio callback; reads
// happen on the UI loop.
type Analyser struct {
	cfg    AnalyserConfig
	window []float64

	mu       sync.Mutex
	ring     []float64
	pos      int
	smoothed []float64
	re, im   []float64
}

func NewAnalyser(cfg AnalyserConfig) *Analyser {
	n := cfg.FFTSize
	if n < 32 || n&(n-1) != 0 {
		n = 256
		cfg.FFTSize = n
	}
	if cfg.MaxDecibels <= cfg.MinDecibels {
		cfg.MinDecibels, cfg.MaxDecibels = -100, -30
	}
	return &Analyser{
		cfg:      cfg,
		window:   blackman(n),
		ring:     make([]float64, n),
		smoothed: make([]float64, n/2),
		re:       make([]float64, n),
		im:       make([]float64, n),
	}
}

func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.cfg.FFTSize / 2
}

// WriteS16 appends little-endian signed 16-bit mono samples.
func (a *Analyser) WriteS16(data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(binary.LittleEndian.Uint16(data[i:]))
		a.push(float64(s) / 32768)
	}
}

// WriteFloat appends samples in [-1, 1].
func (a *Analyser) WriteFloat(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.push(s)
	}
}

func (a *Analyser) push(s float64) {
	a.ring[a.pos] = s
	a.pos = (a.pos + 1) % len(a.ring)
}

// ByteFrequencyData fills dst with up to FrequencyBinCount values.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.cfg.FFTSize
	for i := 0; i < n; i++ {
		a.re[i] = a.ring[(a.pos+i)%n] * a.window[i]
		a.im[i] = 0
	}
	fft(a.re, a.im)

	scale := 255 / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	tau := a.cfg.Smoothing
	for k := range a.smoothed {
		mag := math.Hypot(a.re[k], a.im[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag
		if k >= len(dst) {
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(scale * (db - a.cfg.MinDecibels))
		switch {
		case math.IsNaN(v) || v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}

// MeanLevel returns the mean byte value of data normalized to [0,1].
func MeanLevel(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return float64(sum) / float64(len(data)) / 255
}
