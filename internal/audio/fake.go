package audio

import (
	"fmt"
	"math"
	"sync"
)

// FakeInput is a Source whose level is set directly by the caller.
type FakeInput struct {
	// Err, when set, is returned from Open wrapped in ErrPermissionDenied.
	Err error

	Bins   int
	level  float64
	opens  int
	closes int
	open   *fakeStream
}

func NewFakeInput() *FakeInput {
	return &FakeInput{Bins: 128}
}

func (f *FakeInput) Open() (Stream, error) {
	if f.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, f.Err)
	}
	f.opens++
	f.open = &fakeStream{input: f}
	return f.open, nil
}

// SetLevel sets the normalized level every bin will report.
func (f *FakeInput) SetLevel(level float64) {
	f.level = level
}

func (f *FakeInput) Opens() int  { return f.opens }
func (f *FakeInput) Closes() int { return f.closes }

// Active reports whether a stream is open.
func (f *FakeInput) Active() bool { return f.open != nil }

type fakeStream struct {
	input  *FakeInput
	closed bool
}

func (s *fakeStream) FrequencyBinCount() int { return s.input.Bins }

func (s *fakeStream) ByteFrequencyData(dst []byte) {
	v := byte(math.Round(math.Max(0, math.Min(1, s.input.level)) * 255))
	for i := range dst {
		dst[i] = v
	}
}

func (s *fakeStream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.input.closes++
	if s.input.open == s {
		s.input.open = nil
	}
}

// FakeContext is a Context with a fixed device list whose captures are fed
// by hand.
type FakeContext struct {
	DeviceList []DeviceInfo
	CaptureErr error
	StartErr   error

	mu       sync.Mutex
	captures []*FakeCapture
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.DeviceList, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig, cb DataCallback) (CaptureDevice, error) {
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	c := &FakeCapture{Device: device, cb: cb, startErr: f.StartErr}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Last returns the most recently created capture, or nil.
func (f *FakeContext) Last() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.captures) == 0 {
		return nil
	}
	return f.captures[len(f.captures)-1]
}

type FakeCapture struct {
	Device *DeviceInfo

	cb       DataCallback
	startErr error
	started  bool
	closed   bool
}

func (c *FakeCapture) Start() error {
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *FakeCapture) Stop()         { c.started = false }
func (c *FakeCapture) Close()        { c.closed = true }
func (c *FakeCapture) Started() bool { return c.started }
func (c *FakeCapture) Closed() bool  { return c.closed }

// Feed delivers PCM to the capture callback as the device thread would.
func (c *FakeCapture) Feed(data []byte) {
	if c.started && c.cb != nil {
		c.cb(data, uint32(len(data)/2))
	}
}

// ToneRecorder records which tones were requested.
type ToneRecorder struct {
	Played []string
}

func (r *ToneRecorder) Click()   { r.Played = append(r.Played, "click") }
func (r *ToneRecorder) Success() { r.Played = append(r.Played, "success") }
func (r *ToneRecorder) Start()   { r.Played = append(r.Played, "start") }

// Count returns how many times name was played.
func (r *ToneRecorder) Count(name string) int {
	n := 0
	for _, p := range r.Played {
		if p == name {
			n++
		}
	}
	return n
}
