// Package audio captures microphone input and plays feedback tones.
package audio

import "errors"

// ErrPermissionDenied reports that no microphone could be opened, either
// because none exists or because the backend refused access.
var ErrPermissionDenied = errors.New("microphone unavailable")

// DataCallback receives raw little-endian PCM from a capture device.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// DefaultCaptureConfig is 16kHz mono, enough for amplitude measurement.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{SampleRate: 16000, Channels: 1}
}

type DeviceInfo struct {
	ID   string // opaque backend identifier
	Name string
}

// Context enumerates and opens capture devices.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig, callback DataCallback) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
}

// Stream is a live input handle with an analyser attached.
type Stream interface {
	// FrequencyBinCount is the number of bins ByteFrequencyData fills.
	FrequencyBinCount() int
	// ByteFrequencyData copies the current spectrum, scaled to 0..255, into dst.
	ByteFrequencyData(dst []byte)
	Close()
}

// Source acquires input streams. Open returns an error wrapping
// ErrPermissionDenied when the microphone cannot be used.
type Source interface {
	Open() (Stream, error)
}

// Tones plays short feedback sounds. Calls never block.
type Tones interface {
	Click()
	Success()
	Start()
}
