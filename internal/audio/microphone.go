package audio

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Microphone opens capture streams with an Analyser attached.
type Microphone struct {
	ctx      Context
	device   *DeviceInfo
	config   CaptureConfig
	analyser AnalyserConfig
	log      zerolog.Logger
}

// NewMicrophone returns a Source backed by ctx. A nil ctx yields a source
// that always reports ErrPermissionDenied.
func NewMicrophone(ctx Context, device *DeviceInfo, log zerolog.Logger) *Microphone {
	return &Microphone{
		ctx:      ctx,
		device:   device,
		config:   DefaultCaptureConfig(),
		analyser: DefaultAnalyserConfig(),
		log:      log,
	}
}

func (m *Microphone) Open() (Stream, error) {
	if m.ctx == nil {
		return nil, fmt.Errorf("%w: no audio backend", ErrPermissionDenied)
	}
	an := NewAnalyser(m.analyser)
	dev, err := m.ctx.NewCapture(m.device, m.config, func(data []byte, _ uint32) {
		an.WriteS16(data)
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("open capture device")
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		m.log.Warn().Err(err).Msg("start capture device")
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	m.log.Debug().Msg("microphone opened")
	return &micStream{Analyser: an, dev: dev}, nil
}

type micStream struct {
	*Analyser
	dev    CaptureDevice
	closed bool
}

func (s *micStream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.dev.Stop()
	s.dev.Close()
}

// FindDevice resolves a device by exact ID or case-insensitive name
// substring. An empty query returns nil, meaning the backend default.
func FindDevice(ctx Context, query string) (*DeviceInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	lower := strings.ToLower(query)
	for i := range devices {
		if devices[i].ID == query {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matches %q", query)
}
