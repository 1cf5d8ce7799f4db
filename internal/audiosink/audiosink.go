package audiosink

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/drgolem/go-portaudio/portaudio"
)

// AudioRenderer is the pull side of playback. RenderAudioBlock fills up
// to frames samples into each channel buffer and zeroes whatever it does
// not fill, so the sink can hand the result straight to the device.
type AudioRenderer interface {
	RenderAudioBlock(outputs [][]float32, frames int)
}

// Config describes the output stream.
type Config struct {
	DeviceIndex     int
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
}

// DefaultConfig returns a stereo 44.1 kHz stream on device 1 with 512
// frames per callback.
func DefaultConfig() Config {
	return Config{
		DeviceIndex:     1,
		SampleRate:      44100,
		Channels:        2,
		FramesPerBuffer: 512,
	}
}

// Sink drives a PortAudio output stream from an AudioRenderer.
//
// The PortAudio callback runs on a real-time C thread outside the Go
// scheduler: it renders into a pre-allocated planar scratch and converts
// to the device format with no allocations and no locks.
type Sink struct {
	cfg    Config
	source AudioRenderer
	stream *portaudio.PaStream

	planar [][]float32 // callback render scratch, sized once

	mu      sync.Mutex
	started bool
	stopped bool

	framesRendered atomic.Uint64
}

// New creates a sink pulling from source. The renderer must tolerate
// being called before playback starts; it answers with silence.
func New(source AudioRenderer, cfg Config) *Sink {
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 512
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}

	planar := make([][]float32, cfg.Channels)
	for ch := range planar {
		planar[ch] = make([]float32, cfg.FramesPerBuffer)
	}

	return &Sink{
		cfg:    cfg,
		source: source,
		planar: planar,
	}
}

// Start opens the output stream in callback mode and starts it. The
// caller must have initialized PortAudio.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  s.cfg.DeviceIndex,
			ChannelCount: s.cfg.Channels,
			SampleFormat: portaudio.SampleFmtInt16,
		},
		SampleRate: s.cfg.SampleRate,
	}

	if err := s.stream.OpenCallback(s.cfg.FramesPerBuffer, s.audioCallback); err != nil {
		s.stream = nil
		return fmt.Errorf("failed to open stream with callback: %w", err)
	}
	if err := s.stream.StartStream(); err != nil {
		s.stream.CloseCallback()
		s.stream = nil
		return fmt.Errorf("failed to start stream: %w", err)
	}

	s.started = true
	s.stopped = false

	slog.Info("Audio output started",
		"device_index", s.cfg.DeviceIndex,
		"sample_rate", s.cfg.SampleRate,
		"channels", s.cfg.Channels,
		"frames_per_buffer", s.cfg.FramesPerBuffer)

	return nil
}

// audioCallback fills the device buffer. Runs on PortAudio's audio
// thread, not a goroutine: no allocations, no locks, no blocking.
func (s *Sink) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {

	frames := int(frameCount)
	if frames > s.cfg.FramesPerBuffer {
		frames = s.cfg.FramesPerBuffer
	}

	s.source.RenderAudioBlock(s.planar, frames)
	InterleaveInt16(s.planar, frames, output)

	s.framesRendered.Add(uint64(frames))
	return portaudio.Continue
}

// InterleaveInt16 converts planar float32 samples to interleaved signed
// 16-bit little-endian PCM, clamping to full scale. out must hold
// frames*channels*2 bytes.
func InterleaveInt16(planar [][]float32, frames int, out []byte) {
	channels := len(planar)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := planar[ch][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			n := int16(v * 32767)
			idx := (i*channels + ch) * 2
			out[idx] = byte(n)
			out[idx+1] = byte(n >> 8)
		}
	}
}

// FramesRendered reports the total frames handed to the device.
func (s *Sink) FramesRendered() uint64 {
	return s.framesRendered.Load()
}

// Stop stops and closes the stream. Safe to call multiple times.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || !s.started {
		s.stopped = true
		return nil
	}
	s.stopped = true
	s.started = false

	if s.stream != nil {
		if err := s.stream.StopStream(); err != nil {
			slog.Warn("Failed to stop stream", "error", err)
		}
		if err := s.stream.CloseCallback(); err != nil {
			slog.Warn("Failed to close stream", "error", err)
		}
		s.stream = nil
	}

	return nil
}
