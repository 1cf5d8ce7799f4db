// Package media exposes a decoding/playback engine through a seekable-media
// abstraction: open a file, decode audio into a pull-based ring buffer
// consumed by a real-time audio callback, decode video into a frame store
// consumed by a UI paint cycle, and seek with sample accuracy so playback
// can follow an external clock such as a DAW playhead.
//
// The package is engine-agnostic: pkg/vlc provides the libVLC-backed
// Engine/Session implementation, tests provide fakes.
package media

import (
	"time"
)

// State is the player life-cycle state.
type State int32

const (
	StateClosed State = iota
	StateReady
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SeekMode is a hint forwarded to the engine's time-setting call.
type SeekMode int

const (
	// SeekPrecise requests an exact-position seek.
	SeekPrecise SeekMode = iota
	// SeekFast allows the engine to land on a nearby keyframe.
	SeekFast
)

func (m SeekMode) String() string {
	if m == SeekFast {
		return "fast"
	}
	return "precise"
}

// Listener receives player notifications. Callbacks are invoked on
// whichever goroutine produced the event (Open's caller for MediaReady,
// the position tracker for the rest) and must return promptly. They are
// delivered outside the player's internal locks, so a listener may call
// back into the player. Listeners are compared by equality on Remove;
// use pointer types.
type Listener interface {
	// MediaReady fires exactly once per successful Open, after the
	// metadata refresh.
	MediaReady(p *Player)

	// MediaError reports an asynchronous engine error.
	MediaError(p *Player, message string)

	// MediaFinished fires when the media plays to its end.
	MediaFinished(p *Player)

	// SeekCompleted reports the position at which a seek settled. It is
	// suppressed for seeks superseded before completion.
	SeekCompleted(p *Player, sampleIndex int64)
}

// PlaybackStatus is a point-in-time snapshot of player state for
// monitoring. Fields are sampled independently; no cross-field
// consistency is guaranteed.
type PlaybackStatus struct {
	File            string
	State           State
	SampleRate      float64
	Channels        int
	CurrentSample   int64
	TotalSamples    int64
	CurrentTime     float64 // seconds
	TotalDuration   float64 // seconds, -1 when unknown
	BufferedSamples int     // samples waiting in the ring buffer
	HasAudio        bool
	HasVideo        bool
	VideoWidth      int
	VideoHeight     int
}

// Config holds player tunables. Zero values select the defaults.
type Config struct {
	// SampleRate is the fixed decode contract rate the engine is asked
	// to deliver audio at. Default 44100.
	SampleRate float64

	// Channels is the fixed decode channel count. Default 2.
	Channels int

	// BufferSamples is the ring buffer capacity per channel, sized for
	// roughly two seconds at the nominal rate. Default 96000.
	BufferSamples int

	// PollInterval is the position tracker tick. Default 16ms (~60 Hz).
	PollInterval time.Duration
}

// DefaultConfig returns the default player configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:    44100,
		Channels:      2,
		BufferSamples: 96000,
		PollInterval:  16 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	if c.BufferSamples <= 0 {
		c.BufferSamples = d.BufferSamples
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
