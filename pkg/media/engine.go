package media

import (
	"time"
)

// Engine is the external decoding/playback engine the player adapts.
// Implementations wrap a concrete library (libVLC in pkg/vlc); tests use
// in-memory fakes.
type Engine interface {
	// NewSession creates a playback session (one engine player instance).
	NewSession() (Session, error)

	// Version returns the engine's version string for diagnostics.
	Version() string

	// Close releases the engine instance. All sessions must be closed first.
	Close() error
}

// Session is one engine playback session: a player handle plus at most
// one attached media. All methods are best-effort against the engine and
// must be safe to call after Close (returning zero values / errors).
type Session interface {
	// SetMedia creates engine media from a file path and attaches it,
	// replacing any previous media.
	SetMedia(path string) error

	// ClearMedia detaches and releases the current media.
	ClearMedia()

	// Parse requests metadata parsing for the attached media and waits
	// for the parse data to become available.
	Parse() error

	// Duration returns the media duration. ok is false while unknown.
	Duration() (d time.Duration, ok bool)

	// AudioTrackCount and VideoTrackCount report per-type track counts,
	// zero when unknown.
	AudioTrackCount() int
	VideoTrackCount() int

	// Play starts or resumes engine playback.
	Play() error

	// SetPause suspends (true) or resumes (false) playback.
	SetPause(paused bool)

	// Stop stops playback and rewinds the engine position.
	Stop()

	// SetTime moves the engine playback position. fast requests an
	// imprecise keyframe seek when the engine supports the hint.
	SetTime(t time.Duration, fast bool)

	// Time returns the engine's wall-clock playback position.
	// ok is false when the position is unknown (no media, stopped).
	Time() (t time.Duration, ok bool)

	// SetAudioHandler and SetVideoHandler register the decode callback
	// receivers. Handlers must stay valid until ClearHandlers returns.
	SetAudioHandler(h AudioHandler)
	SetVideoHandler(h VideoHandler)

	// ClearHandlers unregisters both handlers. After it returns no new
	// callback invocations begin, but invocations already in flight may
	// still complete; callers observe a grace period before releasing
	// handler state.
	ClearHandlers()

	// Events returns the session event stream. After Close the stream
	// goes quiet; implementations may close the channel but are not
	// required to, so consumers must tolerate both.
	Events() <-chan Event

	// Close stops playback, releases the media and the player handle.
	Close() error
}

// AudioHandler receives decoded audio from the engine's decode thread.
// The engine pairs AudioLock/AudioUnlock around each block: lock returns
// a scratch buffer of the requested size, unlock delivers it filled with
// 32-bit float interleaved samples. All methods run on engine-owned
// threads and must never block on the caller's locks.
type AudioHandler interface {
	// AudioLock returns a scratch buffer of byteCount bytes for the
	// engine to fill, or nil to refuse the block.
	AudioLock(byteCount int) []byte

	// AudioUnlock delivers the filled scratch buffer obtained from the
	// matching AudioLock. pts is the engine's presentation timestamp in
	// microseconds.
	AudioUnlock(buf []byte, pts int64)

	// AudioPlay, AudioPause, AudioResume and AudioDrain report engine
	// transport transitions. pts as for AudioUnlock.
	AudioPlay(pts int64)
	AudioPause(pts int64)
	AudioResume(pts int64)

	// AudioFlush reports a discontinuity (seek); buffered audio not yet
	// consumed is stale and must be purged.
	AudioFlush(pts int64)
	AudioDrain()
}

// VideoHandler receives decoded video from the engine's decode thread.
// plane is the engine-written pixel plane in 32-bit RGBA, width*height*4
// bytes with stride width*4; it is owned by the session and only valid
// for the duration of the call.
type VideoHandler interface {
	// VideoFormat negotiates output geometry once the engine determines
	// it. It returns the row pitch in bytes and whether the format is
	// accepted; returning ok=false rejects video output.
	VideoFormat(width, height int) (pitch int, ok bool)

	// VideoLock and VideoUnlock bracket the engine writing the plane.
	VideoLock(plane []byte)
	VideoUnlock(plane []byte)

	// VideoDisplay presents one completed frame.
	VideoDisplay(plane []byte)

	// VideoCleanup tears down video output state.
	VideoCleanup()
}

// EventKind discriminates session events.
type EventKind int

const (
	// EventEndReached signals the media played to its end.
	EventEndReached EventKind = iota
	// EventError signals an asynchronous engine error.
	EventError
)

// Event is an asynchronous session notification.
type Event struct {
	Kind    EventKind
	Message string
}
