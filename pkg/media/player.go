package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/mediakit/pkg/audioringbuffer"
	"github.com/drgolem/mediakit/pkg/framestore"
)

// teardownGrace is how long Shutdown waits after clearing the engine
// callbacks for invocations already in flight to return. The engine keeps
// no reference count on the handler, so releasing the session under a
// running callback would be a use-after-free.
const teardownGrace = 50 * time.Millisecond

// Player adapts one engine session to the seekable-media surface.
//
// Thread safety model:
//   - Open/Close/Play/Pause/Stop/Seek*/Shutdown are serialized by an
//     internal mutex and may be called from any one goroutine at a time
//   - RenderAudioBlock runs on the real-time audio device thread and
//     touches only atomics and the SPSC ring buffer
//   - Engine decode threads reach the ring and frame store through the
//     decoder bridge only
//   - Query methods read independent atomics; a reader may observe torn
//     combinations across fields (fresh dimensions with a stale playing
//     flag); no cross-field invariant is promised
type Player struct {
	cfg        Config
	sampleRate float64
	channels   int

	session Session
	events  <-chan Event
	bridge  *decoderBridge
	ring    *audioringbuffer.AudioRingBuffer
	frames  *framestore.FrameStore

	// alive gates every engine callback; cleared at the start of
	// Shutdown, before the engine handlers are detached.
	alive atomic.Bool

	state         atomic.Int32
	playing       atomic.Bool
	hasAudio      atomic.Bool
	hasVideo      atomic.Bool
	audioTracks   atomic.Int32
	videoTracks   atomic.Int32
	videoWidth    atomic.Int32
	videoHeight   atomic.Int32
	durationMs    atomic.Int64 // -1 until known
	totalSamples  atomic.Int64 // -1 until known
	currentSample atomic.Int64
	seekGen       atomic.Uint64
	pendingSeek   atomic.Pointer[pendingSeek]

	mu        sync.Mutex
	mediaOpen bool
	mediaPath string
	shutdown  bool

	listenerMu sync.Mutex
	listeners  []Listener

	trackerStop chan struct{}
	trackerWg   sync.WaitGroup
}

// pendingSeek records a seek awaiting its completion notification. A
// newer seek overwrites it, so only the latest pending seek reports
// completion.
type pendingSeek struct {
	gen uint64
}

// NewPlayer creates a player over the given engine. A nil engine, or one
// whose session cannot be created, is non-fatal: the player stays
// constructible and queryable with default values, and Open fails with
// ErrEngineNotReady.
func NewPlayer(engine Engine, cfg Config) *Player {
	cfg = cfg.withDefaults()

	p := &Player{
		cfg:         cfg,
		sampleRate:  cfg.SampleRate,
		channels:    cfg.Channels,
		ring:        audioringbuffer.New(cfg.Channels, cfg.BufferSamples),
		frames:      framestore.New(),
		trackerStop: make(chan struct{}),
	}
	p.bridge = newDecoderBridge(p)
	p.alive.Store(true)
	p.durationMs.Store(-1)
	p.totalSamples.Store(-1)
	p.state.Store(int32(StateClosed))

	if engine != nil {
		session, err := engine.NewSession()
		if err != nil {
			slog.Warn("media: engine session unavailable", "error", err)
		} else {
			p.session = session
			p.events = session.Events()
		}
	}

	p.trackerWg.Add(1)
	go p.trackPosition()

	return p
}

// Open loads a media file, replacing any open media. On success the
// player is in StateReady and listeners have received MediaReady; on
// failure the player is in StateClosed and the returned error wraps one
// of the package sentinels.
func (p *Player) Open(path string) error {
	p.mu.Lock()
	err := p.openLocked(path)
	p.mu.Unlock()
	if err != nil {
		return err
	}

	// Delivered after the lock is released; a listener may call back
	// into the player.
	p.notify(func(l Listener) { l.MediaReady(p) })
	return nil
}

func (p *Player) openLocked(path string) error {
	p.closeLocked()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if p.session == nil {
		return ErrEngineNotReady
	}

	if err := p.session.SetMedia(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMediaCreate, path, err)
	}

	p.session.SetAudioHandler(p.bridge)
	p.session.SetVideoHandler(p.bridge)

	// Parse is best-effort: a failed parse leaves sentinel metadata, it
	// does not fail the open.
	if err := p.session.Parse(); err != nil {
		slog.Warn("media: parse failed", "file", filepath.Base(path), "error", err)
	}

	p.mediaOpen = true
	p.mediaPath = path
	p.updateMediaInfo()
	p.state.Store(int32(StateReady))

	slog.Info("media: opened",
		"file", filepath.Base(path),
		"duration_s", p.TotalDuration(),
		"has_audio", p.hasAudio.Load(),
		"has_video", p.hasVideo.Load())

	return nil
}

// Close unloads the current media: implies Stop, detaches and releases
// the engine media, and resets all derived metadata to unknown/zero. The
// player remains usable for another Open. Idempotent.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Player) closeLocked() {
	p.stopLocked()

	if p.session != nil && p.mediaOpen {
		p.session.ClearMedia()
	}
	p.mediaOpen = false
	p.mediaPath = ""

	p.hasAudio.Store(false)
	p.hasVideo.Store(false)
	p.audioTracks.Store(0)
	p.videoTracks.Store(0)
	p.durationMs.Store(-1)
	p.totalSamples.Store(-1)
	p.currentSample.Store(0)
	p.videoWidth.Store(0)
	p.videoHeight.Store(0)
	p.pendingSeek.Store(nil)

	p.ring.Clear()
	p.frames.Invalidate()
	p.state.Store(int32(StateClosed))
}

// Play starts or resumes playback. No-op without open media.
func (p *Player) Play() {
	p.mu.Lock()
	if p.session == nil || !p.mediaOpen {
		p.mu.Unlock()
		return
	}
	err := p.session.Play()
	if err == nil {
		p.playing.Store(true)
		p.state.Store(int32(StatePlaying))
	}
	p.mu.Unlock()

	if err != nil {
		slog.Error("media: engine play failed", "error", err)
		p.notify(func(l Listener) { l.MediaError(p, err.Error()) })
	}
}

// Pause suspends playback; the engine retains its position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || !p.mediaOpen {
		return
	}

	p.session.SetPause(true)
	p.playing.Store(false)
	p.state.Store(int32(StatePaused))
}

// Stop stops playback, rewinds the current sample to zero and purges
// buffered audio.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.session == nil || !p.mediaOpen {
		p.playing.Store(false)
		return
	}

	p.session.Stop()
	p.playing.Store(false)
	p.currentSample.Store(0)
	p.pendingSeek.Store(nil)
	p.ring.Clear()
	p.state.Store(int32(StateStopped))
}

// IsPlaying reports the authoritative playing flag. It never blocks on
// the engine: play/pause against the engine are asynchronous and the
// flag is the adapter's own answer.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// State returns the current life-cycle state.
func (p *Player) State() State {
	return State(p.state.Load())
}

// SeekToTime moves playback to the given time in seconds. Valid in any
// state with open media. The seek generation is bumped first so audio
// blocks decoded before the seek drop instead of landing behind it, then
// the engine time is set and the ring buffer cleared. Returns false when
// no media is open.
func (p *Player) SeekToTime(seconds float64, mode SeekMode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || !p.mediaOpen {
		return false
	}
	if seconds < 0 {
		seconds = 0
	}

	gen := p.seekGen.Add(1)

	t := time.Duration(seconds * float64(time.Second))
	p.session.SetTime(t, mode == SeekFast)
	p.ring.Clear()

	p.pendingSeek.Store(&pendingSeek{gen: gen})

	slog.Debug("media: seek", "time_s", seconds, "mode", mode.String(), "generation", gen)
	return true
}

// SeekToSample moves playback to the given sample index, defined as
// SeekToTime(index/rate). Returns false when no audio stream is present
// or the sample rate is not positive.
func (p *Player) SeekToSample(index int64, mode SeekMode) bool {
	if !p.hasAudio.Load() {
		return false
	}
	rate := p.sampleRate
	if rate <= 0 {
		return false
	}
	return p.SeekToTime(float64(index)/rate, mode)
}

// RenderAudioBlock is the real-time pull path, called from the audio
// device callback. It zeroes frames samples on every output channel
// first, so silence is the answer whenever the player is not playing
// or the buffer underruns. Then, while playing with an audio stream
// present, it copies up to frames buffered samples into the lesser of
// the device and buffer channel counts and advances the current sample
// by the amount actually read.
//
// Never blocks, never allocates, takes no lock.
func (p *Player) RenderAudioBlock(outputs [][]float32, frames int) {
	for ch := range outputs {
		block := outputs[ch]
		if len(block) > frames {
			block = block[:frames]
		}
		clear(block)
	}

	if frames <= 0 || !p.playing.Load() || !p.hasAudio.Load() {
		return
	}

	n := p.ring.Read(outputs, frames)
	if n > 0 {
		p.currentSample.Add(int64(n))
	}
}

// SampleRate returns the fixed decode contract rate.
func (p *Player) SampleRate() float64 {
	return p.sampleRate
}

// Channels returns the fixed decode channel count.
func (p *Player) Channels() int {
	return p.channels
}

// TotalSamples returns the total sample count derived from the media
// duration, -1 while unknown.
func (p *Player) TotalSamples() int64 {
	return p.totalSamples.Load()
}

// CurrentSample returns the authoritative playback position in samples.
// While playing it follows the engine clock at the tracker's poll
// interval, with the pull path advancing it between polls.
func (p *Player) CurrentSample() int64 {
	return p.currentSample.Load()
}

// TotalDuration returns the media duration in seconds, -1.0 while
// unknown.
func (p *Player) TotalDuration() float64 {
	ms := p.durationMs.Load()
	if ms < 0 {
		return -1.0
	}
	return float64(ms) / 1000.0
}

// CurrentTime returns the playback position in seconds derived from the
// current sample, zero when the rate is unknown.
func (p *Player) CurrentTime() float64 {
	if p.sampleRate <= 0 {
		return 0
	}
	return float64(p.currentSample.Load()) / p.sampleRate
}

// HasAudio reports whether the open media has an audio stream.
func (p *Player) HasAudio() bool {
	return p.hasAudio.Load()
}

// HasVideo reports whether the open media has a video stream.
func (p *Player) HasVideo() bool {
	return p.hasVideo.Load()
}

// AudioTracks returns the number of audio tracks the engine found.
func (p *Player) AudioTracks() int {
	return int(p.audioTracks.Load())
}

// VideoTracks returns the number of video tracks the engine found.
func (p *Player) VideoTracks() int {
	return int(p.videoTracks.Load())
}

// VideoSize returns the video dimensions published by the format
// negotiation, zero before it.
func (p *Player) VideoSize() (width, height int) {
	return int(p.videoWidth.Load()), int(p.videoHeight.Load())
}

// CurrentVideoFrame returns a copy of the most recently decoded video
// frame; ok is false before the first frame.
func (p *Player) CurrentVideoFrame() (framestore.Frame, bool) {
	return p.frames.Frame()
}

// AddListener registers a listener for player events.
func (p *Player) AddListener(l Listener) {
	if l == nil {
		return
	}
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	p.listeners = append(p.listeners, l)
}

// RemoveListener unregisters a previously added listener.
func (p *Player) RemoveListener(l Listener) {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	for i, have := range p.listeners {
		if have == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Status returns a monitoring snapshot.
func (p *Player) Status() PlaybackStatus {
	p.mu.Lock()
	file := filepath.Base(p.mediaPath)
	if p.mediaPath == "" {
		file = ""
	}
	p.mu.Unlock()

	return PlaybackStatus{
		File:            file,
		State:           p.State(),
		SampleRate:      p.sampleRate,
		Channels:        p.channels,
		CurrentSample:   p.currentSample.Load(),
		TotalSamples:    p.totalSamples.Load(),
		CurrentTime:     p.CurrentTime(),
		TotalDuration:   p.TotalDuration(),
		BufferedSamples: p.ring.Available(),
		HasAudio:        p.hasAudio.Load(),
		HasVideo:        p.hasVideo.Load(),
		VideoWidth:      int(p.videoWidth.Load()),
		VideoHeight:     int(p.videoHeight.Load()),
	}
}

// Shutdown is the terminal teardown. Ordering is critical: the liveness
// flag falls first so every subsequent engine callback is a no-op, the
// tracker drains, playback stops, the engine handlers are cleared, and
// only after a bounded grace period for in-flight callbacks is the
// session released. Idempotent.
func (p *Player) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return
	}
	p.shutdown = true

	p.alive.Store(false)

	close(p.trackerStop)
	p.trackerWg.Wait()

	if p.session != nil {
		p.session.Stop()
		p.session.ClearHandlers()
		time.Sleep(teardownGrace)
		if err := p.session.Close(); err != nil {
			slog.Warn("media: session close failed", "error", err)
		}
		p.session = nil
	}

	p.mediaOpen = false
	p.mediaPath = ""
	p.playing.Store(false)
	p.ring.Clear()
	p.frames.Invalidate()
	p.state.Store(int32(StateClosed))
}

// updateMediaInfo refreshes duration, derived total samples and track
// flags from the engine. Engine queries are best-effort; failures leave
// the sentinels in place.
func (p *Player) updateMediaInfo() {
	if d, ok := p.session.Duration(); ok && d > 0 {
		p.durationMs.Store(d.Milliseconds())
		if p.sampleRate > 0 {
			p.totalSamples.Store(int64(d.Seconds() * p.sampleRate))
		}
	}

	audio := p.session.AudioTrackCount()
	video := p.session.VideoTrackCount()
	p.audioTracks.Store(int32(audio))
	p.videoTracks.Store(int32(video))
	p.hasAudio.Store(audio > 0)
	p.hasVideo.Store(video > 0)
}

// notify calls fn for every registered listener outside the listener
// lock, so listeners may add or remove themselves reentrantly. Callers
// must not hold p.mu: listeners are allowed to call back into the
// player.
func (p *Player) notify(fn func(Listener)) {
	p.listenerMu.Lock()
	snapshot := make([]Listener, len(p.listeners))
	copy(snapshot, p.listeners)
	p.listenerMu.Unlock()

	for _, l := range snapshot {
		fn(l)
	}
}
