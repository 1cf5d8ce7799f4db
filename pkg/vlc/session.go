package vlc

/*
#include <stdlib.h>
#include <vlc/vlc.h>

extern void goAudioPlay(void *data, void *samples, unsigned count, int64_t pts);
extern void goAudioPause(void *data, int64_t pts);
extern void goAudioResume(void *data, int64_t pts);
extern void goAudioFlush(void *data, int64_t pts);
extern void goAudioDrain(void *data);

extern unsigned goVideoFormat(void **opaque, char *chroma, unsigned *width, unsigned *height, unsigned *pitches, unsigned *lines);
extern void goVideoCleanup(void *opaque);
extern void *goVideoLock(void *opaque, void **planes);
extern void goVideoUnlock(void *opaque, void *picture, void **planes);
extern void goVideoDisplay(void *opaque, void *picture);

extern void goMediaEvent(libvlc_event_t *event, void *data);

static void mediakit_attach_audio(libvlc_media_player_t *mp, void *data)
{
	libvlc_audio_set_callbacks(mp,
		(libvlc_audio_play_cb)goAudioPlay,
		(libvlc_audio_pause_cb)goAudioPause,
		(libvlc_audio_resume_cb)goAudioResume,
		(libvlc_audio_flush_cb)goAudioFlush,
		(libvlc_audio_drain_cb)goAudioDrain,
		data);
}

static void mediakit_detach_audio(libvlc_media_player_t *mp)
{
	libvlc_audio_set_callbacks(mp, NULL, NULL, NULL, NULL, NULL, NULL);
}

static void mediakit_attach_video(libvlc_media_player_t *mp, void *data)
{
	libvlc_video_set_callbacks(mp,
		(libvlc_video_lock_cb)goVideoLock,
		(libvlc_video_unlock_cb)goVideoUnlock,
		(libvlc_video_display_cb)goVideoDisplay,
		data);
	libvlc_video_set_format_callbacks(mp,
		(libvlc_video_format_cb)goVideoFormat,
		(libvlc_video_cleanup_cb)goVideoCleanup);
}

static void mediakit_detach_video(libvlc_media_player_t *mp)
{
	libvlc_video_set_callbacks(mp, NULL, NULL, NULL, NULL);
	libvlc_video_set_format_callbacks(mp, NULL, NULL);
}

static int mediakit_attach_events(libvlc_media_player_t *mp, void *data)
{
	libvlc_event_manager_t *em = libvlc_media_player_event_manager(mp);
	if (em == NULL)
		return -1;
	if (libvlc_event_attach(em, libvlc_MediaPlayerEndReached, (libvlc_callback_t)goMediaEvent, data) != 0)
		return -1;
	if (libvlc_event_attach(em, libvlc_MediaPlayerEncounteredError, (libvlc_callback_t)goMediaEvent, data) != 0)
		return -1;
	return 0;
}

static void mediakit_detach_events(libvlc_media_player_t *mp, void *data)
{
	libvlc_event_manager_t *em = libvlc_media_player_event_manager(mp);
	if (em == NULL)
		return;
	libvlc_event_detach(em, libvlc_MediaPlayerEndReached, (libvlc_callback_t)goMediaEvent, data);
	libvlc_event_detach(em, libvlc_MediaPlayerEncounteredError, (libvlc_callback_t)goMediaEvent, data);
}
*/
import "C"
import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	pointer "github.com/mattn/go-pointer"

	"github.com/drgolem/mediakit/pkg/media"
)

// The decode contract is fixed: 32-bit float interleaved stereo at
// 44.1 kHz, negotiated once per session via libvlc_audio_set_format.
const (
	audioFourCC    = "FL32"
	audioRate      = 44100
	audioChannels  = 2
	bytesPerSample = 4
)

// handlerSet is swapped atomically so engine threads read handlers
// without taking the session lock that control operations hold while
// calling into the engine.
type handlerSet struct {
	audio media.AudioHandler
	video media.VideoHandler
}

// Session wraps one libvlc media player with the memory callback paths
// attached. Audio and video decode callbacks route to the installed
// handlers; a missing handler drops the data.
//
// The engine keeps no reference count on the callback opaque: after
// Close, a callback already in flight would dereference freed state.
// Callers must stop playback, clear handlers and allow a grace period
// before closing. The session defends the pointer handoffs with its own
// locks, but the decode write into the video plane is only bounded by
// that protocol.
type Session struct {
	engine *Engine

	mu      sync.Mutex
	mp      *C.libvlc_media_player_t
	current *C.libvlc_media_t
	closed  bool

	handlers atomic.Pointer[handlerSet]

	videoMu  sync.Mutex
	plane    unsafe.Pointer // C-allocated decode target
	planeLen int
	scratch  []byte // Go-side copy handed to the handler

	events chan media.Event
	self   unsafe.Pointer // registry token passed to C as the callback opaque
}

func newSession(e *Engine) (*Session, error) {
	mp := C.libvlc_media_player_new(e.handle)
	if mp == nil {
		return nil, ErrSessionCreate
	}

	s := &Session{
		engine: e,
		mp:     mp,
		events: make(chan media.Event, 16),
	}
	s.self = pointer.Save(s)

	// Callbacks must be in place before the first play; registering the
	// audio callbacks routes decoding through them instead of an output
	// module.
	C.mediakit_attach_audio(mp, s.self)
	format := C.CString(audioFourCC)
	C.libvlc_audio_set_format(mp, format, audioRate, audioChannels)
	C.free(unsafe.Pointer(format))
	C.mediakit_attach_video(mp, s.self)

	if C.mediakit_attach_events(mp, s.self) != 0 {
		C.libvlc_media_player_release(mp)
		pointer.Unref(s.self)
		return nil, ErrSessionCreate
	}

	return s, nil
}

// SetMedia loads the given path as the session's media, replacing any
// previous one.
func (s *Session) SetMedia(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	m := C.libvlc_media_new_path(s.engine.handle, cpath)
	if m == nil {
		return ErrMediaCreate
	}

	if s.current != nil {
		C.libvlc_media_release(s.current)
	}
	s.current = m
	C.libvlc_media_player_set_media(s.mp, m)
	return nil
}

// ClearMedia releases the current media. The player keeps its own
// reference until the next SetMedia.
func (s *Session) ClearMedia() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		C.libvlc_media_release(s.current)
		s.current = nil
	}
}

// Parse reads media metadata synchronously so duration and track counts
// are available right after. Uses the simple parse entry point for
// engine-version compatibility.
func (s *Session) Parse() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.current == nil {
		return ErrNoMedia
	}
	C.libvlc_media_parse(s.current)
	return nil
}

// Duration returns the media duration. ok is false until the engine
// knows it.
func (s *Session) Duration() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.current == nil {
		return 0, false
	}
	ms := int64(C.libvlc_media_get_duration(s.current))
	if ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// AudioTrackCount returns the number of audio tracks, zero when unknown.
func (s *Session) AudioTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.mp == nil {
		return 0
	}
	n := int(C.libvlc_audio_get_track_count(s.mp))
	if n < 0 {
		return 0
	}
	return n
}

// VideoTrackCount returns the number of video tracks, zero when unknown.
func (s *Session) VideoTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.mp == nil {
		return 0
	}
	n := int(C.libvlc_video_get_track_count(s.mp))
	if n < 0 {
		return 0
	}
	return n
}

// Play starts or resumes playback.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if C.libvlc_media_player_play(s.mp) == -1 {
		return ErrPlay
	}
	return nil
}

// SetPause suspends or resumes playback.
func (s *Session) SetPause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var flag C.int
	if paused {
		flag = 1
	}
	C.libvlc_media_player_set_pause(s.mp, flag)
}

// Stop stops playback. Synchronous: the engine joins its decode threads
// before returning, which is what makes the teardown protocol workable.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	C.libvlc_media_player_stop(s.mp)
}

// SetTime moves playback to the given position. The fast hint is part of
// the transport contract; this engine generation exposes no per-seek
// precision knob, so it has no engine-side effect here.
func (s *Session) SetTime(t time.Duration, fast bool) {
	_ = fast

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	C.libvlc_media_player_set_time(s.mp, C.libvlc_time_t(t.Milliseconds()))
}

// Time returns the current playback position. ok is false while the
// engine has no position, typically before the first play.
func (s *Session) Time() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	ms := int64(C.libvlc_media_player_get_time(s.mp))
	if ms < 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// SetAudioHandler installs the audio decode handler.
func (s *Session) SetAudioHandler(h media.AudioHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := handlerSet{}
	if cur := s.handlers.Load(); cur != nil {
		next = *cur
	}
	next.audio = h
	s.handlers.Store(&next)
}

// SetVideoHandler installs the video decode handler.
func (s *Session) SetVideoHandler(h media.VideoHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := handlerSet{}
	if cur := s.handlers.Load(); cur != nil {
		next = *cur
	}
	next.video = h
	s.handlers.Store(&next)
}

// ClearHandlers detaches both handlers. Subsequent callbacks drop their
// data immediately; callbacks already past the handler load may still
// run, which is why teardown waits before Close.
func (s *Session) ClearHandlers() {
	s.handlers.Store(nil)
}

// Events exposes engine notifications. The channel is never closed; it
// simply goes quiet once the session closes.
func (s *Session) Events() <-chan media.Event {
	return s.events
}

// Close releases the media player and media. Mirrors the engine's
// required ordering: stop, unset every callback, then release. The
// caller is responsible for the grace period between clearing handlers
// and calling Close.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.handlers.Store(nil)

	if s.mp != nil {
		C.libvlc_media_player_stop(s.mp)
		C.mediakit_detach_audio(s.mp)
		C.mediakit_detach_video(s.mp)
		C.mediakit_detach_events(s.mp, s.self)
		C.libvlc_media_player_release(s.mp)
		s.mp = nil
	}
	if s.current != nil {
		C.libvlc_media_release(s.current)
		s.current = nil
	}

	s.videoMu.Lock()
	if s.plane != nil {
		C.free(s.plane)
		s.plane = nil
	}
	s.planeLen = 0
	s.scratch = nil
	s.videoMu.Unlock()

	if s.self != nil {
		pointer.Unref(s.self)
		s.self = nil
	}
	return nil
}

// ensurePlane sizes the C-side decode plane for the negotiated format.
func (s *Session) ensurePlane(size int) {
	s.videoMu.Lock()
	defer s.videoMu.Unlock()

	if s.plane != nil && s.planeLen == size {
		return
	}
	if s.plane != nil {
		C.free(s.plane)
	}
	s.plane = C.malloc(C.size_t(size))
	s.planeLen = size
	s.scratch = make([]byte, size)
}

// releasePlane frees the decode plane on format cleanup.
func (s *Session) releasePlane() {
	s.videoMu.Lock()
	defer s.videoMu.Unlock()

	if s.plane != nil {
		C.free(s.plane)
		s.plane = nil
	}
	s.planeLen = 0
	s.scratch = nil
}

// lockPlane hands the decode target to the engine.
func (s *Session) lockPlane() unsafe.Pointer {
	s.videoMu.Lock()
	defer s.videoMu.Unlock()
	return s.plane
}

// publishFrame copies the decoded plane out of engine-owned memory and
// delivers it. The copy runs under videoMu so a concurrent format change
// cannot swap the plane mid-read.
func (s *Session) publishFrame(h media.VideoHandler) {
	s.videoMu.Lock()
	defer s.videoMu.Unlock()

	if s.plane == nil || s.planeLen == 0 {
		return
	}
	copy(s.scratch, unsafe.Slice((*byte)(s.plane), s.planeLen))
	h.VideoDisplay(s.scratch)
}
