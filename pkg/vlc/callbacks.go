package vlc

/*
#include <vlc/vlc.h>
*/
import "C"
import (
	"unsafe"

	pointer "github.com/mattn/go-pointer"

	"github.com/drgolem/mediakit/pkg/media"
)

// The trampolines below run on engine-owned threads. Every one restores
// the session from the opaque token and null-checks it and the handler
// before touching anything; a callback that loses the race against
// teardown must degrade to a no-op.

func restoreSession(data unsafe.Pointer) *Session {
	if data == nil {
		return nil
	}
	s, _ := pointer.Restore(data).(*Session)
	return s
}

//export goAudioPlay
func goAudioPlay(data unsafe.Pointer, samples unsafe.Pointer, count C.uint, pts C.int64_t) {
	s := restoreSession(data)
	if s == nil || samples == nil || count == 0 {
		return
	}
	hs := s.handlers.Load()
	if hs == nil || hs.audio == nil {
		return
	}

	byteCount := int(count) * audioChannels * bytesPerSample
	buf := hs.audio.AudioLock(byteCount)
	if len(buf) < byteCount {
		return
	}
	copy(buf, unsafe.Slice((*byte)(samples), byteCount))
	hs.audio.AudioUnlock(buf[:byteCount], int64(pts))
}

//export goAudioPause
func goAudioPause(data unsafe.Pointer, pts C.int64_t) {
	s := restoreSession(data)
	if s == nil {
		return
	}
	if hs := s.handlers.Load(); hs != nil && hs.audio != nil {
		hs.audio.AudioPause(int64(pts))
	}
}

//export goAudioResume
func goAudioResume(data unsafe.Pointer, pts C.int64_t) {
	s := restoreSession(data)
	if s == nil {
		return
	}
	if hs := s.handlers.Load(); hs != nil && hs.audio != nil {
		hs.audio.AudioResume(int64(pts))
	}
}

//export goAudioFlush
func goAudioFlush(data unsafe.Pointer, pts C.int64_t) {
	s := restoreSession(data)
	if s == nil {
		return
	}
	if hs := s.handlers.Load(); hs != nil && hs.audio != nil {
		hs.audio.AudioFlush(int64(pts))
	}
}

//export goAudioDrain
func goAudioDrain(data unsafe.Pointer) {
	s := restoreSession(data)
	if s == nil {
		return
	}
	if hs := s.handlers.Load(); hs != nil && hs.audio != nil {
		hs.audio.AudioDrain()
	}
}

//export goVideoFormat
func goVideoFormat(opaque *unsafe.Pointer, chroma *C.char, width *C.uint, height *C.uint, pitches *C.uint, lines *C.uint) C.uint {
	if opaque == nil {
		return 0
	}
	s := restoreSession(*opaque)
	if s == nil {
		return 0
	}
	hs := s.handlers.Load()
	if hs == nil || hs.video == nil {
		return 0
	}

	w := int(*width)
	h := int(*height)
	pitch, ok := hs.video.VideoFormat(w, h)
	if !ok {
		return 0
	}

	copy(unsafe.Slice((*byte)(unsafe.Pointer(chroma)), 4), "RV32")
	*pitches = C.uint(pitch)
	*lines = C.uint(h)
	s.ensurePlane(pitch * h)

	return 1
}

//export goVideoCleanup
func goVideoCleanup(opaque unsafe.Pointer) {
	s := restoreSession(opaque)
	if s == nil {
		return
	}
	if hs := s.handlers.Load(); hs != nil && hs.video != nil {
		hs.video.VideoCleanup()
	}
	s.releasePlane()
}

//export goVideoLock
func goVideoLock(opaque unsafe.Pointer, planes *unsafe.Pointer) unsafe.Pointer {
	s := restoreSession(opaque)
	if s == nil || planes == nil {
		return nil
	}
	*planes = s.lockPlane()
	return nil
}

//export goVideoUnlock
func goVideoUnlock(opaque unsafe.Pointer, picture unsafe.Pointer, planes *unsafe.Pointer) {
	_ = opaque
	_ = picture
	_ = planes
}

//export goVideoDisplay
func goVideoDisplay(opaque unsafe.Pointer, picture unsafe.Pointer) {
	_ = picture

	s := restoreSession(opaque)
	if s == nil {
		return
	}
	hs := s.handlers.Load()
	if hs == nil || hs.video == nil {
		return
	}
	s.publishFrame(hs.video)
}

//export goMediaEvent
func goMediaEvent(event *C.libvlc_event_t, data unsafe.Pointer) {
	s := restoreSession(data)
	if s == nil || event == nil {
		return
	}

	var ev media.Event
	switch int(event._type) {
	case int(C.libvlc_MediaPlayerEndReached):
		ev = media.Event{Kind: media.EventEndReached}
	case int(C.libvlc_MediaPlayerEncounteredError):
		msg := C.GoString(C.libvlc_errmsg())
		if msg == "" {
			msg = "engine reported an unspecified error"
		}
		ev = media.Event{Kind: media.EventError, Message: msg}
	default:
		return
	}

	// Non-blocking: a slow consumer must not stall an engine thread.
	select {
	case s.events <- ev:
	default:
	}
}
