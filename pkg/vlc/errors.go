package vlc

import "errors"

// Errors reported by the libVLC binding.
var (
	ErrEngineInit    = errors.New("vlc: failed to initialize engine instance")
	ErrSessionCreate = errors.New("vlc: failed to create media player")
	ErrMediaCreate   = errors.New("vlc: failed to create media from path")
	ErrNoMedia       = errors.New("vlc: no media loaded")
	ErrPlay          = errors.New("vlc: playback request refused")
	ErrClosed        = errors.New("vlc: session closed")
)
