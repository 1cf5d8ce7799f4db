// Package vlc binds libVLC 3.x as a media.Engine. One Engine wraps one
// libvlc instance; Sessions created from it decode into the registered
// handlers through the amem/vmem callback path instead of the engine's
// own output modules.
package vlc

/*
#cgo LDFLAGS: -lvlc
#include <stdlib.h>
#include <vlc/vlc.h>
*/
import "C"
import (
	"log/slog"
	"unsafe"

	"github.com/drgolem/mediakit/pkg/media"
)

// Config controls libvlc instance creation.
type Config struct {
	// PluginPath is handed to the engine as --plugin-path. Empty leaves
	// plugin discovery to the engine's own search order.
	PluginPath string

	// Args are additional libvlc command line arguments, appended after
	// the defaults.
	Args []string
}

// DefaultConfig returns the instance arguments suitable for headless
// embedding: no interface, no title overlay, quiet logs, one second of
// caching. Audio output intentionally stays unset; registering the
// audio callbacks is what routes decoded audio to the adapter.
func DefaultConfig() Config {
	return Config{
		Args: []string{
			"--intf=dummy",
			"--no-video-title-show",
			"--verbose=0",
			"--network-caching=1000",
			"--file-caching=1000",
			"--live-caching=1000",
		},
	}
}

// Engine wraps a libvlc instance.
type Engine struct {
	handle *C.libvlc_instance_t
}

// New creates a libvlc instance. If creation with the configured
// arguments fails it retries once with none, since an argument rejected
// by an older engine build should not make the whole engine unavailable.
func New(cfg Config) (*Engine, error) {
	args := make([]string, 0, len(cfg.Args)+1)
	if cfg.PluginPath != "" {
		args = append(args, "--plugin-path="+cfg.PluginPath)
	}
	args = append(args, cfg.Args...)

	argv := make([]*C.char, len(args))
	for i, a := range args {
		argv[i] = C.CString(a)
	}
	defer func() {
		for _, p := range argv {
			C.free(unsafe.Pointer(p))
		}
	}()

	var handle *C.libvlc_instance_t
	if len(argv) > 0 {
		handle = C.libvlc_new(C.int(len(argv)), &argv[0])
	} else {
		handle = C.libvlc_new(0, nil)
	}
	if handle == nil && len(argv) > 0 {
		slog.Warn("vlc: instance creation with arguments failed, retrying bare", "args", args)
		handle = C.libvlc_new(0, nil)
	}
	if handle == nil {
		return nil, ErrEngineInit
	}

	e := &Engine{handle: handle}
	slog.Info("vlc: engine initialized", "version", e.Version())
	return e, nil
}

// Version returns the engine's version string.
func (e *Engine) Version() string {
	return C.GoString(C.libvlc_get_version())
}

// NewSession creates a decode session with the audio and video callback
// paths pre-wired. The caller installs handlers per media through the
// session; callbacks arriving with no handler installed are dropped.
func (e *Engine) NewSession() (media.Session, error) {
	if e.handle == nil {
		return nil, ErrEngineInit
	}
	s, err := newSession(e)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the libvlc instance. Sessions must be closed first.
func (e *Engine) Close() error {
	if e.handle != nil {
		C.libvlc_release(e.handle)
		e.handle = nil
	}
	return nil
}
