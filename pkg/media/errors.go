package media

import (
	"errors"
)

// Sentinel errors surfaced by Open. All leave the player in StateClosed.
var (
	// ErrFileNotFound indicates the media path does not exist.
	ErrFileNotFound = errors.New("file does not exist")

	// ErrEngineNotReady indicates the engine failed to initialize; the
	// player stays constructible and queryable but cannot open media.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrMediaCreate indicates the engine rejected the file.
	ErrMediaCreate = errors.New("failed to create media from file")
)
