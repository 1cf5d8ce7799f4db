package framestore

import (
	"sync"
)

// bytesPerPixel is fixed by the 32-bit RGBA decode format.
const bytesPerPixel = 4

// Frame is a single decoded video frame. Pix holds Height rows of Stride
// bytes in B,G,R,A byte order, repacked at publish time from the RGBA
// plane the decoder delivers; Stride is always Width*4.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := f
	out.Pix = make([]byte, len(f.Pix))
	copy(out.Pix, f.Pix)
	return out
}

// RGBA returns the pixel data repacked to R,G,B,A byte order, suitable
// for image encoding. The returned slice is freshly allocated.
func (f Frame) RGBA() []byte {
	out := make([]byte, len(f.Pix))
	for i := 0; i+3 < len(f.Pix); i += bytesPerPixel {
		out[i] = f.Pix[i+2]
		out[i+1] = f.Pix[i+1]
		out[i+2] = f.Pix[i]
		out[i+3] = f.Pix[i+3]
	}
	return out
}

// FrameStore holds the most recently decoded video frame behind a mutex.
// The decoder thread replaces the frame wholesale on every display
// callback; the UI paint path copies it out. Hold times are short: one
// buffer conversion on publish, one copy on read.
type FrameStore struct {
	mu    sync.Mutex
	frame Frame
	valid bool
}

// New creates an empty frame store.
func New() *FrameStore {
	return &FrameStore{}
}

// Publish converts an RGBA source plane into the store's frame, swapping
// the red and blue bytes of every pixel. src must hold width*height*4
// bytes with stride width*4 (same stride both sides). The store's buffer
// is reallocated when the dimensions change and reused otherwise.
func (s *FrameStore) Publish(src []byte, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	need := width * height * bytesPerPixel
	if len(src) < need {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame.Width != width || s.frame.Height != height || len(s.frame.Pix) != need {
		s.frame = Frame{
			Width:  width,
			Height: height,
			Stride: width * bytesPerPixel,
			Pix:    make([]byte, need),
		}
	}

	dst := s.frame.Pix
	for i := 0; i+3 < need; i += bytesPerPixel {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
		dst[i+3] = src[i+3]
	}
	s.valid = true
}

// Frame returns a deep copy of the current frame. The second result is
// false when no frame has been published since creation or the last
// Invalidate.
func (s *FrameStore) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		return Frame{}, false
	}
	return s.frame.Clone(), true
}

// Size returns the dimensions of the current frame, zero before the
// first publish.
func (s *FrameStore) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame.Width, s.frame.Height
}

// Invalidate drops the current frame. Buffers are released so a closed
// media session does not pin the last picture.
func (s *FrameStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = Frame{}
	s.valid = false
}
