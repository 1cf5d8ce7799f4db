package framestore

import (
	"bytes"
	"testing"
)

// rgbaPlane builds a width*height RGBA plane where the first pixel is
// R,G,B,A = 1,2,3,4 and subsequent pixels increment by 4.
func rgbaPlane(width, height int) []byte {
	plane := make([]byte, width*height*4)
	for i := range plane {
		plane[i] = byte(i + 1)
	}
	return plane
}

func TestPublishSwapsRedBlue(t *testing.T) {
	s := New()

	src := rgbaPlane(2, 2)
	s.Publish(src, 2, 2)

	frame, ok := s.Frame()
	if !ok {
		t.Fatal("Frame returned no frame after Publish")
	}
	if frame.Width != 2 || frame.Height != 2 {
		t.Fatalf("frame size: got %dx%d, want 2x2", frame.Width, frame.Height)
	}
	if frame.Stride != 8 {
		t.Errorf("stride: got %d, want 8", frame.Stride)
	}

	// Input R,G,B,A at offset 0 must map to output B,G,R,A.
	want := []byte{3, 2, 1, 4}
	if !bytes.Equal(frame.Pix[:4], want) {
		t.Errorf("first pixel: got %v, want %v", frame.Pix[:4], want)
	}

	// Every pixel, not just the first.
	for px := 0; px < 4; px++ {
		off := px * 4
		if frame.Pix[off] != src[off+2] || frame.Pix[off+2] != src[off] {
			t.Errorf("pixel %d: red/blue not swapped", px)
		}
		if frame.Pix[off+1] != src[off+1] || frame.Pix[off+3] != src[off+3] {
			t.Errorf("pixel %d: green/alpha disturbed", px)
		}
	}
}

func TestPublishGeometry(t *testing.T) {
	s := New()

	src := rgbaPlane(640, 480)
	s.Publish(src, 640, 480)

	frame, ok := s.Frame()
	if !ok {
		t.Fatal("no frame after Publish")
	}
	if len(frame.Pix) != 640*480*4 {
		t.Errorf("pixel buffer: got %d bytes, want %d", len(frame.Pix), 640*480*4)
	}
	if frame.Stride != 2560 {
		t.Errorf("stride: got %d, want 2560", frame.Stride)
	}
}

func TestPublishReallocatesOnDimensionChange(t *testing.T) {
	s := New()

	s.Publish(rgbaPlane(4, 4), 4, 4)
	s.Publish(rgbaPlane(8, 2), 8, 2)

	frame, ok := s.Frame()
	if !ok {
		t.Fatal("no frame after second Publish")
	}
	if frame.Width != 8 || frame.Height != 2 {
		t.Errorf("frame size: got %dx%d, want 8x2", frame.Width, frame.Height)
	}
	if len(frame.Pix) != 8*2*4 {
		t.Errorf("pixel buffer: got %d bytes, want %d", len(frame.Pix), 8*2*4)
	}
}

func TestPublishRejectsShortPlane(t *testing.T) {
	s := New()

	s.Publish(make([]byte, 10), 640, 480)

	if _, ok := s.Frame(); ok {
		t.Error("Frame returned a frame after short-plane Publish")
	}
}

func TestFrameReturnsCopy(t *testing.T) {
	s := New()
	s.Publish(rgbaPlane(2, 1), 2, 1)

	a, _ := s.Frame()
	a.Pix[0] = 0xFF

	b, _ := s.Frame()
	if b.Pix[0] == 0xFF {
		t.Error("Frame returned a view into the store's buffer, want a copy")
	}
}

func TestInvalidate(t *testing.T) {
	s := New()
	s.Publish(rgbaPlane(2, 2), 2, 2)

	s.Invalidate()

	if _, ok := s.Frame(); ok {
		t.Error("Frame returned a frame after Invalidate")
	}
	if w, h := s.Size(); w != 0 || h != 0 {
		t.Errorf("Size after Invalidate: got %dx%d, want 0x0", w, h)
	}
}

func TestRGBARoundTrip(t *testing.T) {
	s := New()
	src := rgbaPlane(3, 2)
	s.Publish(src, 3, 2)

	frame, _ := s.Frame()
	back := frame.RGBA()

	if !bytes.Equal(back, src) {
		t.Error("RGBA did not restore the original byte order")
	}

	// The repack must be a fresh allocation, not a view into the frame.
	back[0] = 0xEE
	if again := frame.RGBA(); again[0] == 0xEE {
		t.Error("mutating the RGBA copy changed the frame")
	}
}
