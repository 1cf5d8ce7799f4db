package audioringbuffer

import (
	"sync"
	"testing"
)

// planar allocates a zeroed planar block of the given shape.
func planar(channels, count int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, count)
	}
	return out
}

// ramp fills a planar block with per-channel ramps starting at base so
// that every (channel, index) pair has a unique, predictable value.
func ramp(dst [][]float32, base int) {
	for ch := range dst {
		for i := range dst[ch] {
			dst[ch][i] = float32(base+i) + float32(ch)*0.25
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		channels     int
		capacity     int
		wantChannels int
		wantCapacity int
	}{
		{"stereo two seconds", 2, 96000, 2, 96000},
		{"mono small", 1, 64, 1, 64},
		{"clamps non-positive channels", 0, 64, 1, 64},
		{"clamps non-positive capacity", 2, 0, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := New(tt.channels, tt.capacity)
			if rb.Channels() != tt.wantChannels {
				t.Errorf("Channels: got %d, want %d", rb.Channels(), tt.wantChannels)
			}
			if rb.Capacity() != tt.wantCapacity {
				t.Errorf("Capacity: got %d, want %d", rb.Capacity(), tt.wantCapacity)
			}
			if rb.Available() != 0 {
				t.Errorf("Available on new buffer: got %d, want 0", rb.Available())
			}
		})
	}
}

func TestWriteReadPreservesOrder(t *testing.T) {
	rb := New(2, 128)

	first := planar(2, 40)
	ramp(first, 0)
	second := planar(2, 30)
	ramp(second, 40)

	if n := rb.Write(first, 40); n != 40 {
		t.Fatalf("first Write: got %d, want 40", n)
	}
	if n := rb.Write(second, 30); n != 30 {
		t.Fatalf("second Write: got %d, want 30", n)
	}
	if rb.Available() != 70 {
		t.Fatalf("Available: got %d, want 70", rb.Available())
	}

	dst := planar(2, 70)
	if n := rb.Read(dst, 70); n != 70 {
		t.Fatalf("Read: got %d, want 70", n)
	}

	for ch := 0; ch < 2; ch++ {
		for i := 0; i < 70; i++ {
			want := float32(i) + float32(ch)*0.25
			if dst[ch][i] != want {
				t.Fatalf("channel %d sample %d: got %v, want %v", ch, i, dst[ch][i], want)
			}
		}
	}
}

func TestWriteDropsExcessWithoutCorruption(t *testing.T) {
	rb := New(2, 32)

	src := planar(2, 32)
	ramp(src, 0)
	if n := rb.Write(src, 32); n != 32 {
		t.Fatalf("fill Write: got %d, want 32", n)
	}

	// Buffer is full; this write must drop everything.
	overflow := planar(2, 16)
	ramp(overflow, 1000)
	if n := rb.Write(overflow, 16); n != 0 {
		t.Fatalf("overflow Write: got %d, want 0", n)
	}

	// Drain 10 and try again; only 10 must fit.
	dst := planar(2, 10)
	if n := rb.Read(dst, 10); n != 10 {
		t.Fatalf("partial Read: got %d, want 10", n)
	}
	if n := rb.Write(overflow, 16); n != 10 {
		t.Fatalf("refill Write: got %d, want 10", n)
	}

	// The original 22 buffered samples must be intact.
	rest := planar(2, 22)
	if n := rb.Read(rest, 22); n != 22 {
		t.Fatalf("rest Read: got %d, want 22", n)
	}
	for i := 0; i < 22; i++ {
		if rest[0][i] != float32(10+i) {
			t.Fatalf("sample %d corrupted: got %v, want %v", i, rest[0][i], float32(10+i))
		}
	}
}

func TestReadBeyondAvailableLeavesSilence(t *testing.T) {
	rb := New(2, 64)

	src := planar(2, 8)
	ramp(src, 1)
	rb.Write(src, 8)

	// Pre-zeroed full block; only 8 samples may be overwritten.
	dst := planar(2, 32)
	if n := rb.Read(dst, 32); n != 8 {
		t.Fatalf("Read: got %d, want 8", n)
	}
	for ch := 0; ch < 2; ch++ {
		for i := 8; i < 32; i++ {
			if dst[ch][i] != 0 {
				t.Fatalf("channel %d sample %d not silent: %v", ch, i, dst[ch][i])
			}
		}
	}
}

func TestReadEmptyBuffer(t *testing.T) {
	rb := New(2, 64)

	dst := planar(2, 16)
	if n := rb.Read(dst, 16); n != 0 {
		t.Errorf("Read on empty buffer: got %d, want 0", n)
	}
	for ch := range dst {
		for i := range dst[ch] {
			if dst[ch][i] != 0 {
				t.Fatalf("empty read disturbed destination at [%d][%d]", ch, i)
			}
		}
	}
}

func TestClearThenRead(t *testing.T) {
	rb := New(2, 64)

	src := planar(2, 20)
	ramp(src, 0)
	rb.Write(src, 20)

	rb.Clear()

	if rb.Available() != 0 {
		t.Errorf("Available after Clear: got %d, want 0", rb.Available())
	}
	dst := planar(2, 20)
	if n := rb.Read(dst, 20); n != 0 {
		t.Errorf("Read after Clear: got %d, want 0", n)
	}
}

func TestWriteAfterClearIsVisible(t *testing.T) {
	rb := New(2, 64)

	stale := planar(2, 30)
	ramp(stale, 500)
	rb.Write(stale, 30)

	rb.Clear()

	fresh := planar(2, 5)
	ramp(fresh, 0)
	if n := rb.Write(fresh, 5); n != 5 {
		t.Fatalf("Write after Clear: got %d, want 5", n)
	}

	dst := planar(2, 5)
	if n := rb.Read(dst, 5); n != 5 {
		t.Fatalf("Read after Clear+Write: got %d, want 5", n)
	}
	for i := 0; i < 5; i++ {
		if dst[0][i] != float32(i) {
			t.Fatalf("sample %d: got %v, want %v", i, dst[0][i], float32(i))
		}
	}
}

func TestWrapAround(t *testing.T) {
	rb := New(1, 16)

	// Advance the cursors close to the end, then write across the seam.
	pad := planar(1, 12)
	ramp(pad, 0)
	rb.Write(pad, 12)
	dst := planar(1, 12)
	rb.Read(dst, 12)

	src := planar(1, 10)
	ramp(src, 100)
	if n := rb.Write(src, 10); n != 10 {
		t.Fatalf("wrapping Write: got %d, want 10", n)
	}

	out := planar(1, 10)
	if n := rb.Read(out, 10); n != 10 {
		t.Fatalf("wrapping Read: got %d, want 10", n)
	}
	for i := 0; i < 10; i++ {
		if out[0][i] != float32(100+i) {
			t.Fatalf("sample %d: got %v, want %v", i, out[0][i], float32(100+i))
		}
	}
}

func TestWriteInterleaved(t *testing.T) {
	rb := New(2, 64)

	// Interleaved L0 R0 L1 R1 ...
	src := make([]float32, 2*10)
	for i := 0; i < 10; i++ {
		src[i*2] = float32(i)
		src[i*2+1] = float32(i) + 0.5
	}

	if n := rb.WriteInterleaved(src, 10); n != 10 {
		t.Fatalf("WriteInterleaved: got %d, want 10", n)
	}

	dst := planar(2, 10)
	if n := rb.Read(dst, 10); n != 10 {
		t.Fatalf("Read: got %d, want 10", n)
	}
	for i := 0; i < 10; i++ {
		if dst[0][i] != float32(i) {
			t.Fatalf("left sample %d: got %v, want %v", i, dst[0][i], float32(i))
		}
		if dst[1][i] != float32(i)+0.5 {
			t.Fatalf("right sample %d: got %v, want %v", i, dst[1][i], float32(i)+0.5)
		}
	}
}

func TestWriteInterleavedDropsExcess(t *testing.T) {
	rb := New(2, 8)

	src := make([]float32, 2*12)
	for i := range src {
		src[i] = float32(i)
	}

	if n := rb.WriteInterleaved(src, 12); n != 8 {
		t.Fatalf("WriteInterleaved over capacity: got %d, want 8", n)
	}
	if rb.Available() != 8 {
		t.Errorf("Available: got %d, want 8", rb.Available())
	}
}

func TestReadFewerDestinationChannels(t *testing.T) {
	rb := New(2, 32)

	src := planar(2, 6)
	ramp(src, 0)
	rb.Write(src, 6)

	// Mono destination still consumes the full stereo frame.
	dst := planar(1, 6)
	if n := rb.Read(dst, 6); n != 6 {
		t.Fatalf("Read: got %d, want 6", n)
	}
	if rb.Available() != 0 {
		t.Errorf("Available after mono read: got %d, want 0", rb.Available())
	}
	for i := 0; i < 6; i++ {
		if dst[0][i] != float32(i) {
			t.Fatalf("sample %d: got %v, want %v", i, dst[0][i], float32(i))
		}
	}
}

func TestWriteFewerSourceChannelsLeavesSilence(t *testing.T) {
	rb := New(2, 8)

	// Cycle a full stereo block through so every lane position holds
	// leftover data and the cursors wrap back to the start.
	full := planar(2, 8)
	ramp(full, 1)
	rb.Write(full, 8)
	rb.Read(planar(2, 8), 8)

	// Mono source into a stereo buffer: the right lane must come back
	// silent, not replay the leftovers.
	mono := planar(1, 6)
	ramp(mono, 100)
	if n := rb.Write(mono, 6); n != 6 {
		t.Fatalf("Write: got %d, want 6", n)
	}

	dst := planar(2, 6)
	if n := rb.Read(dst, 6); n != 6 {
		t.Fatalf("Read: got %d, want 6", n)
	}
	for i := 0; i < 6; i++ {
		if dst[0][i] != float32(100+i) {
			t.Fatalf("left sample %d: got %v, want %v", i, dst[0][i], float32(100+i))
		}
		if dst[1][i] != 0 {
			t.Fatalf("right sample %d: got %v, want 0", i, dst[1][i])
		}
	}

	// A wrapping write must silence both segments of the missing lane.
	if n := rb.Write(mono, 4); n != 4 {
		t.Fatalf("wrapping Write: got %d, want 4", n)
	}
	wrapped := planar(2, 4)
	if n := rb.Read(wrapped, 4); n != 4 {
		t.Fatalf("wrapping Read: got %d, want 4", n)
	}
	for i := 0; i < 4; i++ {
		if wrapped[1][i] != 0 {
			t.Fatalf("right sample %d after wrap: got %v, want 0", i, wrapped[1][i])
		}
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	rb := New(2, 256)

	const totalSamples = 10000
	const batch = 64

	var wg sync.WaitGroup
	wg.Add(2)

	// Producer: monotonically increasing ramp so the consumer can verify
	// ordering across wrap boundaries. Partial writes retry from the new
	// offset on the next iteration.
	go func() {
		defer wg.Done()
		src := planar(2, batch)
		written := 0
		for written < totalSamples {
			n := batch
			if totalSamples-written < n {
				n = totalSamples - written
			}
			for i := 0; i < n; i++ {
				src[0][i] = float32(written + i)
				src[1][i] = float32(written + i)
			}
			written += rb.Write(src, n)
		}
	}()

	go func() {
		defer wg.Done()
		dst := planar(2, batch)
		next := float32(0)
		read := 0
		for read < totalSamples {
			n := rb.Read(dst, batch)
			for i := 0; i < n; i++ {
				if dst[0][i] != next {
					t.Errorf("sample out of order: got %v, want %v", dst[0][i], next)
					return
				}
				next++
			}
			read += n
		}
	}()

	wg.Wait()
}

func BenchmarkWrite(b *testing.B) {
	rb := New(2, 8192)
	src := planar(2, 512)
	ramp(src, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rb.Write(src, 512)
		if rb.Free() < 512 {
			rb.Clear()
		}
	}
}

func BenchmarkWriteInterleaved(b *testing.B) {
	rb := New(2, 8192)
	src := make([]float32, 2*512)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rb.WriteInterleaved(src, 512)
		if rb.Free() < 512 {
			rb.Clear()
		}
	}
}

func BenchmarkRead(b *testing.B) {
	rb := New(2, 8192)
	src := planar(2, 4096)
	dst := planar(2, 512)
	rb.Write(src, 4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rb.Read(dst, 512)
		if rb.Available() < 512 {
			rb.Clear()
			rb.Write(src, 4096)
		}
	}
}
