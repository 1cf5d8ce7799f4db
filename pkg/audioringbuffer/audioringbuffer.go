package audioringbuffer

import (
	"sync/atomic"
)

// AudioRingBuffer is a lock-free single-producer single-consumer ring buffer
// holding planar float32 audio samples, one storage lane per channel.
//
// It bridges an asynchronous decoder push path to a real-time pull path:
// the producer (decoder thread) writes whatever the decoder delivers and
// drops the excess when the buffer is full; the consumer (audio device
// thread) reads whatever is available and treats the shortfall as silence.
// Neither side ever blocks.
//
// Thread safety model:
//   - Write/WriteInterleaved must only be called by the producer thread
//   - Read must only be called by the consumer thread
//   - Clear may be called from a third (controller) thread; see Clear
//   - All shared cursors are atomics; no locks on the hot path
type AudioRingBuffer struct {
	channels int
	capacity int
	data     [][]float32

	// writePos and readPos are positions in [0,capacity); available is the
	// count of unread samples in [0,capacity]. The producer advances
	// writePos/available, the consumer advances readPos and decrements
	// available. Invariant: available == (writePos-readPos) mod capacity.
	writePos  atomic.Int64
	readPos   atomic.Int64
	available atomic.Int64
}

// New creates a ring buffer with the given channel count and per-channel
// capacity in samples. Both must be positive; the buffer is allocated once
// and never resized.
func New(channels, capacity int) *AudioRingBuffer {
	if channels < 1 {
		channels = 1
	}
	if capacity < 1 {
		capacity = 1
	}

	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, capacity)
	}

	return &AudioRingBuffer{
		channels: channels,
		capacity: capacity,
		data:     data,
	}
}

// Channels returns the number of channels.
func (rb *AudioRingBuffer) Channels() int {
	return rb.channels
}

// Capacity returns the per-channel capacity in samples.
func (rb *AudioRingBuffer) Capacity() int {
	return rb.capacity
}

// Available returns the number of samples ready to read, clamped to
// [0,capacity]. The value is advisory when racing Clear.
func (rb *AudioRingBuffer) Available() int {
	avail := int(rb.available.Load())
	if avail < 0 {
		return 0
	}
	if avail > rb.capacity {
		return rb.capacity
	}
	return avail
}

// Free returns the number of samples that can be written without dropping.
func (rb *AudioRingBuffer) Free() int {
	return rb.capacity - rb.Available()
}

// Write writes up to count samples per channel from planar source slices.
// src[ch] must hold at least count samples for each channel lane present;
// extra source channels are ignored, missing ones are left silent.
//
// Write never blocks and never overwrites unread data: when fewer than
// count samples fit, the excess is silently dropped and the number of
// samples actually written is returned. The producer must tolerate
// backpressure by dropping, not stalling, because it runs on a decoder
// thread the engine owns.
//
// This method must only be called by the producer thread.
func (rb *AudioRingBuffer) Write(src [][]float32, count int) int {
	if count <= 0 {
		return 0
	}

	free := rb.capacity - int(rb.available.Load())
	if free <= 0 {
		return 0
	}

	toWrite := count
	if toWrite > free {
		toWrite = free
	}

	writePos := int(rb.writePos.Load())

	// One or two contiguous segments depending on wrap.
	first := toWrite
	if first > rb.capacity-writePos {
		first = rb.capacity - writePos
	}
	second := toWrite - first

	for ch := 0; ch < rb.channels; ch++ {
		lane := rb.data[ch]
		if ch >= len(src) {
			// Lanes reuse storage, so a missing source channel must be
			// zeroed or it replays whatever was written there before.
			clear(lane[writePos : writePos+first])
			clear(lane[:second])
			continue
		}
		in := src[ch]
		copy(lane[writePos:writePos+first], in[:first])
		copy(lane[:second], in[first:toWrite])
	}

	rb.writePos.Store(int64((writePos + toWrite) % rb.capacity))
	rb.available.Add(int64(toWrite))

	return toWrite
}

// WriteInterleaved writes up to frames sample frames from an interleaved
// source, deinterleaving into the per-channel lanes. src must hold at
// least frames*Channels() values.
//
// Same non-blocking drop-excess policy as Write. This is the decoder
// bridge's fast path for engine-delivered interleaved float blocks.
//
// This method must only be called by the producer thread.
func (rb *AudioRingBuffer) WriteInterleaved(src []float32, frames int) int {
	if frames <= 0 {
		return 0
	}

	free := rb.capacity - int(rb.available.Load())
	if free <= 0 {
		return 0
	}

	toWrite := frames
	if toWrite > free {
		toWrite = free
	}

	writePos := int(rb.writePos.Load())

	for i := 0; i < toWrite; i++ {
		idx := writePos + i
		if idx >= rb.capacity {
			idx -= rb.capacity
		}
		base := i * rb.channels
		for ch := 0; ch < rb.channels; ch++ {
			rb.data[ch][idx] = src[base+ch]
		}
	}

	rb.writePos.Store(int64((writePos + toWrite) % rb.capacity))
	rb.available.Add(int64(toWrite))

	return toWrite
}

// Read reads up to maxCount samples per channel into planar destination
// slices and returns the number of samples actually read. dst[ch] must
// hold at least maxCount samples; only min(len(dst), Channels()) lanes
// are copied, but the read position always advances across all channels.
//
// Destination samples beyond the returned count are NOT touched: the
// caller must pre-zero the block so that underrun yields silence.
//
// This method must only be called by the consumer thread.
func (rb *AudioRingBuffer) Read(dst [][]float32, maxCount int) int {
	if maxCount <= 0 {
		return 0
	}

	avail := int(rb.available.Load())
	if avail <= 0 {
		return 0
	}
	if avail > rb.capacity {
		avail = rb.capacity
	}

	toRead := maxCount
	if toRead > avail {
		toRead = avail
	}

	readPos := int(rb.readPos.Load())

	first := toRead
	if first > rb.capacity-readPos {
		first = rb.capacity - readPos
	}
	second := toRead - first

	channels := rb.channels
	if channels > len(dst) {
		channels = len(dst)
	}
	for ch := 0; ch < channels; ch++ {
		lane := rb.data[ch]
		out := dst[ch]
		copy(out[:first], lane[readPos:readPos+first])
		copy(out[first:toRead], lane[:second])
	}

	rb.readPos.Store(int64((readPos + toRead) % rb.capacity))
	if rb.available.Add(int64(-toRead)) < 0 {
		// Clear raced this read; favor a short underrun over stale data.
		rb.available.Store(0)
	}

	return toRead
}

// Clear resets all three cursors to zero. Buffered contents are left in
// place and are never read until a new write publishes fresh samples.
//
// Clear may race a concurrent Read or Write: the cursors are reset as a
// group of three that the other side may briefly observe inconsistent.
// The worst outcomes are bounded: the reader produces at most one short
// underrun, and a write in flight across the reset may be wholly or
// partially discarded, which is indistinguishable from the stale-audio
// purge the clear was issued for.
func (rb *AudioRingBuffer) Clear() {
	rb.readPos.Store(0)
	rb.writePos.Store(0)
	rb.available.Store(0)
}
