package media

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
)

// decoderBridge translates the engine's callback ABI into ring buffer and
// frame store operations. It holds a non-owning back-reference to the
// player; every entry point checks the player's liveness flag first so
// that a callback racing teardown degrades to a no-op instead of touching
// state being released.
//
// Audio blocks are tagged with the seek generation observed at lock time
// and dropped at unlock time if a seek or flush has bumped the generation
// since: a decode already in flight when the buffer was cleared must not
// land stale audio behind the seek point.
type decoderBridge struct {
	player *Player

	// lockGen carries the generation from AudioLock to the matching
	// AudioUnlock. The engine delivers audio from a single decode
	// thread, one block at a time; if an engine ever interleaved lock
	// pairs the worst case is a conservative drop.
	lockGen atomic.Uint64

	bytePool  sync.Pool // []byte scratch handed to the engine
	floatPool sync.Pool // []float32 conversion scratch, unlock-local
}

func newDecoderBridge(p *Player) *decoderBridge {
	return &decoderBridge{player: p}
}

func (b *decoderBridge) AudioLock(byteCount int) []byte {
	if !b.player.alive.Load() || byteCount <= 0 {
		return nil
	}

	b.lockGen.Store(b.player.seekGen.Load())

	buf, _ := b.bytePool.Get().([]byte)
	if cap(buf) < byteCount {
		buf = make([]byte, byteCount)
	}
	return buf[:byteCount]
}

func (b *decoderBridge) AudioUnlock(buf []byte, pts int64) {
	_ = pts

	p := b.player
	if !p.alive.Load() || len(buf) == 0 {
		return
	}
	defer b.bytePool.Put(buf[:cap(buf)])

	if b.lockGen.Load() != p.seekGen.Load() {
		// Superseded by a seek or flush while the engine was decoding.
		return
	}

	channels := p.channels
	frames := len(buf) / (4 * channels)
	if frames == 0 {
		return
	}

	samples, _ := b.floatPool.Get().([]float32)
	if cap(samples) < frames*channels {
		samples = make([]float32, frames*channels)
	}
	samples = samples[:frames*channels]

	// Engine delivers interleaved 32-bit float samples in host byte
	// order; every supported host is little-endian.
	for i := range samples {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		samples[i] = math.Float32frombits(bits)
	}

	p.ring.WriteInterleaved(samples, frames)

	b.floatPool.Put(samples[:cap(samples)])
}

func (b *decoderBridge) AudioPlay(pts int64)   { _ = pts }
func (b *decoderBridge) AudioPause(pts int64)  { _ = pts }
func (b *decoderBridge) AudioResume(pts int64) { _ = pts }

func (b *decoderBridge) AudioFlush(pts int64) {
	_ = pts

	p := b.player
	if !p.alive.Load() {
		return
	}

	// The flush is the purge mechanism on engine-side discontinuities:
	// bump the generation so in-flight blocks drop, then clear.
	p.seekGen.Add(1)
	p.ring.Clear()
}

func (b *decoderBridge) AudioDrain() {}

func (b *decoderBridge) VideoFormat(width, height int) (pitch int, ok bool) {
	p := b.player
	if !p.alive.Load() || width <= 0 || height <= 0 {
		return 0, false
	}

	p.videoWidth.Store(int32(width))
	p.videoHeight.Store(int32(height))

	return width * 4, true
}

func (b *decoderBridge) VideoLock(plane []byte)   { _ = plane }
func (b *decoderBridge) VideoUnlock(plane []byte) { _ = plane }

func (b *decoderBridge) VideoDisplay(plane []byte) {
	p := b.player
	if !p.alive.Load() {
		return
	}

	width := int(p.videoWidth.Load())
	height := int(p.videoHeight.Load())
	p.frames.Publish(plane, width, height)
}

func (b *decoderBridge) VideoCleanup() {}
