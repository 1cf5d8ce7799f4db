package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/drgolem/mediakit/pkg/audioringbuffer"
)

func main() {
	fmt.Println("AudioRingBuffer - Producer/Consumer Example")
	fmt.Println("===========================================")
	fmt.Println()

	const channels = 2
	const capacity = 8192

	// Create ring buffer: 2 channels, 8192 samples per channel
	rb := audioringbuffer.New(channels, capacity)
	fmt.Printf("Ring buffer created: channels=%d capacity=%d samples\n\n",
		rb.Channels(), rb.Capacity())

	const totalSamples = 100000
	const blockSize = 1024

	var wg sync.WaitGroup
	wg.Add(2)

	// Statistics
	producedCount := 0
	consumedCount := 0
	mismatches := 0

	// rampValue tags every sample with a value derived from its absolute
	// position, so the consumer can verify ordering across wrap-arounds.
	rampValue := func(pos int) float32 {
		return float32(pos%1000) / 1000.0
	}

	// Producer goroutine
	go func() {
		defer wg.Done()
		fmt.Println("[Producer] Starting...")

		block := make([][]float32, channels)
		for ch := range block {
			block[ch] = make([]float32, blockSize)
		}

		for producedCount < totalSamples {
			n := blockSize
			if n > totalSamples-producedCount {
				n = totalSamples - producedCount
			}

			// Left channel carries the ramp, right channel its negation
			for i := 0; i < n; i++ {
				v := rampValue(producedCount + i)
				block[0][i] = v
				block[1][i] = -v
			}

			// Write to ring buffer (handles partial writes by re-slicing)
			off := 0
			for off < n {
				rest := [][]float32{block[0][off:n], block[1][off:n]}
				written := rb.Write(rest, n-off)
				if written > 0 {
					off += written
					producedCount += written
					if producedCount%25000 < blockSize {
						fmt.Printf("[Producer] Produced %d samples (available: %d)\n",
							producedCount, rb.Available())
					}
				} else {
					// Buffer full, yield to consumer
					time.Sleep(time.Microsecond)
				}
			}

			// Simulate decoding time
			time.Sleep(100 * time.Microsecond)
		}

		fmt.Printf("[Producer] Finished! Total produced: %d samples\n", producedCount)
	}()

	// Consumer goroutine
	go func() {
		defer wg.Done()
		fmt.Println("[Consumer] Starting...")
		time.Sleep(10 * time.Millisecond) // Let producer get ahead

		block := make([][]float32, channels)
		for ch := range block {
			block[ch] = make([]float32, blockSize)
		}

		for consumedCount < totalSamples {
			n := rb.Read(block, blockSize)
			if n == 0 {
				// Buffer empty, yield to producer
				time.Sleep(time.Microsecond)
				continue
			}

			// Verify sample ordering on both channels
			for i := 0; i < n; i++ {
				want := rampValue(consumedCount + i)
				if block[0][i] != want || block[1][i] != -want {
					mismatches++
				}
			}

			consumedCount += n
			if consumedCount%25000 < blockSize {
				fmt.Printf("[Consumer] Consumed %d samples (available: %d)\n",
					consumedCount, rb.Available())
			}

			// Simulate processing time
			time.Sleep(150 * time.Microsecond)
		}

		fmt.Printf("[Consumer] Finished! Total consumed: %d samples\n", consumedCount)
	}()

	// Wait for completion
	wg.Wait()

	fmt.Println()
	fmt.Println("Results:")
	fmt.Printf("  Produced:  %d samples\n", producedCount)
	fmt.Printf("  Consumed:  %d samples\n", consumedCount)
	fmt.Printf("  Mismatches: %d\n", mismatches)
	fmt.Printf("  Remaining in buffer: %d samples\n", rb.Available())

	if producedCount == totalSamples && consumedCount == totalSamples && mismatches == 0 {
		fmt.Println()
		fmt.Println("✓ SUCCESS: All samples produced and consumed in order!")
	} else {
		fmt.Println()
		fmt.Println("✗ ERROR: Sample count or ordering mismatch!")
	}
}
