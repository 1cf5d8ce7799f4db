package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/mediakit/internal/audiosink"
	"github.com/drgolem/mediakit/pkg/media"
	"github.com/drgolem/mediakit/pkg/vlc"

	"github.com/drgolem/ringbuffer"
	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"
	soxr "github.com/zaf/resample"
)

const (
	// captureBlock is the largest number of frames pulled from the player
	// per pump iteration.
	captureBlock = 4096

	// stagingSize is the byte capacity of the staging ring between the
	// pump goroutine and the collecting loop.
	stagingSize = 1 << 22
)

var extractCmd = &cobra.Command{
	Use:   "extract <media_file>",
	Short: "Extract the decoded audio stream to a WAV file",
	Long: `Decode a media file's audio through the engine and capture the
decoded stream to a 16-bit PCM WAV file, with optional resampling and
mono downmix.

The engine paces its audio callbacks at playback speed, so extraction
takes as long as playing the captured range would.

Examples:
  # Extract a movie's audio track
  mediakit extract movie.mp4 --out audio.wav

  # Resample to 48 kHz on the way out
  mediakit extract movie.mp4 --new-samplerate 48000 --out audio.wav

  # Mono capture of the first 30 seconds
  mediakit extract podcast.mp3 --duration 30 --mono --out clip.wav

Output Format:
  - WAV (16-bit PCM)

Sample Rate Options:
  Common rates: 8000, 16000, 22050, 44100, 48000, 96000, 192000 Hz`,
	Args: cobra.ExactArgs(1),
	Run:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Int("new-samplerate", 44100, "Target sample rate in Hz")
	extractCmd.Flags().String("out", "out_extracted.wav", "Output WAV file path")
	extractCmd.Flags().Bool("mono", false, "Convert output to mono signal (average channels)")
	extractCmd.Flags().Float64("duration", 0, "Capture at most this many seconds (0 = entire media)")
	extractCmd.Flags().String("plugin-path", "", "Engine plugin directory")
}

func runExtract(cmd *cobra.Command, args []string) {
	inFileName := args[0]

	if _, err := os.Stat(inFileName); os.IsNotExist(err) {
		slog.Error("Input file not found", "path", inFileName)
		os.Exit(1)
	}

	newSampleRate, err := cmd.Flags().GetInt("new-samplerate")
	if err != nil {
		slog.Error("Failed to get new-samplerate flag", "error", err)
		os.Exit(1)
	}

	outFileName, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("Failed to get out flag", "error", err)
		os.Exit(1)
	}

	convertToMono, err := cmd.Flags().GetBool("mono")
	if err != nil {
		slog.Error("Failed to get mono flag", "error", err)
		os.Exit(1)
	}

	maxDuration, err := cmd.Flags().GetFloat64("duration")
	if err != nil {
		slog.Error("Failed to get duration flag", "error", err)
		os.Exit(1)
	}

	pluginPath, err := cmd.Flags().GetString("plugin-path")
	if err != nil {
		slog.Error("Failed to get plugin-path flag", "error", err)
		os.Exit(1)
	}

	if newSampleRate <= 0 || newSampleRate > 384000 {
		slog.Error("Invalid sample rate", "rate", newSampleRate, "valid_range", "1-384000")
		os.Exit(1)
	}

	engineCfg := vlc.DefaultConfig()
	engineCfg.PluginPath = pluginPath
	engine, err := vlc.New(engineCfg)
	if err != nil {
		slog.Error("Failed to initialize engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	player := media.NewPlayer(engine, media.DefaultConfig())
	defer player.Shutdown()

	watcher := newPlaybackWatcher()
	player.AddListener(watcher)

	if err := player.Open(inFileName); err != nil {
		slog.Error("Failed to open media", "error", err)
		os.Exit(1)
	}
	if !player.HasAudio() {
		slog.Error("Media has no audio track", "path", inFileName)
		os.Exit(1)
	}

	inSampleRate := int(player.SampleRate())
	channels := player.Channels()

	slog.Info("Audio extraction starting",
		"input_file", inFileName,
		"decode_sample_rate", inSampleRate,
		"decode_channels", channels,
		"output_sample_rate", newSampleRate,
		"output_mono", convertToMono,
		"output_file", outFileName)

	var maxSamples int64 = -1
	if maxDuration > 0 {
		maxSamples = int64(maxDuration * float64(inSampleRate))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	player.Play()

	audioData, totalSamples := captureAudio(player, watcher.done, sigChan, maxSamples)
	player.Stop()

	slog.Info("Capture complete",
		"captured_samples", totalSamples,
		"captured_bytes", len(audioData),
		"captured_seconds", fmt.Sprintf("%.3f", float64(totalSamples)/float64(inSampleRate)))

	if totalSamples == 0 {
		slog.Error("No audio captured")
		os.Exit(1)
	}

	slog.Info("Resampling audio",
		"from_rate", inSampleRate,
		"to_rate", newSampleRate)

	resampledData, err := resampleAudio(audioData, inSampleRate, newSampleRate, channels)
	if err != nil {
		slog.Error("Failed to resample audio", "error", err)
		os.Exit(1)
	}

	const bytesPerSample = 2
	outSamples := len(resampledData) / (channels * bytesPerSample)

	outChannels := channels
	outputData := resampledData

	if convertToMono && channels > 1 {
		slog.Info("Converting to mono", "input_channels", channels)
		outputData = convertToMono16Bit(resampledData, channels)
		outChannels = 1
	}

	slog.Info("Writing output WAV file", "path", outFileName)
	if err := writeWAVFile(outFileName, outputData, uint32(outSamples), uint16(outChannels), uint32(newSampleRate), 16); err != nil {
		slog.Error("Failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("Extraction complete",
		"captured_samples", totalSamples,
		"output_samples", outSamples,
		"sample_rate_ratio", fmt.Sprintf("%.3f", float64(newSampleRate)/float64(inSampleRate)))
}

// captureAudio pulls decoded audio from the player until the media
// finishes, a signal arrives, or the sample cap is reached. A pump
// goroutine drains the player into a staging ring at playback pace; the
// collecting loop empties the ring into one contiguous buffer. Returns
// interleaved 16-bit PCM and the captured frame count.
func captureAudio(player *media.Player, done <-chan struct{}, sig <-chan os.Signal, maxSamples int64) ([]byte, int64) {
	channels := player.Channels()
	bytesPerFrame := channels * 2

	staging := ringbuffer.New(stagingSize)
	stopPump := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(pumpDone)

		planar := make([][]float32, channels)
		for ch := range planar {
			planar[ch] = make([]float32, captureBlock)
		}
		scratch := make([]byte, captureBlock*bytesPerFrame)
		var pulled int64

		// pump moves everything currently buffered in the player into the
		// staging ring. Returns false when the sample cap is reached.
		pump := func() bool {
			for {
				buffered := player.Status().BufferedSamples
				if buffered <= 0 {
					return true
				}
				n := buffered
				if n > captureBlock {
					n = captureBlock
				}
				if maxSamples >= 0 && pulled+int64(n) > maxSamples {
					n = int(maxSamples - pulled)
				}
				if n <= 0 {
					return false
				}

				player.RenderAudioBlock(planar, n)
				block := scratch[:n*bytesPerFrame]
				audiosink.InterleaveInt16(planar, n, block)
				pulled += int64(n)

				// All-or-nothing write; wait for the collector when full.
				for {
					if _, err := staging.Write(block); err == nil {
						break
					}
					select {
					case <-stopPump:
						return false
					default:
						time.Sleep(time.Millisecond)
					}
				}

				if maxSamples >= 0 && pulled >= maxSamples {
					return false
				}
			}
		}

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopPump:
				return
			case <-done:
				// Engine finished or errored; the player stops consuming,
				// so anything still buffered is unreachable. Let it go.
				return
			case <-ticker.C:
				if !pump() {
					return
				}
			}
		}
	}()

	audioData := make([]byte, 0, stagingSize)
	chunk := make([]byte, 64*1024)
	pumpFinished := false

	for {
		n, err := staging.Read(chunk)
		if n > 0 {
			audioData = append(audioData, chunk[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, ringbuffer.ErrInsufficientData) {
			slog.Error("Staging ring read failed", "error", err)
			break
		}
		if pumpFinished {
			break
		}

		select {
		case s := <-sig:
			slog.Info("Signal received, stopping capture", "signal", s)
			close(stopPump)
			<-pumpDone
			pumpFinished = true
		case <-pumpDone:
			pumpFinished = true
		case <-time.After(5 * time.Millisecond):
		}
	}

	return audioData, int64(len(audioData)) / int64(bytesPerFrame)
}

// resampleAudio resamples audio data using SoXR (high-quality resampler)
func resampleAudio(audioData []byte, fromRate, toRate, channels int) ([]byte, error) {
	if fromRate == toRate {
		return audioData, nil
	}

	var bufResampled bytes.Buffer
	bufWriter := bufio.NewWriter(&bufResampled)

	resampler, err := soxr.New(
		bufWriter,
		float64(fromRate),
		float64(toRate),
		channels,
		soxr.I16,   // 16-bit input
		soxr.HighQ, // High quality
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	_, err = resampler.Write(audioData)
	if err != nil {
		resampler.Close()
		return nil, fmt.Errorf("failed to resample: %w", err)
	}

	if err := resampler.Close(); err != nil {
		return nil, fmt.Errorf("failed to close resampler: %w", err)
	}

	if err := bufWriter.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush buffer: %w", err)
	}

	return bufResampled.Bytes(), nil
}

// convertToMono16Bit downmixes interleaved 16-bit audio to mono by
// averaging channels. The input must hold whole frames.
func convertToMono16Bit(data []byte, channels int) []byte {
	if channels == 1 {
		return data
	}

	frames := len(data) / (channels * 2)
	monoData := make([]byte, frames*2)

	for f := 0; f < frames; f++ {
		sum := int32(0)
		for ch := 0; ch < channels; ch++ {
			idx := (f*channels + ch) * 2
			sample := int16(uint16(data[idx]) | uint16(data[idx+1])<<8)
			sum += int32(sample)
		}

		avg := int16(sum / int32(channels))
		monoData[f*2] = byte(avg)
		monoData[f*2+1] = byte(avg >> 8)
	}

	return monoData
}

// writeWAVFile writes audio data to a WAV file
func writeWAVFile(fileName string, audioData []byte, numSamples uint32, numChannels uint16, sampleRate uint32, bitsPerSample uint16) error {
	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	wavWriter := wav.NewWriter(fOut, numSamples, numChannels, sampleRate, bitsPerSample)

	if _, err := wavWriter.Write(audioData); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return nil
}
