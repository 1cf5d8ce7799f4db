package cmd

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/mediakit/pkg/framestore"
	"github.com/drgolem/mediakit/pkg/media"
	"github.com/drgolem/mediakit/pkg/vlc"

	"github.com/spf13/cobra"
)

var (
	snapOut        string
	snapAt         float64
	snapTimeout    float64
	snapPluginPath string
	snapVerbose    bool
)

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot <media_file>",
	Short: "Save a decoded video frame as a PNG image",
	Long: `Play a media file just long enough for the engine to decode a video
frame, then save that frame as a PNG image.

Examples:
  # Grab the first decoded frame
  mediakit snapshot movie.mp4 -o frame.png

  # Grab a frame from two minutes in
  mediakit snapshot movie.mp4 --at 120 -o frame.png

  # Allow more time for slow media
  mediakit snapshot stream.ts --timeout 30 -o frame.png`,
	Args: cobra.ExactArgs(1),
	Run:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVarP(&snapOut, "out", "o", "out_snapshot.png", "Output PNG file path")
	snapshotCmd.Flags().Float64Var(&snapAt, "at", 0, "Seek to this position in seconds before capturing")
	snapshotCmd.Flags().Float64Var(&snapTimeout, "timeout", 10, "Seconds to wait for a decoded frame")
	snapshotCmd.Flags().StringVar(&snapPluginPath, "plugin-path", "", "Engine plugin directory")
	snapshotCmd.Flags().BoolVarP(&snapVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runSnapshot(cmd *cobra.Command, args []string) {
	fileName := args[0]

	logLevel := slog.LevelInfo
	if snapVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("File not found", "path", fileName)
		os.Exit(1)
	}

	engineCfg := vlc.DefaultConfig()
	engineCfg.PluginPath = snapPluginPath
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

	slog.Info("Opening media", "path", fileName)
	if err := player.Open(fileName); err != nil {
		slog.Error("Failed to open media", "error", err)
		os.Exit(1)
	}
	if !player.HasVideo() {
		slog.Error("Media has no video track", "path", fileName)
		os.Exit(1)
	}

	if snapAt > 0 {
		player.SeekToTime(snapAt, media.SeekPrecise)
	}

	player.Play()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	deadline := time.After(time.Duration(snapTimeout * float64(time.Second)))
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var frame framestore.Frame
	captured := false
	for !captured {
		select {
		case <-ticker.C:
			frame, captured = player.CurrentVideoFrame()
		case <-watcher.done:
			// Finished or errored; take whatever made it to the store.
			if frame, captured = player.CurrentVideoFrame(); !captured {
				slog.Error("Media ended before a video frame was decoded")
				os.Exit(1)
			}
		case <-deadline:
			slog.Error("Timed out waiting for a video frame", "timeout_sec", snapTimeout)
			os.Exit(1)
		case s := <-sigChan:
			slog.Info("Signal received, aborting", "signal", s)
			os.Exit(1)
		}
	}

	player.Stop()

	slog.Info("Frame captured",
		"width", frame.Width,
		"height", frame.Height,
		"time_sec", player.CurrentTime())

	if err := writePNG(snapOut, frame); err != nil {
		slog.Error("Failed to write PNG", "error", err)
		os.Exit(1)
	}

	slog.Info("Snapshot written", "path", snapOut)
}

// writePNG encodes a frame as PNG.
func writePNG(fileName string, frame framestore.Frame) error {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	copy(img.Pix, frame.RGBA())

	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	if err := png.Encode(fOut, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	return nil
}
