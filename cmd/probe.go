package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/drgolem/mediakit/pkg/media"
	"github.com/drgolem/mediakit/pkg/vlc"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <media_file>",
	Short: "Inspect media duration, tracks and format",
	Long: `Open a media file with the decode engine, parse it, and print what
the engine found: duration, track counts and the decode contract the
player applies to the audio stream.

Examples:
  # Inspect a video file
  mediakit probe movie.mp4

  # Inspect with a custom plugin directory
  mediakit probe --plugin-path /usr/lib/vlc/plugins movie.mp4`,
	Args: cobra.ExactArgs(1),
	Run:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().String("plugin-path", "", "Engine plugin directory")
}

func runProbe(cmd *cobra.Command, args []string) {
	fileName := args[0]

	// Keep the report clean: engine/player progress logging stays on
	// stderr at warn level, the report itself goes to stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	pluginPath, err := cmd.Flags().GetString("plugin-path")
	if err != nil {
		slog.Error("Failed to get plugin-path flag", "error", err)
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

	if err := player.Open(fileName); err != nil {
		slog.Error("Failed to open media", "error", err)
		os.Exit(1)
	}

	fmt.Printf("File:          %s\n", fileName)
	fmt.Printf("Engine:        libVLC %s\n", engine.Version())
	if d := player.TotalDuration(); d >= 0 {
		fmt.Printf("Duration:      %s (%.3f s)\n", formatClock(d), d)
		fmt.Printf("Total samples: %d\n", player.TotalSamples())
	} else {
		fmt.Println("Duration:      unknown")
	}
	fmt.Printf("Audio tracks:  %d\n", player.AudioTracks())
	fmt.Printf("Video tracks:  %d\n", player.VideoTracks())
	fmt.Printf("Decode format: %.0f Hz, %d ch, float32 planar\n",
		player.SampleRate(), player.Channels())
}

// formatClock renders seconds as hh:mm:ss.msec.
func formatClock(seconds float64) string {
	ms := int64(seconds * 1000)
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		ms/3600000, (ms%3600000)/60000, (ms%60000)/1000, ms%1000)
}
