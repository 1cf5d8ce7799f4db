package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mediakit",
	Short: "libVLC-backed seekable media playback toolkit",
	Long: `mediakit - A media playback toolkit built around a libVLC decode
engine exposed as a sample-accurate, seekable audio/video source.

Features:
  - Engine decoding routed through memory callbacks into a lock-free
    SPSC ringbuffer (audio) and a mutex-guarded frame store (video)
  - Real-time playback over PortAudio with silence-on-underrun
  - Sample-addressed seeking with stale-audio purging across seeks
  - Position tracking driven by the engine clock
  - Offline audio extraction to WAV with optional resampling

Commands:
  - play: Play a media file with real-time status reporting
  - probe: Inspect media duration, tracks and format
  - extract: Capture the decoded audio stream to a WAV file
  - snapshot: Save a decoded video frame as a PNG image`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
