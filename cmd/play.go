package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/drgolem/mediakit/internal/audiosink"
	"github.com/drgolem/mediakit/pkg/media"
	"github.com/drgolem/mediakit/pkg/vlc"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"
)

var (
	playDeviceIdx  int
	playFrames     int
	playPluginPath string
	playSeek       float64
	playFast       bool
	playVerbose    bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <media_file>",
	Short: "Play a media file through the decode engine",
	Long: `Play audio from any media file the decode engine understands.
The engine decodes into a lock-free ringbuffer; PortAudio pulls from it
in the real-time callback with silence on underrun.

Examples:
  # Play a file
  mediakit play movie.mp4

  # Play on a specific output device
  mediakit play -d 0 concert.mkv

  # Start two minutes in
  mediakit play --seek 120 podcast.mp3

  # Fast (keyframe) seek instead of precise
  mediakit play --seek 120 --fast movie.mp4

  # Point the engine at its plugin directory
  mediakit play --plugin-path /usr/lib/vlc/plugins movie.mp4

Status Reporting:
  Playback status is displayed every 2 seconds showing:
  - Player state and media duration
  - Current sample position and audio time
  - Buffered samples in the ringbuffer`,
	Args: cobra.ExactArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	playCmd.Flags().IntVarP(&playFrames, "paframes", "p", 512, "Audio frames per PortAudio buffer")
	playCmd.Flags().StringVar(&playPluginPath, "plugin-path", "", "Engine plugin directory")
	playCmd.Flags().Float64Var(&playSeek, "seek", 0, "Start position in seconds")
	playCmd.Flags().BoolVar(&playFast, "fast", false, "Use fast (keyframe) seeking for the start position")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

// playbackWatcher turns player notifications into a done signal for the
// command loop. Engine threads deliver these, so closing is once-guarded.
type playbackWatcher struct {
	done chan struct{}
	once sync.Once
}

func newPlaybackWatcher() *playbackWatcher {
	return &playbackWatcher{done: make(chan struct{})}
}

func (w *playbackWatcher) MediaReady(p *media.Player) {
	slog.Info("Media ready",
		"duration_sec", p.TotalDuration(),
		"total_samples", p.TotalSamples(),
		"has_audio", p.HasAudio(),
		"has_video", p.HasVideo())
}

func (w *playbackWatcher) MediaFinished(p *media.Player) {
	w.once.Do(func() { close(w.done) })
}

func (w *playbackWatcher) MediaError(p *media.Player, msg string) {
	slog.Error("Engine reported error", "message", msg)
	w.once.Do(func() { close(w.done) })
}

func (w *playbackWatcher) SeekCompleted(p *media.Player, sample int64) {
	slog.Info("Seek completed", "sample", sample, "time_sec", p.CurrentTime())
}

func runPlay(cmd *cobra.Command, args []string) {
	fileName := args[0]

	logLevel := slog.LevelInfo
	if playVerbose {
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
	engineCfg.PluginPath = playPluginPath
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

	slog.Info("Initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("Failed to initialize PortAudio", "error", err)
		slog.Error("Hint: Make sure PortAudio is installed on your system")
		os.Exit(1)
	}
	defer portaudio.Terminate()

	slog.Info("PortAudio initialized",
		"version", portaudio.GetVersion())

	sink := audiosink.New(player, audiosink.Config{
		DeviceIndex:     playDeviceIdx,
		SampleRate:      player.SampleRate(),
		Channels:        player.Channels(),
		FramesPerBuffer: playFrames,
	})
	if err := sink.Start(); err != nil {
		slog.Error("Failed to start audio output", "error", err)
		os.Exit(1)
	}
	defer sink.Stop()

	if playSeek > 0 {
		mode := media.SeekPrecise
		if playFast {
			mode = media.SeekFast
		}
		player.SeekToTime(playSeek, mode)
	}

	slog.Info("Starting playback")
	player.Play()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := player.Status()
			slog.Info("Playback status",
				"state", st.State,
				"time_sec", st.CurrentTime,
				"duration_sec", st.TotalDuration,
				"sample", st.CurrentSample,
				"buffered_samples", st.BufferedSamples,
				"frames_rendered", sink.FramesRendered())
		case <-watcher.done:
			slog.Info("Playback completed")
			player.Stop()
			return
		case sig := <-sigChan:
			slog.Info("Signal received, stopping playback", "signal", sig)
			player.Stop()
			return
		}
	}
}
