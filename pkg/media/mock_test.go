package media

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// mockEngine hands out a prepared session so tests control every engine
// response.
type mockEngine struct {
	session    *mockSession
	sessionErr error
}

func (e *mockEngine) NewSession() (Session, error) {
	if e.sessionErr != nil {
		return nil, e.sessionErr
	}
	return e.session, nil
}

func (e *mockEngine) Version() string { return "mock-1.0" }
func (e *mockEngine) Close() error    { return nil }

type setTimeCall struct {
	t    time.Duration
	fast bool
}

type mockSession struct {
	mu sync.Mutex

	setMediaErr error
	parseErr    error
	playErr     error

	mediaSet  bool
	mediaPath string

	duration    time.Duration
	durationOK  bool
	audioTracks int
	videoTracks int

	timeVal time.Duration
	timeOK  bool

	playing bool
	paused  bool

	setTimeCalls    []setTimeCall
	stopCalls       int
	clearMediaCalls int
	clearHandlers   int

	audioHandler AudioHandler
	videoHandler VideoHandler

	events    chan Event
	closed    bool
	closeOnce sync.Once
}

func newMockSession() *mockSession {
	return &mockSession{
		timeOK: true,
		events: make(chan Event, 8),
	}
}

func (s *mockSession) SetMedia(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setMediaErr != nil {
		return s.setMediaErr
	}
	s.mediaSet = true
	s.mediaPath = path
	return nil
}

func (s *mockSession) ClearMedia() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaSet = false
	s.mediaPath = ""
	s.clearMediaCalls++
}

func (s *mockSession) Parse() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parseErr
}

func (s *mockSession) Duration() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration, s.durationOK
}

func (s *mockSession) AudioTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioTracks
}

func (s *mockSession) VideoTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoTracks
}

func (s *mockSession) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	s.paused = false
	return nil
}

func (s *mockSession) SetPause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *mockSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.stopCalls++
}

func (s *mockSession) SetTime(t time.Duration, fast bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTimeCalls = append(s.setTimeCalls, setTimeCall{t: t, fast: fast})
	s.timeVal = t
}

func (s *mockSession) Time() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeVal, s.timeOK
}

func (s *mockSession) SetAudioHandler(h AudioHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioHandler = h
}

func (s *mockSession) SetVideoHandler(h VideoHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoHandler = h
}

func (s *mockSession) ClearHandlers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioHandler = nil
	s.videoHandler = nil
	s.clearHandlers++
}

func (s *mockSession) Events() <-chan Event { return s.events }

func (s *mockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

func (s *mockSession) setTime(t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeVal = t
}

func (s *mockSession) lastSeek(t *testing.T) setTimeCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.setTimeCalls) == 0 {
		t.Fatal("expected a SetTime call, got none")
	}
	return s.setTimeCalls[len(s.setTimeCalls)-1]
}

// recordingListener captures every notification for assertions.
type recordingListener struct {
	mu       sync.Mutex
	ready    int
	finished int
	errors   []string
	seeks    []int64
}

func (l *recordingListener) MediaReady(p *Player) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready++
}

func (l *recordingListener) MediaError(p *Player, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

func (l *recordingListener) MediaFinished(p *Player) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished++
}

func (l *recordingListener) SeekCompleted(p *Player, sampleIndex int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seeks = append(l.seeks, sampleIndex)
}

func (l *recordingListener) readyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

func (l *recordingListener) finishedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished
}

func (l *recordingListener) seekCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seeks)
}

func (l *recordingListener) seekSamples() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, len(l.seeks))
	copy(out, l.seeks)
	return out
}

func (l *recordingListener) errorMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.errors))
	copy(out, l.errors)
	return out
}

func (l *recordingListener) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func testConfig() Config {
	return Config{
		SampleRate:    44100,
		Channels:      2,
		BufferSamples: 1024,
		PollInterval:  time.Millisecond,
	}
}

func newTestPlayer(t *testing.T, session *mockSession) *Player {
	t.Helper()
	p := NewPlayer(&mockEngine{session: session}, testConfig())
	t.Cleanup(p.Shutdown)
	return p
}

// writeTempMedia creates a throwaway file so Open's existence check
// passes; the mock session never reads it.
func writeTempMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really media"), 0o644); err != nil {
		t.Fatalf("writing temp media: %v", err)
	}
	return path
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
