package media

import (
	"log/slog"
	"time"
)

// trackPosition is the player's single background goroutine. While
// playing it refreshes the authoritative sample position from the engine
// clock at the configured poll interval; it also forwards engine events
// to listeners so they never run on an engine thread. It exits when
// Shutdown closes the stop channel.
func (p *Player) trackPosition() {
	defer p.trackerWg.Done()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	events := p.events

	for {
		select {
		case <-p.trackerStop:
			return
		case <-ticker.C:
			p.pollPosition()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p.handleEvent(ev)
		}
	}
}

// pollPosition asks the engine for the current media time and republishes
// it as the sample position. The engine clock is authoritative: between
// polls the pull path advances the position by samples consumed, and each
// poll overwrites that estimate. Runs only while playing; a paused or
// stopped player keeps its last position.
func (p *Player) pollPosition() {
	if p.session == nil || !p.playing.Load() {
		return
	}

	t, ok := p.session.Time()
	if !ok {
		return
	}
	if t < 0 {
		t = 0
	}

	sample := int64(t.Seconds() * p.sampleRate)
	p.currentSample.Store(sample)

	// A pending seek completes on the first successful poll after it.
	// Back-to-back seeks overwrite the pending record, so only the
	// latest one reports completion.
	if ps := p.pendingSeek.Swap(nil); ps != nil {
		slog.Debug("media: seek completed", "generation", ps.gen, "sample", sample)
		p.notify(func(l Listener) { l.SeekCompleted(p, sample) })
	}
}

func (p *Player) handleEvent(ev Event) {
	switch ev.Kind {
	case EventEndReached:
		p.playing.Store(false)
		p.state.Store(int32(StateStopped))
		slog.Debug("media: end of media reached")
		p.notify(func(l Listener) { l.MediaFinished(p) })
	case EventError:
		p.playing.Store(false)
		p.state.Store(int32(StateStopped))
		slog.Error("media: engine error", "error", ev.Message)
		p.notify(func(l Listener) { l.MediaError(p, ev.Message) })
	}
}
