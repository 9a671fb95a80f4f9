package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asciiplay/asciiplay/internal/ascii"
	"github.com/asciiplay/asciiplay/internal/audioclock"
	"github.com/asciiplay/asciiplay/internal/export"
	"github.com/asciiplay/asciiplay/internal/media"
)

const (
	videoQueueCap = 8
	asciiQueueCap = 8

	// syncAheadThreshold: presenter sleeps when a frame's PTS is this far
	// ahead of the audio clock.
	syncAheadThreshold = 0.01
	// syncBehindThreshold: presenter drops a frame instead of presenting
	// it when its PTS has fallen this far behind the audio clock.
	syncBehindThreshold = -0.05

	// underrunStallThreshold: once the audio clock has not advanced for
	// this long, the presenter stops trusting it and paces against a
	// steady wall clock instead, for as long as the stall lasts.
	underrunStallThreshold = 200 * time.Millisecond
)

// Sink is the subset of termsink.Sink the orchestrator depends on.
type Sink interface {
	Present(f ascii.Frame) error
	PrintStats(prefix, line string)
	PollKey() (key byte, ok bool)
	ClearAndHome()
	Size() (cols, rows int, err error)
}

// Stats is a snapshot of playback counters, read by Snapshot at the
// moment it is called. Underruns/ClockSeconds are exposed for
// callers that want the audio clock's raw state; the printed status line
// uses fps/rendered/dropped/paused instead.
type Stats struct {
	FramesPresented uint64
	FramesDropped   uint64
	Underruns       int64
	ClockSeconds    float64
}

// Pipeline owns the five cooperating goroutines that turn a Decoder into
// terminal output: decode drain, audio drain, ascii worker, presenter, and
// keyboard poller.
type Pipeline struct {
	log *slog.Logger

	decoder  media.Decoder
	renderer *ascii.Renderer
	clock    *audioclock.ClockSink
	sink     Sink
	exporter export.Exporter

	videoQueue *Queue[media.VideoFrame]
	asciiQueue *Queue[ascii.Frame]

	running      atomic.Bool
	paused       atomic.Bool
	audioEnabled atomic.Bool

	framesPresented atomic.Uint64
	framesDropped   atomic.Uint64

	exporting    bool
	statsEnabled bool
	targetFPS    float64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	startedAt time.Time
}

// New constructs a Pipeline. exporter may be nil when not exporting.
func New(log *slog.Logger, decoder media.Decoder, renderer *ascii.Renderer, clock *audioclock.ClockSink, sink Sink, exporter export.Exporter) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		log:          log,
		decoder:      decoder,
		renderer:     renderer,
		clock:        clock,
		sink:         sink,
		exporter:     exporter,
		exporting:    exporter != nil,
		statsEnabled: true,
		videoQueue:   NewQueue[media.VideoFrame](videoQueueCap),
		asciiQueue:   NewQueue[ascii.Frame](asciiQueueCap),
		stopCh:       make(chan struct{}),
	}
	p.audioEnabled.Store(true)
	return p
}

// SetAudioEnabled tells the presenter whether to sync against the audio
// clock (diff-based sleep/present/drop) or, when audio is disabled, pace
// itself against a steady wall clock started at presenter startup and
// never drop a frame. Call before Run.
func (p *Pipeline) SetAudioEnabled(enabled bool) {
	p.audioEnabled.Store(enabled)
}

// SetStatsEnabled controls whether printStats emits a line at all,
// matching the --stats flag. Defaults to true.
func (p *Pipeline) SetStatsEnabled(enabled bool) {
	p.statsEnabled = enabled
}

// SetTargetFPS overrides each frame's PTS with renderedCount/fps instead
// of the decoder's own timestamp, matching the --fps flag. fps <= 0
// disables the override and presentation paces off the decoded PTS.
func (p *Pipeline) SetTargetFPS(fps float64) {
	p.targetFPS = fps
}

// Run starts all five threads and blocks until the stream ends, ctx is
// canceled, or Stop is called.
func (p *Pipeline) Run(ctx context.Context) error {
	p.running.Store(true)
	defer p.running.Store(false)

	p.decoder.Start()

	p.wg.Add(5)
	go p.decodeDrainLoop()
	go p.audioDrainLoop()
	go p.asciiWorkerLoop()
	go p.presenterLoop(ctx)
	go p.keyboardPollLoop(ctx)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		p.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop signals every thread to exit and unblocks any queue waits.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.decoder.Stop()
	p.videoQueue.Close()
	p.asciiQueue.Close()
	p.clock.Close()
}

// decodeDrainLoop pulls decoded video frames and pushes them onto the
// bounded video queue, blocking when it is full (the decoder itself is
// free to keep decoding ahead up to its own internal buffer).
func (p *Pipeline) decodeDrainLoop() {
	defer p.wg.Done()
	for {
		frame, ok := p.decoder.PopVideoFrame()
		if !ok {
			p.videoQueue.Close()
			return
		}
		if !p.videoQueue.Push(frame) {
			return
		}
	}
}

// audioDrainLoop pulls decoded audio frames and enqueues them onto the
// audio clock sink's FIFO, blocking in Enqueue while that FIFO is already
// full so a stalled audio device applies backpressure here too. While
// audio is disabled the frames are discarded instead of enqueued.
func (p *Pipeline) audioDrainLoop() {
	defer p.wg.Done()
	for {
		frame, ok := p.decoder.PopAudioFrame()
		if !ok {
			return
		}
		if p.audioEnabled.Load() {
			p.clock.Enqueue(frame)
		}
	}
}

// asciiWorkerLoop renders each decoded video frame into an ascii.Frame.
// This is the one thread allowed to be CPU-heavy; everything downstream
// just moves bytes.
func (p *Pipeline) asciiWorkerLoop() {
	defer p.wg.Done()
	for {
		vf, ok := p.videoQueue.Pop()
		if !ok {
			p.asciiQueue.Close()
			return
		}
		frame := p.renderer.Render(vf)
		if !p.asciiQueue.Push(frame) {
			return
		}
	}
}

// presenterLoop is the sync policy: it compares each rendered frame's PTS
// against the audio clock and sleeps, presents, or drops accordingly. It
// also refreshes the stats line about once a second; the keyboard is
// polled separately by keyboardPollLoop.
func (p *Pipeline) presenterLoop(ctx context.Context) {
	defer p.wg.Done()

	lastStats := time.Now()
	p.startedAt = time.Now()
	startedAt := p.startedAt

	var renderedCount uint64
	lastClockVal := p.clock.PlaybackTime()
	lastClockChangeAt := startedAt

	for {
		if p.paused.Load() {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}

		frame, ok := p.asciiQueue.Pop()
		if !ok {
			return
		}
		renderedCount++

		if p.targetFPS > 0 {
			frame.PTS = float64(renderedCount) / p.targetFPS
		}

		if p.audioEnabled.Load() {
			now := time.Now()
			clockVal := p.clock.PlaybackTime()
			if clockVal != lastClockVal {
				lastClockVal = clockVal
				lastClockChangeAt = now
			}

			var diff float64
			stalled := now.Sub(lastClockChangeAt) > underrunStallThreshold
			if stalled {
				// The audio clock has been frozen too long to trust; pace
				// against the wall clock for this frame instead, and never
				// drop it.
				diff = frame.PTS - time.Since(startedAt).Seconds()
			} else {
				diff = frame.PTS - clockVal
			}

			switch {
			case diff > syncAheadThreshold:
				time.Sleep(time.Duration(diff * float64(time.Second)))
				p.present(frame)
			case !stalled && diff < syncBehindThreshold:
				p.framesDropped.Add(1)
			default:
				p.present(frame)
			}
		} else {
			// Audio disabled: pace against a steady wall clock started at
			// presenter startup, and never drop.
			if wait := frame.PTS - time.Since(startedAt).Seconds(); wait > 0 {
				time.Sleep(time.Duration(wait * float64(time.Second)))
			}
			p.present(frame)
		}

		if p.exporting && p.exporter != nil {
			if err := p.exporter.WriteFrame(frame); err != nil {
				p.log.Error("export write frame failed", "error", err)
			}
		}

		if time.Since(lastStats) >= time.Second {
			p.printStats()
			lastStats = time.Now()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// keyboardPollLoop is its own thread so pause/quit/tuning keys stay
// responsive even while the presenter is asleep honoring the sync policy.
// It also polls the terminal size and forces a redraw when it changes,
// since the renderer's grid is fixed but the underlying terminal window
// can still be resized by the user.
func (p *Pipeline) keyboardPollLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(15 * time.Millisecond)
	defer ticker.Stop()

	lastCols, lastRows, haveSize := 0, 0, false
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollKeyboard()
			if cols, rows, err := p.sink.Size(); err == nil {
				if haveSize && (cols != lastCols || rows != lastRows) {
					p.sink.ClearAndHome()
				}
				lastCols, lastRows, haveSize = cols, rows, true
			}
		}
	}
}

func (p *Pipeline) present(frame ascii.Frame) {
	if err := p.sink.Present(frame); err != nil {
		p.log.Error("present frame failed", "error", err)
		return
	}
	p.framesPresented.Add(1)
}

// pollKeyboard applies the fixed key bindings: SPACE toggles pause (and
// mutes/unmutes the clock on the transition), q|Q requests shutdown,
// c|C cycles color mode, d|D cycles dither, g/G and b/B nudge
// gamma/contrast, 1/2/3 set mode directly to Gray/ANSI256/TrueColor, and
// r|R reapplies the current config by forcing a full terminal redraw.
func (p *Pipeline) pollKeyboard() {
	key, ok := p.sink.PollKey()
	if !ok {
		return
	}
	switch key {
	case ' ':
		paused := !p.paused.Load()
		p.paused.Store(paused)
		p.clock.SetMuted(paused)
	case 'q', 'Q':
		p.Stop()
	case 'c', 'C':
		p.renderer.CycleMode()
	case 'd', 'D':
		p.renderer.CycleDither()
	case 'g':
		p.renderer.AdjustGamma(0.1)
	case 'G':
		p.renderer.AdjustGamma(-0.1)
	case 'b':
		p.renderer.AdjustContrast(0.1)
	case 'B':
		p.renderer.AdjustContrast(-0.1)
	case '1':
		p.renderer.SetMode(ascii.ModeGray)
	case '2':
		p.renderer.SetMode(ascii.ModeANSI256)
	case '3':
		p.renderer.SetMode(ascii.ModeTrueColor)
	case 'r', 'R':
		p.sink.ClearAndHome()
	}
}

func (p *Pipeline) printStats() {
	if !p.statsEnabled {
		return
	}

	prefix := ""
	if p.exporting {
		prefix = "[Export] "
	}

	elapsed := time.Since(p.startedAt).Seconds()
	presented := p.framesPresented.Load()
	fps := 0.0
	if elapsed > 0 {
		fps = float64(presented) / elapsed
	}

	pausedSuffix := ""
	if p.paused.Load() {
		pausedSuffix = " [Paused]"
	}

	line := fmt.Sprintf("fps=%.1f rendered=%d dropped=%d%s",
		fps, presented, p.framesDropped.Load(), pausedSuffix)
	p.sink.PrintStats(prefix, line)
}

// Snapshot returns the current stats counters.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		FramesPresented: p.framesPresented.Load(),
		FramesDropped:   p.framesDropped.Load(),
		Underruns:       p.clock.Underruns(),
		ClockSeconds:    p.clock.PlaybackTime(),
	}
}
