// Package audioclock implements the playback clock and the beep.Streamer
// that feeds the system audio device. The clock is driven by the device's
// pull callback rather than a wall timer: PlaybackTime reports exactly how
// many samples the device has actually consumed, which is what the
// pipeline's sync policy compares decoded frame PTS against.
package audioclock

import (
	"sync"
	"sync/atomic"

	"github.com/faiface/beep"

	"github.com/asciiplay/asciiplay/internal/media"
)

// maxQueuedSampleFrames bounds the FIFO the same way Q_video and Q_ascii
// are bounded upstream: a decoder that outruns the audio device blocks in
// Enqueue instead of growing the buffer without limit.
const maxQueuedSampleFrames = 8192

// ClockSink is a beep.Streamer backed by a FIFO of interleaved stereo int16
// samples. Enqueue is called from the pipeline's audio-drain goroutine;
// Stream is called from beep's own playback goroutine.
type ClockSink struct {
	mu      sync.Mutex
	notFull *sync.Cond
	fifo    []int16

	sampleRate int
	volume     float64
	muted      bool
	closed     bool

	samplesPlayed atomic.Int64
	underruns     atomic.Int64
}

// New creates a ClockSink at full volume, unmuted.
func New(sampleRate int) *ClockSink {
	c := &ClockSink{sampleRate: sampleRate, volume: 1.0}
	c.notFull = sync.NewCond(&c.mu)
	return c
}

// Enqueue appends a decoded audio frame's samples to the FIFO, blocking
// while the FIFO already holds maxQueuedSampleFrames or more so a slow
// audio device applies backpressure to the decoder, same as a full
// Q_video/Q_ascii blocks its producer.
func (c *ClockSink) Enqueue(f media.AudioFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.fifo)/2 >= maxQueuedSampleFrames && !c.closed {
		c.notFull.Wait()
	}
	if c.closed {
		return
	}
	c.fifo = append(c.fifo, f.Samples...)
}

// Close unblocks any goroutine waiting in Enqueue. Idempotent.
func (c *ClockSink) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.notFull.Broadcast()
}

// QueuedSampleFrames returns how many stereo sample-frames are buffered.
func (c *ClockSink) QueuedSampleFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fifo) / 2
}

// SetVolume sets the linear playback volume multiplier, clamped to
// [0,2.0] — 1.0 is unity gain, up to 2.0 is a 2x boost.
func (c *ClockSink) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 2.0 {
		v = 2.0
	}
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()
}

// SetMuted silences output without discarding the FIFO or advancing the
// underrun counter; samplesPlayed still advances so the clock keeps moving
// on pause-with-audio-muted.
func (c *ClockSink) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

// PlaybackTime returns, in seconds, how much audio the device has
// physically consumed.
func (c *ClockSink) PlaybackTime() float64 {
	return float64(c.samplesPlayed.Load()) / float64(c.sampleRate)
}

// Underruns returns the number of Stream calls that found fewer queued
// sample-frames than requested, an empty FIFO included.
func (c *ClockSink) Underruns() int64 {
	return c.underruns.Load()
}

// Stream implements beep.Streamer. On underrun it freezes the clock (does
// not advance samplesPlayed) and emits silence for the unfilled tail, per
// the player's steady-state behavior of preferring a stall over a glitch.
func (c *ClockSink) Stream(samples [][2]float64) (n int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	volume := c.volume
	if c.muted {
		volume = 0
	}

	available := len(c.fifo) / 2
	want := len(samples)
	got := available
	if got > want {
		got = want
	}

	for i := 0; i < got; i++ {
		l := float64(c.fifo[i*2]) / 32768.0 * volume
		r := float64(c.fifo[i*2+1]) / 32768.0 * volume
		samples[i][0] = l
		samples[i][1] = r
	}
	for i := got; i < want; i++ {
		samples[i][0] = 0
		samples[i][1] = 0
	}

	if got < want {
		c.underruns.Add(1)
	}

	c.fifo = c.fifo[got*2:]
	c.samplesPlayed.Add(int64(got))
	c.notFull.Broadcast()

	return want, true
}

// Err implements beep.Streamer; the sink never errors on its own.
func (c *ClockSink) Err() error {
	return nil
}

var _ beep.Streamer = (*ClockSink)(nil)
