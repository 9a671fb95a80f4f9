// Package reisendecoder implements media.Decoder on top of zergon321/reisen,
// an ffmpeg-backed demux/decode library. It reads packets on a single
// goroutine and fans video frames and audio frames out to two bounded
// channels that PopVideoFrame/PopAudioFrame drain.
package reisendecoder

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/zergon321/reisen"

	"github.com/asciiplay/asciiplay/internal/media"
)

const (
	videoQueueCap = 8
	audioQueueCap = 32
)

// Decoder is a media.Decoder backed by reisen.
type Decoder struct {
	log *slog.Logger

	media       *reisen.Media
	videoStream *reisen.VideoStream
	audioStream *reisen.AudioStream

	videoOut chan media.VideoFrame
	audioOut chan media.AudioFrame

	videoFrameRate float64
	videoFrames    uint64
	audioSamples   uint64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Decoder. log may be nil, in which case slog.Default is used.
func New(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{log: log, stopCh: make(chan struct{})}
}

// Open demuxes the container and opens the first video stream, plus the
// first audio stream if opts.EnableAudio is set and one is present.
func (d *Decoder) Open(ctx context.Context, opts media.Options) error {
	m, err := reisen.NewMedia(opts.URL)
	if err != nil {
		return fmt.Errorf("reisendecoder: open %q: %w", opts.URL, err)
	}
	if err := m.OpenDecode(); err != nil {
		return fmt.Errorf("reisendecoder: open decode: %w", err)
	}

	videoStreams := m.VideoStreams()
	if len(videoStreams) == 0 {
		return fmt.Errorf("reisendecoder: %q has no video stream", opts.URL)
	}
	vs := videoStreams[0]
	if err := vs.Open(); err != nil {
		return fmt.Errorf("reisendecoder: open video stream: %w", err)
	}
	num, den := vs.FrameRate()
	if den == 0 {
		den = 1
	}
	d.videoFrameRate = float64(num) / float64(den)
	if d.videoFrameRate <= 0 {
		d.videoFrameRate = 30
	}

	var as *reisen.AudioStream
	if opts.EnableAudio {
		audioStreams := m.AudioStreams()
		if len(audioStreams) == 0 {
			d.log.Warn("no audio stream present, continuing without audio")
		} else {
			as = audioStreams[0]
			if err := as.Open(); err != nil {
				d.log.Warn("failed to open audio stream, continuing without audio", "error", err)
				as = nil
			}
		}
	}

	d.media = m
	d.videoStream = vs
	d.audioStream = as
	d.videoOut = make(chan media.VideoFrame, videoQueueCap)
	d.audioOut = make(chan media.AudioFrame, audioQueueCap)
	return nil
}

// Start begins the packet-reading goroutine. Open must have succeeded first.
func (d *Decoder) Start() {
	go d.run()
}

func (d *Decoder) run() {
	defer d.teardown()

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		packet, gotPacket, err := d.media.ReadPacket()
		if err != nil {
			d.log.Error("read packet failed", "error", err)
			return
		}
		if !gotPacket {
			return
		}

		switch packet.Type() {
		case reisen.StreamVideo:
			d.handleVideoPacket(packet)
		case reisen.StreamAudio:
			if d.audioStream != nil {
				d.handleAudioPacket(packet)
			}
		}
	}
}

func (d *Decoder) handleVideoPacket(packet *reisen.Packet) {
	stream, ok := d.media.Streams()[packet.StreamIndex()].(*reisen.VideoStream)
	if !ok {
		return
	}
	frame, gotFrame, err := stream.ReadVideoFrame()
	if err != nil || !gotFrame || frame == nil {
		return
	}

	pts := float64(d.videoFrames) / d.videoFrameRate
	d.videoFrames++

	vf := rgbaToVideoFrame(frame.Image(), pts)
	select {
	case d.videoOut <- vf:
	case <-d.stopCh:
	}
}

func (d *Decoder) handleAudioPacket(packet *reisen.Packet) {
	stream, ok := d.media.Streams()[packet.StreamIndex()].(*reisen.AudioStream)
	if !ok {
		return
	}
	frame, gotFrame, err := stream.ReadAudioFrame()
	if err != nil || !gotFrame || frame == nil {
		return
	}

	sampleRate := d.audioStream.SampleRate()
	const channels = 2 // reisen's decoded PCM is interleaved stereo
	pts := float64(d.audioSamples) / float64(sampleRate)

	af := pcmToAudioFrame(frame.Data(), sampleRate, channels, pts)
	d.audioSamples += uint64(af.SampleCount())
	select {
	case d.audioOut <- af:
	case <-d.stopCh:
	}
}

// rgbaToVideoFrame packs an *image.RGBA down to tightly-packed RGB24.
func rgbaToVideoFrame(img *image.RGBA, pts float64) media.VideoFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		srcRow := img.PixOffset(b.Min.X, b.Min.Y+y)
		dstRow := y * w * 3
		for x := 0; x < w; x++ {
			so := srcRow + x*4
			do := dstRow + x*3
			pix[do] = img.Pix[so]
			pix[do+1] = img.Pix[so+1]
			pix[do+2] = img.Pix[so+2]
		}
	}
	return media.VideoFrame{Width: w, Height: h, Pix: pix, PTS: pts}
}

// pcmToAudioFrame converts reisen's raw f64 interleaved PCM bytes into
// int16 samples at the rate and channel count the stream reports.
func pcmToAudioFrame(raw []byte, sampleRate, channels int, pts float64) media.AudioFrame {
	const bytesPerSample = 8 // reisen emits little-endian float64 samples
	n := len(raw) / bytesPerSample
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerSample
		bits := uint64(raw[off]) | uint64(raw[off+1])<<8 | uint64(raw[off+2])<<16 | uint64(raw[off+3])<<24 |
			uint64(raw[off+4])<<32 | uint64(raw[off+5])<<40 | uint64(raw[off+6])<<48 | uint64(raw[off+7])<<56
		samples[i] = floatToInt16(math.Float64frombits(bits))
	}
	return media.AudioFrame{Samples: samples, SampleRate: sampleRate, Channels: channels, PTS: pts}
}

func floatToInt16(f float64) int16 {
	if f > 1.0 {
		f = 1.0
	}
	if f < -1.0 {
		f = -1.0
	}
	return int16(f * 32767.0)
}

// Stop signals the read loop to exit. Safe to call multiple times and from
// any goroutine.
func (d *Decoder) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
}

func (d *Decoder) teardown() {
	if d.videoStream != nil {
		d.videoStream.Close()
	}
	if d.audioStream != nil {
		d.audioStream.Close()
	}
	if d.media != nil {
		d.media.CloseDecode()
	}
	close(d.videoOut)
	close(d.audioOut)
}

// PopVideoFrame blocks until a frame is available or decoding has ended.
func (d *Decoder) PopVideoFrame() (media.VideoFrame, bool) {
	f, ok := <-d.videoOut
	return f, ok
}

// PopAudioFrame blocks until a frame is available or decoding has ended.
func (d *Decoder) PopAudioFrame() (media.AudioFrame, bool) {
	f, ok := <-d.audioOut
	return f, ok
}
