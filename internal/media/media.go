// Package media defines the frame types and decoder contract that sit
// upstream of the renderer. A decoder is treated as a black box that emits
// VideoFrame and AudioFrame values with a presentation timestamp in
// seconds; this package only pins down the shapes every stage of the
// pipeline agrees on.
package media

import "context"

// VideoFrame is a tightly packed RGB24 image with a presentation
// timestamp. Frames are owned by whichever queue currently holds them and
// are moved, never copied, between pipeline stages.
type VideoFrame struct {
	Width, Height int
	// Pix is RGB24, row-major, length 3*Width*Height.
	Pix []byte
	PTS float64
}

// AudioFrame is interleaved signed 16-bit stereo PCM at 48kHz.
type AudioFrame struct {
	Samples    []int16
	SampleRate int
	Channels   int
	PTS        float64
}

// SampleCount is len(Samples)/Channels, or 0 if Channels is 0.
func (f AudioFrame) SampleCount() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / f.Channels
}

// Options configures how a Decoder opens its input.
type Options struct {
	URL          string
	EnableAudio  bool
}

// Decoder is the external collaborator that demuxes and decodes a media
// file into ordered VideoFrame/AudioFrame values. Implementations must
// emit frames with non-negative, monotonically non-decreasing PTS per
// stream and block callers of PopVideoFrame/PopAudioFrame until a frame is
// available or the stream has ended.
type Decoder interface {
	Open(ctx context.Context, opts Options) error
	Start()
	// Stop is idempotent.
	Stop()

	// PopVideoFrame blocks until a frame is available or the stream has
	// ended, in which case ok is false.
	PopVideoFrame() (frame VideoFrame, ok bool)
	// PopAudioFrame blocks until a frame is available or the stream has
	// ended, in which case ok is false.
	PopAudioFrame() (frame AudioFrame, ok bool)
}
