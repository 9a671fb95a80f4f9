package export

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/asciiplay/asciiplay/internal/ascii"
)

// Options configures an export run.
type Options struct {
	OutputPath string
	FontPath   string
	FPS        int
	CellWidth  int
	CellHeight int
	CRF        int
}

// DefaultOptions mirrors the defaults a fresh RendererConfig would produce
// a video at: one pixel cell per character at a modest size, CRF 23.
func DefaultOptions(outputPath string) Options {
	return Options{
		OutputPath: outputPath,
		FontPath:   "courier_prime.ttf",
		FPS:        24,
		CellWidth:  10,
		CellHeight: 18,
		CRF:        23,
	}
}

// Exporter accepts rendered frames and produces an encoded video file.
type Exporter interface {
	Open(ctx context.Context, cols, rows int) error
	WriteFrame(f ascii.Frame) error
	Close() error
}

// FFmpegExporter blits each frame to an RGB image with a GlyphAtlas and
// pipes raw video over ffmpeg's stdin, letting ffmpeg do the actual
// encoding. This is the same subprocess-wrapping shape the rest of the
// toolchain uses for ffmpeg, just with the pipe direction reversed (we
// write to stdin instead of reading stdout).
type FFmpegExporter struct {
	opts  Options
	atlas *GlyphAtlas

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	errDone chan error
}

// NewFFmpegExporter only records opts; Open, called once cols/rows are
// known, loads the font atlas and starts the ffmpeg subprocess.
func NewFFmpegExporter(opts Options) (*FFmpegExporter, error) {
	return &FFmpegExporter{opts: opts}, nil
}

// Open rasterizes the glyph atlas at the exporter's cell size and starts
// ffmpeg with a rawvideo stdin pipe sized to cols*cellW x rows*cellH.
func (e *FFmpegExporter) Open(ctx context.Context, cols, rows int) error {
	atlas, err := NewGlyphAtlas(e.opts.FontPath, e.opts.CellWidth, e.opts.CellHeight)
	if err != nil {
		return err
	}
	e.atlas = atlas

	w := cols * e.opts.CellWidth
	h := rows * e.opts.CellHeight

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", strconv.Itoa(e.opts.FPS),
		"-i", "-",
		"-c:v", "libx264",
		"-crf", strconv.Itoa(e.opts.CRF),
		"-pix_fmt", "yuv420p",
		e.opts.OutputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("export: ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("export: start ffmpeg: %w", err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.errDone = make(chan error, 1)
	go func() { e.errDone <- cmd.Wait() }()

	return nil
}

// WriteFrame blits one frame and writes its raw RGBA bytes to ffmpeg.
func (e *FFmpegExporter) WriteFrame(f ascii.Frame) error {
	img := e.atlas.BlitFrame(f)
	_, err := e.stdin.Write(img.Pix)
	return err
}

// Close closes ffmpeg's stdin and waits for encoding to finish.
func (e *FFmpegExporter) Close() error {
	if e.stdin == nil {
		return nil
	}
	if err := e.stdin.Close(); err != nil {
		return err
	}
	return <-e.errDone
}
