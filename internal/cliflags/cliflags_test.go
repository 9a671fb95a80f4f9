package cliflags

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/asciiplay/asciiplay/internal/ascii"
	"github.com/asciiplay/asciiplay/internal/colorlut"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Register(fs)
	return fs
}

func TestParseDefaultsMatchRendererDefaults(t *testing.T) {
	opts, err := Parse(newFlagSet(), []string{"video.mp4"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := ascii.DefaultConfig()
	if opts.Renderer != want {
		t.Errorf("Renderer = %+v, want defaults %+v", opts.Renderer, want)
	}
}

func TestParseRejectsMissingURL(t *testing.T) {
	_, err := Parse(newFlagSet(), nil)
	if err == nil {
		t.Fatal("Parse() error = nil, want error for missing URL")
	}
	var exitErr *ExitError
	if !asExitError(err, &exitErr) || exitErr.Code != ExitCLIError {
		t.Errorf("error = %v, want an ExitError with code %d", err, ExitCLIError)
	}
}

func TestParseRejectsInvalidMode(t *testing.T) {
	fs := newFlagSet()
	fs.Set("mode", "rainbow")
	_, err := Parse(fs, []string{"video.mp4"})
	if err == nil {
		t.Fatal("Parse() error = nil, want error for invalid --mode")
	}
}

func TestParseRejectsOutOfRangeVolume(t *testing.T) {
	fs := newFlagSet()
	fs.Set("volume", "250")
	_, err := Parse(fs, []string{"video.mp4"})
	if err == nil {
		t.Fatal("Parse() error = nil, want error for --volume out of [0,200]")
	}
}

func TestParseGridParsesColsAndRows(t *testing.T) {
	fs := newFlagSet()
	fs.Set("grid", "80x40")
	opts, err := Parse(fs, []string{"video.mp4"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if opts.Renderer.GridCols != 80 || opts.Renderer.GridRows != 40 {
		t.Errorf("grid = %dx%d, want 80x40", opts.Renderer.GridCols, opts.Renderer.GridRows)
	}
}

func TestParseDither(t *testing.T) {
	fs := newFlagSet()
	fs.Set("dither", "off")
	opts, err := Parse(fs, []string{"video.mp4"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if opts.Renderer.Dither != colorlut.DitherOff {
		t.Errorf("Dither = %v, want DitherOff", opts.Renderer.Dither)
	}
}

func TestExportGridSizeFallsBackToPlaybackGrid(t *testing.T) {
	opts, _ := Parse(newFlagSet(), []string{"video.mp4"})
	cols, rows := opts.ExportGridSize()
	if cols != opts.Renderer.GridCols || rows != opts.Renderer.GridRows {
		t.Errorf("ExportGridSize() = %dx%d, want playback grid %dx%d", cols, rows, opts.Renderer.GridCols, opts.Renderer.GridRows)
	}
}

func asExitError(err error, target **ExitError) bool {
	ee, ok := err.(*ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}
