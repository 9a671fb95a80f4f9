package ascii

import (
	"strings"
	"testing"

	"github.com/asciiplay/asciiplay/internal/colorlut"
	"github.com/asciiplay/asciiplay/internal/media"
)

func solidFrame(w, h int, r, g, b byte) media.VideoFrame {
	pix := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	return media.VideoFrame{Width: w, Height: h, Pix: pix, PTS: 1.5}
}

func TestRenderBlackFrameGrayNoHalfBlock(t *testing.T) {
	cfg := RendererConfig{
		Mode: ModeGray, Dither: colorlut.DitherOff, HalfBlock: false,
		GridCols: 4, GridRows: 2, Gamma: 2.2, Contrast: 1.0,
	}
	r := NewRenderer(cfg)
	frame := r.Render(solidFrame(40, 20, 0, 0, 0))

	if frame.Cols != 4 || frame.Rows != 2 {
		t.Fatalf("frame dims = %dx%d, want 4x2", frame.Cols, frame.Rows)
	}
	for i, cell := range frame.Cells {
		if cell.Glyph != "@" {
			t.Errorf("cell %d glyph = %q, want %q (darkest luminance maps to ramp[0])", i, cell.Glyph, "@")
		}
	}
}

func TestRenderRedPixelTrueColor(t *testing.T) {
	cfg := RendererConfig{
		Mode: ModeTrueColor, Dither: colorlut.DitherOff, HalfBlock: false,
		GridCols: 1, GridRows: 1, Gamma: 1.0, Contrast: 1.0,
	}
	r := NewRenderer(cfg)
	frame := r.Render(solidFrame(10, 10, 255, 0, 0))

	cell := frame.Cells[0]
	rgb := colorlut.UnpackRGB(cell.FG)
	if rgb.R != 255 || rgb.G != 0 || rgb.B != 0 {
		t.Errorf("fg = %+v, want {255,0,0}", rgb)
	}
	if !strings.Contains(string(frame.Terminal), "\x1b[38;2;255;0;0m") {
		t.Errorf("terminal bytes missing truecolor SGR for red cell: %q", frame.Terminal)
	}
}

func TestRenderHalfBlockGradient(t *testing.T) {
	cfg := RendererConfig{
		Mode: ModeTrueColor, Dither: colorlut.DitherOff, HalfBlock: true,
		GridCols: 1, GridRows: 1, Gamma: 1.0, Contrast: 1.0,
	}
	r := NewRenderer(cfg)

	w, h := 4, 4
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		v := byte(0)
		if y >= h/2 {
			v = 255
		}
		for x := 0; x < w; x++ {
			off := (y*w + x) * 3
			pix[off], pix[off+1], pix[off+2] = v, v, v
		}
	}
	frame := r.Render(media.VideoFrame{Width: w, Height: h, Pix: pix, PTS: 0})

	cell := frame.Cells[0]
	if cell.Glyph != lowerHalfBlock {
		t.Errorf("half-block cell glyph = %q, want %q", cell.Glyph, lowerHalfBlock)
	}
	bg := colorlut.UnpackRGB(cell.BG)
	fg := colorlut.UnpackRGB(cell.FG)
	if bg.R != 0 {
		t.Errorf("half-block top (bg) = %+v, want black", bg)
	}
	if fg.R != 255 {
		t.Errorf("half-block bottom (fg) = %+v, want white", fg)
	}
}

func TestRenderANSI256DitherEmphasisGlyph(t *testing.T) {
	cfg := RendererConfig{
		Mode: ModeANSI256, Dither: colorlut.DitherBayer4, HalfBlock: false,
		GridCols: 4, GridRows: 4, Gamma: 1.0, Contrast: 1.0,
	}
	r := NewRenderer(cfg)
	frame := r.Render(solidFrame(40, 40, 245, 245, 245))

	foundEmphasis := false
	for _, cell := range frame.Cells {
		if cell.Glyph == "#" {
			foundEmphasis = true
			break
		}
	}
	if !foundEmphasis {
		t.Errorf("expected at least one dither-emphasis '#' glyph among cells near full brightness")
	}
}

func TestCycleModeIsAPermutationOfThree(t *testing.T) {
	r := NewRenderer(RendererConfig{Mode: ModeGray})
	start := r.Config().Mode
	for i := 0; i < 3; i++ {
		r.CycleMode()
	}
	if r.Config().Mode != start {
		t.Errorf("CycleMode x3 = %v, want identity (%v)", r.Config().Mode, start)
	}
}

func TestCycleDitherIsAPermutationOfThree(t *testing.T) {
	r := NewRenderer(RendererConfig{Dither: colorlut.DitherOff})
	start := r.Config().Dither
	for i := 0; i < 3; i++ {
		r.CycleDither()
	}
	if r.Config().Dither != start {
		t.Errorf("CycleDither x3 = %v, want identity (%v)", r.Config().Dither, start)
	}
}

func TestAdjustGammaClamps(t *testing.T) {
	r := NewRenderer(RendererConfig{Gamma: 0.5})
	r.AdjustGamma(-1.0)
	if got := r.Config().Gamma; got != 0.5 {
		t.Errorf("gamma clamped low = %v, want 0.5", got)
	}
	r.Configure(RendererConfig{Gamma: 4.0})
	r.AdjustGamma(1.0)
	if got := r.Config().Gamma; got != 4.0 {
		t.Errorf("gamma clamped high = %v, want 4.0", got)
	}
}

func TestAdjustContrastClamps(t *testing.T) {
	r := NewRenderer(RendererConfig{Contrast: 0.2})
	r.AdjustContrast(-1.0)
	if got := r.Config().Contrast; got != 0.2 {
		t.Errorf("contrast clamped low = %v, want 0.2", got)
	}
	r.Configure(RendererConfig{Contrast: 3.0})
	r.AdjustContrast(1.0)
	if got := r.Config().Contrast; got != 3.0 {
		t.Errorf("contrast clamped high = %v, want 3.0", got)
	}
}

func TestSingleCellGridIsFrameMean(t *testing.T) {
	cfg := RendererConfig{
		Mode: ModeGray, Dither: colorlut.DitherOff, HalfBlock: false,
		GridCols: 1, GridRows: 1, Gamma: 1.0, Contrast: 1.0,
	}
	r := NewRenderer(cfg)
	frame := r.Render(solidFrame(8, 8, 100, 100, 100))

	rgb := colorlut.UnpackRGB(frame.Cells[0].FG)
	if rgb.R != 100 {
		t.Errorf("1x1 grid mean gray = %d, want 100", rgb.R)
	}
}

func TestTerminalStringStartsWithCursorHomeAndRowsEndWithReset(t *testing.T) {
	cfg := RendererConfig{
		Mode: ModeGray, Dither: colorlut.DitherOff, HalfBlock: false,
		GridCols: 2, GridRows: 2, Gamma: 1.0, Contrast: 1.0,
	}
	r := NewRenderer(cfg)
	frame := r.Render(solidFrame(20, 20, 128, 128, 128))

	s := string(frame.Terminal)
	if !strings.HasPrefix(s, "\x1b[H") {
		t.Errorf("terminal bytes missing leading cursor-home escape")
	}
	if strings.Count(s, "\x1b[0m\r\n") != frame.Rows {
		t.Errorf("expected %d row terminators, found %d", frame.Rows, strings.Count(s, "\x1b[0m\r\n"))
	}
}
