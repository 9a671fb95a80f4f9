/**
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ascii converts a decoded video frame into a grid of styled
// character cells and a ready-to-write ANSI escape stream. It is a pure
// function of (frame, config snapshot): callers on the ascii worker thread
// may call Render concurrently with the keyboard thread mutating config,
// because each call takes a single config snapshot under the mutex.
package ascii

import (
	"strconv"
	"strings"
	"sync"

	"github.com/asciiplay/asciiplay/internal/colorlut"
	"github.com/asciiplay/asciiplay/internal/media"
)

const lowerHalfBlock = "▄"

// Renderer holds the mutable RendererConfig behind a mutex and implements
// the stateless per-frame conversion.
type Renderer struct {
	mu  sync.Mutex
	cfg RendererConfig
}

// NewRenderer creates a Renderer with the given initial configuration.
func NewRenderer(cfg RendererConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Config returns a copy of the current configuration.
func (r *Renderer) Config() RendererConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Configure replaces the current configuration wholesale.
func (r *Renderer) Configure(cfg RendererConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// CycleMode rotates Gray -> ANSI256 -> TrueColor -> Gray.
func (r *Renderer) CycleMode() {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.cfg.Mode {
	case ModeGray:
		r.cfg.Mode = ModeANSI256
	case ModeANSI256:
		r.cfg.Mode = ModeTrueColor
	case ModeTrueColor:
		r.cfg.Mode = ModeGray
	}
}

// SetMode sets the render mode directly, for the keyboard thread's numeric
// mode-select bindings.
func (r *Renderer) SetMode(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Mode = mode
}

// CycleDither rotates Off -> Bayer2 -> Bayer4 -> Off.
func (r *Renderer) CycleDither() {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.cfg.Dither {
	case colorlut.DitherOff:
		r.cfg.Dither = colorlut.DitherBayer2
	case colorlut.DitherBayer2:
		r.cfg.Dither = colorlut.DitherBayer4
	case colorlut.DitherBayer4:
		r.cfg.Dither = colorlut.DitherOff
	}
}

// AdjustGamma nudges gamma by delta, clamped to [0.5, 4.0].
func (r *Renderer) AdjustGamma(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Gamma = clamp(r.cfg.Gamma+delta, 0.5, 4.0)
}

// AdjustContrast nudges contrast by delta, clamped to [0.2, 3.0].
func (r *Renderer) AdjustContrast(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Contrast = clamp(r.cfg.Contrast+delta, 0.2, 3.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Render converts one decoded video frame into an ascii Frame under a
// single config snapshot.
func (r *Renderer) Render(vf media.VideoFrame) Frame {
	cfg := r.Config()

	out := Frame{
		Cols:      cfg.GridCols,
		Rows:      cfg.GridRows,
		HalfBlock: cfg.HalfBlock,
		PTS:       vf.PTS,
		Cells:     make([]Cell, cfg.GridCols*cfg.GridRows),
	}

	cellW := vf.Width / cfg.GridCols
	if cellW < 1 {
		cellW = 1
	}
	rowDivisor := cfg.GridRows
	if cfg.HalfBlock {
		rowDivisor *= 2
	}
	cellH := vf.Height / rowDivisor
	if cellH < 1 {
		cellH = 1
	}

	for y := 0; y < out.Rows; y++ {
		startY := y * cellH
		if cfg.HalfBlock {
			startY = y * 2 * cellH
		}
		for x := 0; x < out.Cols; x++ {
			top := sampleCell(vf, cfg, x*cellW, startY, cellW, cellH, y, x)
			cell := top
			if cfg.HalfBlock {
				bottom := sampleCell(vf, cfg, x*cellW, startY+cellH, cellW, cellH, y+1, x)
				cell.Glyph = lowerHalfBlock
				cell.BG = top.FG
				cell.FG = bottom.FG
			}
			out.Cells[y*out.Cols+x] = cell
		}
	}

	out.Terminal = buildTerminalString(cfg, out)
	return out
}

// sampleCell accumulates one rectangular region and converts it into a
// single Cell according to the render mode, gamma, contrast, and dither
// threshold for its (row, col) position.
func sampleCell(vf media.VideoFrame, cfg RendererConfig, startX, startY, cellW, cellH, row, col int) Cell {
	matrix := colorlut.Bayer(cfg.Dither)

	var accumLuma, accumR, accumG, accumB float64
	count := 0
	for dy := 0; dy < cellH; dy++ {
		yy := clampInt(startY+dy, 0, vf.Height-1)
		for dx := 0; dx < cellW; dx++ {
			xx := clampInt(startX+dx, 0, vf.Width-1)
			off := (yy*vf.Width + xx) * 3
			r, g, b := vf.Pix[off], vf.Pix[off+1], vf.Pix[off+2]
			accumLuma += colorlut.Luminance(r, g, b)
			accumR += float64(r)
			accumG += float64(g)
			accumB += float64(b)
			count++
		}
	}
	if count == 0 {
		count = 1
	}

	avgLuma := accumLuma / float64(count)
	norm := colorlut.ApplyGamma(avgLuma, cfg.Gamma)
	norm = colorlut.ApplyContrast(norm, cfg.Contrast)

	rampIdx := clampInt(int(norm*9.0+0.5), 0, 9)
	threshold := matrix.Threshold(row, col)

	avgR := uint8(accumR / float64(count))
	avgG := uint8(accumG / float64(count))
	avgB := uint8(accumB / float64(count))

	cell := Cell{Glyph: string(ramp[rampIdx])}

	switch cfg.Mode {
	case ModeGray:
		gray := uint8(avgLuma)
		cell.FG = colorlut.PackRGB(gray, gray, gray)
		cell.BG = colorlut.PackRGB(0, 0, 0)
	case ModeANSI256:
		idx := colorlut.XtermIndexFromRGB(avgR, avgG, avgB)
		p := colorlut.XtermPalette()[idx]
		cell.FG = colorlut.PackRGB(p.R, p.G, p.B)
		cell.BG = colorlut.PackRGB(0, 0, 0)
		if norm+threshold > 1.0 {
			cell.Glyph = "#"
		}
	case ModeTrueColor:
		cell.FG = colorlut.PackRGB(avgR, avgG, avgB)
		cell.BG = colorlut.PackRGB(0, 0, 0)
	}
	return cell
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// buildTerminalString assembles the ANSI escape byte stream once per
// frame, cached on the returned Frame.
func buildTerminalString(cfg RendererConfig, f Frame) []byte {
	var b strings.Builder
	b.Grow(f.Cols*f.Rows*8 + 8)
	b.WriteString("\x1b[H")

	for y := 0; y < f.Rows; y++ {
		var currentFG, currentBG uint32
		haveColor := false
		for x := 0; x < f.Cols; x++ {
			cell := f.Cells[y*f.Cols+x]
			switch cfg.Mode {
			case ModeTrueColor:
				if !haveColor || cell.FG != currentFG {
					writeTrueColorFG(&b, cell.FG)
					currentFG = cell.FG
					haveColor = true
				}
			case ModeANSI256:
				rgb := colorlut.UnpackRGB(cell.FG)
				idx := colorlut.XtermIndexFromRGB(rgb.R, rgb.G, rgb.B)
				b.WriteString("\x1b[38;5;")
				b.WriteString(strconv.Itoa(idx))
				b.WriteByte('m')
			default: // ModeGray
				gray := colorlut.UnpackRGB(cell.FG).R
				b.WriteString("\x1b[38;2;")
				writeTriplet(&b, gray, gray, gray)
				b.WriteByte('m')
			}

			if f.HalfBlock {
				if !haveColor || cell.BG != currentBG {
					rgb := colorlut.UnpackRGB(cell.BG)
					b.WriteString("\x1b[48;2;")
					writeTriplet(&b, rgb.R, rgb.G, rgb.B)
					b.WriteByte('m')
					currentBG = cell.BG
					haveColor = true
				}
			}

			b.WriteString(cell.Glyph)
		}
		b.WriteString("\x1b[0m\r\n")
	}

	return []byte(b.String())
}

func writeTrueColorFG(b *strings.Builder, color uint32) {
	rgb := colorlut.UnpackRGB(color)
	b.WriteString("\x1b[38;2;")
	writeTriplet(b, rgb.R, rgb.G, rgb.B)
	b.WriteByte('m')
}

func writeTriplet(b *strings.Builder, r, g, bl uint8) {
	b.WriteString(strconv.Itoa(int(r)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(g)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(bl)))
}
