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

// Package export blits rendered ascii.Frame grids into raster images and
// pipes them through ffmpeg to produce a video file. A small fixed-glyph
// font atlas, rasterized once at startup with freetype, stands in for a
// terminal's own font when writing pixels instead of escape codes.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"

	"github.com/asciiplay/asciiplay/internal/ascii"
)

// GlyphAtlas rasterizes every glyph the renderer can emit into a fixed-size
// alpha mask, so a frame can be blitted by copying masks rather than
// shaping text per cell.
type GlyphAtlas struct {
	cellW, cellH int
	masks        map[rune]*image.Alpha
}

// glyphSet is every rune the renderer's ramp and dither-emphasis glyph can
// produce. The half-block glyph is not in this set: BlitFrame draws it as
// two solid color bands instead of rasterizing it through the font.
var glyphSet = []rune("@%#*+=-:. #")

// NewGlyphAtlas loads ttfPath and rasterizes glyphSet at a size derived
// from cellH.
func NewGlyphAtlas(ttfPath string, cellW, cellH int) (*GlyphAtlas, error) {
	raw, err := os.ReadFile(ttfPath)
	if err != nil {
		return nil, fmt.Errorf("export: read font %q: %w", ttfPath, err)
	}
	font, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("export: parse font %q: %w", ttfPath, err)
	}

	a := &GlyphAtlas{cellW: cellW, cellH: cellH, masks: make(map[rune]*image.Alpha)}
	for _, r := range glyphSet {
		a.masks[r] = rasterizeGlyph(font, r, cellW, cellH)
	}
	return a, nil
}

func rasterizeGlyph(font *truetype.Font, r rune, cellW, cellH int) *image.Alpha {
	canvas := image.NewRGBA(image.Rect(0, 0, cellW, cellH))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(96)
	c.SetFont(font)
	c.SetFontSize(float64(cellH) * 0.8)
	c.SetClip(canvas.Bounds())
	c.SetDst(canvas)
	c.SetSrc(image.White)
	pt := freetype.Pt(0, int(float64(cellH)*0.85))
	c.DrawString(string(r), pt)

	mask := image.NewAlpha(canvas.Bounds())
	for y := 0; y < cellH; y++ {
		for x := 0; x < cellW; x++ {
			_, g, _, _ := canvas.At(x, y).RGBA()
			mask.Pix[mask.PixOffset(x, y)] = uint8(g >> 8)
		}
	}
	return mask
}

// Mask returns the rasterized alpha mask for r, falling back to a blank
// cell for an unrecognized glyph.
func (a *GlyphAtlas) Mask(r rune) *image.Alpha {
	if m, ok := a.masks[r]; ok {
		return m
	}
	return image.NewAlpha(image.Rect(0, 0, a.cellW, a.cellH))
}

// BlitFrame rasterizes a rendered ascii.Frame into an RGB image of size
// (f.Cols*cellW) x (f.Rows*cellH). Half-block cells are drawn as two solid
// bands rather than through the glyph atlas, mirroring what half-block
// mode looks like on a real terminal.
func (a *GlyphAtlas) BlitFrame(f ascii.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Cols*a.cellW, f.Rows*a.cellH))

	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			cell := f.Cells[row*f.Cols+col]
			ox, oy := col*a.cellW, row*a.cellH
			cellRect := image.Rect(ox, oy, ox+a.cellW, oy+a.cellH)

			if f.HalfBlock {
				bg := packedToColor(cell.BG)
				fg := packedToColor(cell.FG)
				top := image.Rect(ox, oy, ox+a.cellW, oy+a.cellH/2)
				bottom := image.Rect(ox, oy+a.cellH/2, ox+a.cellW, oy+a.cellH)
				draw.Draw(img, top, &image.Uniform{C: bg}, image.Point{}, draw.Src)
				draw.Draw(img, bottom, &image.Uniform{C: fg}, image.Point{}, draw.Src)
				continue
			}

			bg := packedToColor(cell.BG)
			draw.Draw(img, cellRect, &image.Uniform{C: bg}, image.Point{}, draw.Src)

			var glyphRune rune
			for _, r := range cell.Glyph {
				glyphRune = r
				break
			}
			mask := a.Mask(glyphRune)
			fg := packedToColor(cell.FG)
			draw.DrawMask(img, cellRect, &image.Uniform{C: fg}, image.Point{}, mask, image.Point{}, draw.Over)
		}
	}
	return img
}

func packedToColor(v uint32) color.RGBA {
	return color.RGBA{
		R: uint8((v >> 16) & 0xFF),
		G: uint8((v >> 8) & 0xFF),
		B: uint8(v & 0xFF),
		A: 0xFF,
	}
}
