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

// Package colorlut holds the pure color and tone primitives shared by the
// ascii renderer and the exporter: gamma/contrast curves, luminance, the
// xterm-256 palette and nearest-match lookup, and the Bayer ordered-dither
// matrices.
package colorlut

import "math"

// RGB is an unpacked 24-bit color triple.
type RGB struct {
	R, G, B uint8
}

// PackRGB packs three 8-bit channels into a 24-bit value (0xRRGGBB).
func PackRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// UnpackRGB splits a packed 24-bit color back into its channels.
func UnpackRGB(v uint32) RGB {
	return RGB{
		R: uint8((v >> 16) & 0xFF),
		G: uint8((v >> 8) & 0xFF),
		B: uint8(v & 0xFF),
	}
}

// Luminance computes perceived brightness from sRGB channels in [0,255],
// returning a value in [0,255].
func Luminance(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// ApplyGamma normalizes v (expected in [0,255]) to [0,1] and raises it to
// the power 1/gamma, clamping the result to [0,1].
func ApplyGamma(v float64, gamma float64) float64 {
	norm := clamp01(v / 255.0)
	return clamp01(math.Pow(norm, 1.0/gamma))
}

// ApplyContrast applies a contrast curve around the midpoint 0.5 to a value
// already normalized to [0,1].
func ApplyContrast(v float64, contrast float64) float64 {
	centered := (v - 0.5) * contrast
	return clamp01(centered + 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ansiBaseColors are the canonical 16 low/high-intensity ANSI colors that
// occupy xterm-256 palette indices 0-15.
var ansiBaseColors = [16]RGB{
	{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
	{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
	{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

var xtermPalette = buildXtermPalette()

func buildXtermPalette() [256]RGB {
	var palette [256]RGB
	copy(palette[:16], ansiBaseColors[:])

	idx := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				palette[idx] = RGB{cubeChannel(r), cubeChannel(g), cubeChannel(b)}
				idx++
			}
		}
	}

	for i := 0; i < 24; i++ {
		v := uint8(8 + i*10)
		palette[idx] = RGB{v, v, v}
		idx++
	}

	return palette
}

func cubeChannel(c int) uint8 {
	if c == 0 {
		return 0
	}
	return uint8(55 + c*40)
}

// XtermPalette returns the full 256-entry xterm palette.
func XtermPalette() [256]RGB {
	return xtermPalette
}

// XtermIndexFromRGB finds the nearest xterm-256 palette index to (r,g,b)
// using squared Euclidean distance in linear 24-bit RGB space. Ties resolve
// to the lower index because the scan only replaces the best match on a
// strictly smaller distance.
func XtermIndexFromRGB(r, g, b uint8) int {
	best := 0
	bestDist := math.MaxInt64
	for i, c := range xtermPalette {
		dr := int(c.R) - int(r)
		dg := int(c.G) - int(g)
		db := int(c.B) - int(b)
		dist := dr*dr + dg*dg + db*db
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}

// DitherMode selects the ordered-dither matrix used by the renderer.
type DitherMode int

const (
	DitherOff DitherMode = iota
	DitherBayer2
	DitherBayer4
)

// BayerMatrix is a square threshold matrix for ordered dithering, with
// entries already normalized to [0,1).
type BayerMatrix struct {
	Size       int
	Thresholds []float64
}

var (
	bayerOff = BayerMatrix{Size: 1, Thresholds: []float64{0}}
	bayer2   = BayerMatrix{Size: 2, Thresholds: []float64{
		0.0 / 4.0, 2.0 / 4.0,
		3.0 / 4.0, 1.0 / 4.0,
	}}
	bayer4 = BayerMatrix{Size: 4, Thresholds: []float64{
		0.0 / 16.0, 8.0 / 16.0, 2.0 / 16.0, 10.0 / 16.0,
		12.0 / 16.0, 4.0 / 16.0, 14.0 / 16.0, 6.0 / 16.0,
		3.0 / 16.0, 11.0 / 16.0, 1.0 / 16.0, 9.0 / 16.0,
		15.0 / 16.0, 7.0 / 16.0, 13.0 / 16.0, 5.0 / 16.0,
	}}
)

// Bayer returns the threshold matrix for the given dither mode.
func Bayer(mode DitherMode) BayerMatrix {
	switch mode {
	case DitherBayer2:
		return bayer2
	case DitherBayer4:
		return bayer4
	default:
		return bayerOff
	}
}

// Threshold looks up the dither threshold for a cell at (row, col), wrapping
// around the matrix's tile size. Off returns 0 for every cell.
func (m BayerMatrix) Threshold(row, col int) float64 {
	if m.Size <= 1 {
		return 0
	}
	idx := (row%m.Size)*m.Size + (col % m.Size)
	return m.Thresholds[idx]
}
