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

package ascii

import "github.com/asciiplay/asciiplay/internal/colorlut"

// Mode selects how a cell's foreground color is derived.
type Mode int

const (
	ModeGray Mode = iota
	ModeANSI256
	ModeTrueColor
)

// RendererConfig is mutated by the keyboard thread under Renderer's mutex
// and read-copied once per frame by the ascii worker.
type RendererConfig struct {
	Mode     Mode
	Dither   colorlut.DitherMode
	HalfBlock bool
	GridCols, GridRows int
	Gamma    float64
	Contrast float64
}

// DefaultConfig returns the renderer's out-of-the-box tuning: a 256-color
// terminal at bayer4 dithering, single-row cells.
func DefaultConfig() RendererConfig {
	return RendererConfig{
		Mode:      ModeANSI256,
		Dither:    colorlut.DitherBayer4,
		HalfBlock: false,
		GridCols:  120,
		GridRows:  60,
		Gamma:     2.2,
		Contrast:  1.0,
	}
}

// Cell is one glyph slot in the rendered grid.
type Cell struct {
	Glyph  string
	FG, BG uint32
}

// Frame is a fully rendered grid plus the ANSI byte stream ready to write
// to a terminal.
type Frame struct {
	Cols, Rows int
	HalfBlock  bool
	PTS        float64
	Cells      []Cell
	Terminal   []byte
}

// ramp is the fixed 10-glyph luminance ramp, darkest to blank.
const ramp = "@%#*+=-:. "
