// Package cliflags defines and validates asciiplay's command-line surface.
package cliflags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/asciiplay/asciiplay/internal/ascii"
	"github.com/asciiplay/asciiplay/internal/colorlut"
	"github.com/asciiplay/asciiplay/internal/export"
)

// Exit codes: 0 for a clean run, 1 for a bad invocation or any
// initialization failure. The failure-class names label each call site;
// they all share exit code 1.
const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitMissingDep  = 1
	ExitDecodeError = 1
	ExitExportError = 1
)

// ExitError wraps an error with the process exit code it should produce.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Options is every tunable the CLI surface exposes, already parsed and
// validated.
type Options struct {
	URL string

	Renderer ascii.RendererConfig
	FPS      float64

	NoAudio bool
	// Volume is a percentage in [0,200]; 100 is unity gain, 200 is a 2x
	// boost. Converted to the [0,2.0] scalar ClockSink.SetVolume expects.
	Volume float64

	Export       string
	ExportGrid   string
	ExportFont   string
	ExportCRF    int
	ExportFPS    int

	MaxWrite int
	Stats    bool
}

// Register adds every asciiplay flag to fs with its default value.
func Register(fs *pflag.FlagSet) {
	fs.String("mode", "ansi256", "render mode: gray, ansi256, truecolor")
	fs.String("grid", "120x60", "character grid size, COLSxROWS")
	fs.Bool("halfblock", false, "double vertical resolution using half-block glyphs")
	fs.Float64("fps", 0, "override playback fps (0 = source fps)")
	fs.Bool("no-audio", false, "disable audio playback")
	fs.Float64("volume", 100, "playback volume percentage, 0-200 (100 = normal, up to 200 for a 2x boost)")
	fs.String("export", "", "export to a video file instead of (or in addition to) playing")
	fs.String("export-grid", "", "grid size used for export, defaults to --grid")
	fs.String("export-font", "courier_prime.ttf", "TTF font used to rasterize exported frames")
	fs.Int("export-crf", 23, "libx264 CRF for export (0-51, lower is higher quality)")
	fs.Int("export-fps", 24, "export frame rate")
	fs.String("dither", "bayer4", "ordered-dither matrix: off, bayer2, bayer4")
	fs.Float64("gamma", 2.2, "gamma curve applied before ramp quantization")
	fs.Float64("contrast", 1.0, "contrast curve centered at the midtone")
	fs.Int("maxwrite", 0, "terminal write cap in MB/s; parsed but not applied, terminal writes are not rate-limited")
	fs.Bool("stats", true, "print a stats line once a second")
}

// Parse reads every registered flag out of fs and validates it, given the
// positional url argument.
func Parse(fs *pflag.FlagSet, args []string) (Options, error) {
	if len(args) != 1 {
		return Options{}, &ExitError{Code: ExitCLIError, Err: fmt.Errorf("expected exactly one video URL or path, got %d", len(args))}
	}

	opts := Options{URL: args[0]}

	modeStr := viperString(fs, "mode")
	mode, err := parseMode(modeStr)
	if err != nil {
		return Options{}, &ExitError{Code: ExitCLIError, Err: err}
	}

	gridStr := viperString(fs, "grid")
	cols, rows, err := parseGrid(gridStr)
	if err != nil {
		return Options{}, &ExitError{Code: ExitCLIError, Err: err}
	}

	ditherStr := viperString(fs, "dither")
	dither, err := parseDither(ditherStr)
	if err != nil {
		return Options{}, &ExitError{Code: ExitCLIError, Err: err}
	}

	halfblock := viperBool(fs, "halfblock")
	gamma := viperFloat64(fs, "gamma")
	contrast := viperFloat64(fs, "contrast")

	opts.Renderer = ascii.RendererConfig{
		Mode: mode, Dither: dither, HalfBlock: halfblock,
		GridCols: cols, GridRows: rows, Gamma: gamma, Contrast: contrast,
	}

	opts.FPS = viperFloat64(fs, "fps")
	opts.NoAudio = viperBool(fs, "no-audio")
	opts.Volume = viperFloat64(fs, "volume")
	if opts.Volume < 0 || opts.Volume > 200 {
		return Options{}, &ExitError{Code: ExitCLIError, Err: fmt.Errorf("--volume must be in [0,200], got %v", opts.Volume)}
	}

	opts.Export = viperString(fs, "export")
	opts.ExportGrid = viperString(fs, "export-grid")
	opts.ExportFont = viperString(fs, "export-font")
	opts.ExportCRF = viperInt(fs, "export-crf")
	if opts.ExportCRF < 0 || opts.ExportCRF > 51 {
		return Options{}, &ExitError{Code: ExitCLIError, Err: fmt.Errorf("--export-crf must be in [0,51], got %d", opts.ExportCRF)}
	}
	opts.ExportFPS = viperInt(fs, "export-fps")
	opts.MaxWrite = viperInt(fs, "maxwrite")
	opts.Stats = viperBool(fs, "stats")

	return opts, nil
}

// viperKey maps a flag's dashed name to the key config.Init bound it under.
func viperKey(flagName string) string {
	return strings.ReplaceAll(flagName, "-", "_")
}

// viperString, viperBool, viperInt, and viperFloat64 read a flag's value
// through viper when an environment variable or config file has set it
// (config.Init binds every flag listed here into viper), falling back to
// the flag set's own value (its default, or whatever --flag passed)
// otherwise. This is what actually lets ASCIIPLAY_* env vars and a config
// file override a flag's default, rather than viper sitting unused beside
// the flags it was bound to.
func viperString(fs *pflag.FlagSet, name string) string {
	key := viperKey(name)
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	v, _ := fs.GetString(name)
	return v
}

func viperBool(fs *pflag.FlagSet, name string) bool {
	key := viperKey(name)
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	v, _ := fs.GetBool(name)
	return v
}

func viperInt(fs *pflag.FlagSet, name string) int {
	key := viperKey(name)
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := fs.GetInt(name)
	return v
}

func viperFloat64(fs *pflag.FlagSet, name string) float64 {
	key := viperKey(name)
	if viper.IsSet(key) {
		return viper.GetFloat64(key)
	}
	v, _ := fs.GetFloat64(name)
	return v
}

// ExportOptions derives export.Options from a parsed Options.
func (o Options) ExportOptions() export.Options {
	eo := export.DefaultOptions(o.Export)
	eo.FontPath = o.ExportFont
	eo.CRF = o.ExportCRF
	eo.FPS = o.ExportFPS
	return eo
}

// ExportGridSize returns the grid to render at for export, falling back to
// the playback grid when --export-grid was not given.
func (o Options) ExportGridSize() (cols, rows int) {
	if o.ExportGrid == "" {
		return o.Renderer.GridCols, o.Renderer.GridRows
	}
	if c, r, err := parseGrid(o.ExportGrid); err == nil {
		return c, r
	}
	return o.Renderer.GridCols, o.Renderer.GridRows
}

func parseMode(s string) (ascii.Mode, error) {
	switch strings.ToLower(s) {
	case "gray", "grey":
		return ascii.ModeGray, nil
	case "ansi256":
		return ascii.ModeANSI256, nil
	case "truecolor":
		return ascii.ModeTrueColor, nil
	default:
		return 0, fmt.Errorf("--mode must be gray, ansi256, or truecolor, got %q", s)
	}
}

func parseDither(s string) (colorlut.DitherMode, error) {
	switch strings.ToLower(s) {
	case "off":
		return colorlut.DitherOff, nil
	case "bayer2":
		return colorlut.DitherBayer2, nil
	case "bayer4":
		return colorlut.DitherBayer4, nil
	default:
		return 0, fmt.Errorf("--dither must be off, bayer2, or bayer4, got %q", s)
	}
}

func parseGrid(s string) (cols, rows int, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("grid must be COLSxROWS, got %q", s)
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &cols); err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid grid columns in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &rows); err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid grid rows in %q", s)
	}
	return cols, rows, nil
}
