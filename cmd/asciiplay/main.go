package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/spf13/cobra"

	"github.com/asciiplay/asciiplay/internal/ascii"
	"github.com/asciiplay/asciiplay/internal/audioclock"
	"github.com/asciiplay/asciiplay/internal/cliflags"
	"github.com/asciiplay/asciiplay/internal/config"
	"github.com/asciiplay/asciiplay/internal/decoder/reisendecoder"
	"github.com/asciiplay/asciiplay/internal/export"
	"github.com/asciiplay/asciiplay/internal/media"
	"github.com/asciiplay/asciiplay/internal/pipeline"
	"github.com/asciiplay/asciiplay/internal/termsink"
	"github.com/asciiplay/asciiplay/internal/util"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("ASCIIPLAY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *cliflags.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cliflags.ExitCLIError)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "asciiplay <video>",
		Short:         "Play or export video as character-art in a terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, args)
		},
	}
	cliflags.Register(root.PersistentFlags())

	if err := config.Init(root); err != nil {
		slog.Warn("config init failed, continuing with flag defaults", "error", err)
	}

	return root
}

func run(ctx context.Context, cmd *cobra.Command, args []string) error {
	opts, err := cliflags.Parse(cmd.PersistentFlags(), args)
	if err != nil {
		return err
	}

	dec := reisendecoder.New(slog.Default())
	if err := dec.Open(ctx, media.Options{URL: opts.URL, EnableAudio: !opts.NoAudio}); err != nil {
		return &cliflags.ExitError{Code: cliflags.ExitDecodeError, Err: err}
	}

	clock := audioclock.New(48000)
	clock.SetVolume(opts.Volume / 100.0)

	audioEnabled := !opts.NoAudio
	if audioEnabled {
		if err := speaker.Init(beep.SampleRate(48000), beep.SampleRate(48000).N(time.Second/10)); err != nil {
			slog.Warn("audio device init failed, continuing without audio", "error", err)
			clock.SetMuted(true)
			audioEnabled = false
		} else {
			speaker.Play(clock)
		}
	} else {
		clock.SetMuted(true)
	}

	if opts.Export != "" {
		// Exported frames are blitted at the renderer's grid, which must
		// match the size ffmpeg is opened with below.
		opts.Renderer.GridCols, opts.Renderer.GridRows = opts.ExportGridSize()
	}
	renderer := ascii.NewRenderer(opts.Renderer)

	sink := termsink.New()
	if err := sink.Initialize(); err != nil {
		return &cliflags.ExitError{Code: cliflags.ExitCLIError, Err: err}
	}
	defer sink.Teardown()

	var exporter export.Exporter
	if opts.Export != "" {
		if err := checkFFmpeg(ctx); err != nil {
			return &cliflags.ExitError{Code: cliflags.ExitMissingDep, Err: err}
		}

		cols, rows := opts.ExportGridSize()
		ff, err := export.NewFFmpegExporter(opts.ExportOptions())
		if err != nil {
			return &cliflags.ExitError{Code: cliflags.ExitExportError, Err: err}
		}
		if err := ff.Open(ctx, cols, rows); err != nil {
			return &cliflags.ExitError{Code: cliflags.ExitExportError, Err: err}
		}
		defer ff.Close()
		exporter = ff
	}

	p := pipeline.New(slog.Default(), dec, renderer, clock, sink, exporter)
	p.SetAudioEnabled(audioEnabled)
	p.SetStatsEnabled(opts.Stats)
	p.SetTargetFPS(opts.FPS)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// checkFFmpeg verifies ffmpeg is on PATH and runnable before the export
// pipeline commits to opening it, so a missing binary surfaces as a clear
// "missing dependency" exit code rather than a mid-pipeline pipe error.
func checkFFmpeg(ctx context.Context) error {
	_, err := util.Run(ctx, util.CmdSpec{Path: "ffmpeg", Args: []string{"-version"}})
	if err != nil {
		return fmt.Errorf("ffmpeg not available (required for --export): %w", err)
	}
	return nil
}
