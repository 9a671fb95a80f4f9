package util

import (
	"context"
	"strings"
	"testing"
)

func TestRunCapturesStdoutLines(t *testing.T) {
	var lines []string
	_, err := Run(context.Background(), CmdSpec{
		Path:       "/bin/echo",
		Args:       []string{"hello", "world"},
		StdoutLine: func(l string) { lines = append(lines, l) },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "hello world" {
		t.Errorf("lines = %v, want [\"hello world\"]", lines)
	}
}

func TestRunReturnsErrorOnNonZeroExit(t *testing.T) {
	_, err := Run(context.Background(), CmdSpec{Path: "/bin/sh", Args: []string{"-c", "exit 3"}})
	if err == nil {
		t.Fatal("Run() error = nil, want non-nil for exit code 3")
	}
	if !strings.Contains(err.Error(), "exit 3") {
		t.Errorf("Run() error = %v, want it to mention exit 3", err)
	}
}

func TestQuoteWrapsArgsWithSpaces(t *testing.T) {
	got := shellQuote("ffmpeg", []string{"-i", "in put.mp4"})
	want := "ffmpeg -i 'in put.mp4'"
	if got != want {
		t.Errorf("shellQuote() = %q, want %q", got, want)
	}
}
