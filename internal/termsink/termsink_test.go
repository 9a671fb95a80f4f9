package termsink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/asciiplay/asciiplay/internal/ascii"
)

func TestPresentWritesFrameBytes(t *testing.T) {
	var buf bytes.Buffer
	s := &Sink{out: &buf}
	frame := ascii.Frame{Terminal: []byte("\x1b[Hhello")}

	if err := s.Present(frame); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if buf.String() != "\x1b[Hhello" {
		t.Errorf("Present() wrote %q, want %q", buf.String(), "\x1b[Hhello")
	}
}

func TestPrintStatsIncludesExportPrefix(t *testing.T) {
	var buf bytes.Buffer
	s := &Sink{out: &buf}

	s.PrintStats("[Export] ", "frame 12 dropped 0")
	if !strings.Contains(buf.String(), "[Export] frame 12 dropped 0") {
		t.Errorf("PrintStats output = %q, want it to contain the export-prefixed stats line", buf.String())
	}
}

func TestPrintStatsSavesAndRestoresCursor(t *testing.T) {
	var buf bytes.Buffer
	s := &Sink{out: &buf}

	s.PrintStats("", "fps=30.0 rendered=10 dropped=0")
	want := "\x1b[s\x1b[Hfps=30.0 rendered=10 dropped=0\x1b[u"
	if buf.String() != want {
		t.Errorf("PrintStats output = %q, want %q", buf.String(), want)
	}
}

func TestTeardownBeforeInitializeIsNoop(t *testing.T) {
	s := New()
	if err := s.Teardown(); err != nil {
		t.Errorf("Teardown() on un-initialized sink = %v, want nil", err)
	}
}
