// Package termsink writes rendered ascii.Frame values to the terminal and
// polls stdin for keypresses without blocking. It owns the terminal's raw
// mode: Initialize switches stdin into raw, non-blocking mode so a single
// read() either returns a byte or EAGAIN immediately, and Teardown restores
// the terminal exactly as term.MakeRaw found it.
package termsink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/asciiplay/asciiplay/internal/ascii"
)

// Sink owns stdout/stdin terminal state.
type Sink struct {
	mu          sync.Mutex
	initialized bool

	fd       int
	oldState *term.State

	out io.Writer
}

// New creates a Sink that writes to stdout and polls stdin.
func New() *Sink {
	return &Sink{fd: int(os.Stdin.Fd()), out: os.Stdout}
}

// Initialize puts the terminal into raw mode and clears the screen. It is
// idempotent: a second call is a no-op.
func (s *Sink) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	if !term.IsTerminal(s.fd) {
		return fmt.Errorf("termsink: stdin is not a terminal")
	}

	state, err := term.MakeRaw(s.fd)
	if err != nil {
		return fmt.Errorf("termsink: make raw: %w", err)
	}
	s.oldState = state

	if err := unix.SetNonblock(s.fd, true); err != nil {
		term.Restore(s.fd, state)
		s.oldState = nil
		return fmt.Errorf("termsink: set nonblock: %w", err)
	}

	fmt.Fprint(s.out, "\x1b[2J\x1b[H")
	s.initialized = true
	return nil
}

// Teardown restores the terminal to its pre-Initialize state. Idempotent.
func (s *Sink) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	s.initialized = false

	unix.SetNonblock(s.fd, false)
	fmt.Fprint(s.out, "\x1b[0m")
	if s.oldState != nil {
		err := term.Restore(s.fd, s.oldState)
		s.oldState = nil
		return err
	}
	return nil
}

// Present writes a rendered frame's precomputed terminal bytes.
func (s *Sink) Present(f ascii.Frame) error {
	_, err := s.out.Write(f.Terminal)
	return err
}

// ClearAndHome emits a full clear, used when the terminal is resized.
func (s *Sink) ClearAndHome() {
	fmt.Fprint(s.out, "\x1b[2J\x1b[H")
}

// PrintStats writes a single status line at the top of the screen without
// moving the cursor Present relies on: save cursor, home, print, restore.
// prefix is "" in normal playback and "[Export] " while exporting.
func (s *Sink) PrintStats(prefix, line string) {
	fmt.Fprintf(s.out, "\x1b[s\x1b[H%s%s\x1b[u", prefix, line)
}

// Size returns the current terminal size in character cells.
func (s *Sink) Size() (cols, rows int, err error) {
	return term.GetSize(s.fd)
}

// PollKey does a single non-blocking read of one byte from stdin. ok is
// false if no key was waiting.
func (s *Sink) PollKey() (key byte, ok bool) {
	var buf [1]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}
