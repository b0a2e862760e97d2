// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// Keyboard reads raw keystrokes from a terminal. ReadKey can be
// interrupted with Cancel, which makes it report io.EOF.
type Keyboard struct {
	fd     int
	state  *term.State
	reader cancelreader.CancelReader
	buf    [1]byte
	closed bool
}

// OpenKeyboard puts the terminal on f into raw mode
func OpenKeyboard(f *os.File) (*Keyboard, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	reader, err := cancelreader.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create key reader: %w", err)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	stderr.SetRaw(true)
	return &Keyboard{fd: fd, state: state, reader: reader}, nil
}

// ReadKey blocks until a key is pressed or the reader is cancelled
func (k *Keyboard) ReadKey() (byte, error) {
	for {
		n, err := k.reader.Read(k.buf[:])
		if errors.Is(err, cancelreader.ErrCanceled) {
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return k.buf[0], nil
		}
	}
}

// Cancel interrupts a pending ReadKey
func (k *Keyboard) Cancel() bool {
	return k.reader.Cancel()
}

// Close restores the terminal. Later calls do nothing.
func (k *Keyboard) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	k.reader.Close()
	stderr.SetRaw(false)
	return term.Restore(k.fd, k.state)
}

// ============================================================
// Terminal Output
// ============================================================

// termWriter translates "\n" into "\r\n" while the terminal is in raw
// mode, where output post-processing is off
type termWriter struct {
	mu  sync.Mutex
	w   io.Writer
	raw bool
}

// stderr is the diagnostic stream for the display and console logs
var stderr = &termWriter{w: os.Stderr}

func (t *termWriter) SetRaw(raw bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw = raw
}

func (t *termWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.raw || !bytes.Contains(p, []byte{'\n'}) {
		return t.w.Write(p)
	}
	if _, err := t.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
