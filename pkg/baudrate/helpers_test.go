// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// ============================================================
// Test Fakes
// ============================================================

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeTransport serves bytes from a script, or from next() once the
// script is exhausted, and records speed changes and writes
type fakeTransport struct {
	mu      sync.Mutex
	script  []byte
	next    func() (byte, bool)
	rates   []int
	written bytes.Buffer
	flushes int
	readErr error

	clock    *fakeClock
	perByte  time.Duration
	onRecv   func(rates int)
	setErr   error
	writeErr error
}

func (f *fakeTransport) Receive(timeout time.Duration) (byte, bool, error) {
	f.mu.Lock()
	onRecv := f.onRecv
	nrates := len(f.rates)
	f.mu.Unlock()
	if onRecv != nil {
		onRecv(nrates)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.script) > 0 {
		b := f.script[0]
		f.script = f.script[1:]
		f.tick(f.perByte)
		return b, true, nil
	}
	if f.readErr != nil {
		return 0, false, f.readErr
	}
	if f.next != nil {
		if b, ok := f.next(); ok {
			f.tick(f.perByte)
			return b, true, nil
		}
	}
	f.tick(timeout)
	time.Sleep(time.Millisecond)
	return 0, false, nil
}

func (f *fakeTransport) tick(d time.Duration) {
	if f.clock != nil {
		f.clock.Advance(d)
	}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.written.Write(p)
}

func (f *fakeTransport) SetRate(rate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.rates = append(f.rates, rate)
	return nil
}

func (f *fakeTransport) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakeTransport) Rates() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.rates...)
}

func (f *fakeTransport) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

// fakeKeys replays keystrokes, then reports io.EOF
type fakeKeys struct {
	keys chan byte
}

func newFakeKeys(keys ...byte) *fakeKeys {
	ch := make(chan byte, len(keys))
	for _, k := range keys {
		ch <- k
	}
	close(ch)
	return &fakeKeys{keys: ch}
}

func (f *fakeKeys) ReadKey() (byte, error) {
	k, ok := <-f.keys
	if !ok {
		return 0, io.EOF
	}
	return k, nil
}

// memRecorder keeps recorded windows in memory
type memRecorder struct {
	mu      sync.Mutex
	windows []Window
}

func (m *memRecorder) Record(w Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, w)
	return nil
}

func (m *memRecorder) Outcomes() []Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Outcome
	for _, w := range m.windows {
		out = append(out, w.Outcome)
	}
	return out
}

// newTestController builds a controller on a fake transport with a
// fake clock and a discarded display
func newTestController(t interface{ Fatalf(string, ...any) }, tr *fakeTransport, mutate func(*Options)) (*Controller, *fakeClock) {
	clock := newFakeClock()
	tr.clock = clock
	if tr.perByte == 0 {
		tr.perByte = time.Millisecond
	}

	opts := DefaultOptions()
	opts.Timeout = time.Second
	opts.Output = io.Discard
	opts.Now = clock.Now
	if mutate != nil {
		mutate(&opts)
	}

	ctrl, err := NewController(tr, opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl, clock
}
