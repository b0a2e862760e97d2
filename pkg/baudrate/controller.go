// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoTransport is returned when a controller is created without a transport
var ErrNoTransport = errors.New("no transport")

// Transport is the byte-stream device whose speed is being detected
type Transport interface {
	// Receive waits up to timeout for one byte; ok is false on silence
	Receive(timeout time.Duration) (b byte, ok bool, err error)
	Write(p []byte) (int, error)
	// SetRate changes the speed for subsequent reads and writes
	SetRate(rate int) error
	Flush() error
}

// Options configures a detection session
type Options struct {
	Rates       []int
	InitialRate int
	ToggleRate  int

	Threshold     int
	Timeout       time.Duration // detection window
	ReadTimeout   time.Duration // bounded wait per byte
	EscapeTimeout time.Duration

	Auto            bool
	Echo            bool
	KeepNewlines    bool
	PassthroughKeys bool

	DisplayWidth int
	Output       io.Writer // diagnostic stream, defaults to stderr

	Keys     KeySource // nil runs the detector alone
	Recorder Recorder  // optional window capture
	Logger   *zerolog.Logger

	// Now is the clock, replaceable in tests
	Now func() time.Time
}

// DefaultOptions returns the settings of an unattended automatic session
func DefaultOptions() Options {
	return Options{
		Rates:         Rates,
		InitialRate:   DefaultRate,
		ToggleRate:    DefaultRate,
		Threshold:     DefaultThreshold,
		Timeout:       DefaultTimeout,
		ReadTimeout:   DefaultReadTimeout,
		EscapeTimeout: EscapeTimeout,
		Auto:          true,
		Echo:          true,
		DisplayWidth:  DefaultDisplayWidth,
	}
}

// Controller owns the ladder, the display and the cancellation flag
// shared by the detector and the interpreter. One mutex guards all of
// them so ladder moves never interleave and status writes never tear.
type Controller struct {
	mu        sync.Mutex
	ladder    *Ladder
	display   *Display
	stats     *Statistics
	cancelled bool

	transport Transport
	opts      Options
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewController validates opts and creates a controller. An initial or
// toggle rate missing from the ladder is reported before anything runs.
func NewController(t Transport, opts Options) (*Controller, error) {
	if t == nil {
		return nil, ErrNoTransport
	}
	if len(opts.Rates) == 0 {
		opts.Rates = Rates
	}
	if opts.InitialRate == 0 {
		opts.InitialRate = DefaultRate
	}
	if opts.ToggleRate == 0 {
		opts.ToggleRate = DefaultRate
	}
	if opts.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %d", opts.Threshold)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", opts.Timeout)
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ladder, err := NewLadder(opts.Rates, opts.InitialRate, opts.ToggleRate)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	display := NewDisplay(opts.Output, opts.DisplayWidth, opts.Echo, opts.KeepNewlines)
	maxRate := 0
	for _, r := range opts.Rates {
		maxRate = max(maxRate, r)
	}
	display.SetRateWidth(len(fmt.Sprint(maxRate)))

	return &Controller{
		ladder:    ladder,
		display:   display,
		stats:     NewStatistics(),
		transport: t,
		opts:      opts,
		logger:    logger,
		now:       opts.Now,
	}, nil
}

// Display exposes the display, e.g. to install a banner style
func (c *Controller) Display() *Display {
	return c.display
}

// Open applies the initial rate to the transport
func (c *Controller) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked()
}

// Current returns the selected rate
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ladder.Current()
}

// Index returns the ladder cursor
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ladder.Index()
}

// Set selects the rate at index and applies it
func (c *Controller) Set(index int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ladder.Set(index); err != nil {
		return 0, err
	}
	return c.ladder.Current(), c.applyLocked()
}

// Step moves delta positions along the ladder (positive is faster) and
// applies the new rate
func (c *Controller) Step(delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.ManualMoves++
	return c.stepLocked(delta)
}

// rotate steps to the next slower rate after a window timed out
func (c *Controller) rotate() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Rotations++
	return c.stepLocked(-1)
}

func (c *Controller) stepLocked(delta int) (int, error) {
	rate := c.ladder.Step(delta)
	c.logger.Debug().Int("delta", delta).Int("rate", rate).Msg("ladder step")
	return rate, c.applyLocked()
}

// Toggle switches between the two most recently used rates
func (c *Controller) Toggle() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Toggles++
	rate, moved := c.ladder.Toggle()
	c.logger.Debug().Int("rate", rate).Bool("moved", moved).Msg("toggle")
	if !moved {
		return rate, nil
	}
	return rate, c.applyLocked()
}

// applyLocked shows the banner and sets the transport speed
func (c *Controller) applyLocked() error {
	rate := c.ladder.Current()
	c.display.Status(rate)

	if err := c.transport.Flush(); err != nil {
		return fmt.Errorf("failed to flush transport: %w", err)
	}
	if err := c.transport.SetRate(rate); err != nil {
		return fmt.Errorf("failed to set rate %d: %w", rate, err)
	}
	if err := c.transport.Flush(); err != nil {
		return fmt.Errorf("failed to flush transport: %w", err)
	}
	return nil
}

// Cancel asks both loops to stop at their next check
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cancelled {
		c.logger.Debug().Msg("cancel requested")
	}
	c.cancelled = true
}

// Cancelled reports whether Cancel was called
func (c *Controller) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Forward writes a pass-through keystroke to the transport
func (c *Controller) Forward(k byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.ForwardedKeys++
	if _, err := c.transport.Write([]byte{k}); err != nil {
		return fmt.Errorf("failed to forward key: %w", err)
	}
	return nil
}

// Help writes the key reference
func (c *Controller) Help() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.Message(HelpText())
}

// Newline ends the current display line
func (c *Controller) Newline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.Newline()
}

// Stats returns a snapshot of the session statistics
func (c *Controller) Stats() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.stats
}

// Detect runs a session and returns the settled rate. The interpreter
// runs in its own goroutine when a key source is configured; the
// detector runs on the calling goroutine. Cancellation is not an error:
// the rate selected at that moment is returned, confirmed or not.
func (c *Controller) Detect(ctx context.Context) (int, error) {
	stop := context.AfterFunc(ctx, c.Cancel)
	defer stop()

	var wg sync.WaitGroup
	keyErr := make(chan error, 1)

	if c.opts.Keys != nil {
		in := NewInterpreter(c, c.opts.Keys)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := in.Run(); err != nil {
				keyErr <- err
				c.Cancel()
			}
		}()
	}

	rate, err := c.detect()
	c.Cancel()

	// A key source that can be interrupted lets us wait for the
	// interpreter; otherwise it exits on its next keystroke.
	if cr, ok := c.opts.Keys.(interface{ Cancel() bool }); ok {
		cr.Cancel()
		wg.Wait()
	}

	if err != nil {
		return rate, err
	}
	select {
	case err := <-keyErr:
		return rate, err
	default:
	}
	return rate, nil
}
