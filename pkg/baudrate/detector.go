// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"fmt"
	"time"
)

// MaxWindowData caps the bytes kept per recorded window
const MaxWindowData = 4096

// Outcome says how a detection window ended
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRotated   Outcome = "rotated"
	OutcomeMoved     Outcome = "moved" // rate changed by a key
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed" // transport error
)

// Window is the data received at one rate
type Window struct {
	Rate    int
	Started time.Time
	Ended   time.Time
	Outcome Outcome
	Data    []byte
}

// Recorder receives every closed window
type Recorder interface {
	Record(w Window) error
}

// window tracks the data captured at the current rate
type window struct {
	rate    int
	started time.Time
	data    []byte
}

func (w *window) add(b byte) {
	if len(w.data) < MaxWindowData {
		w.data = append(w.data, b)
	}
}

// detect is the detector loop: read one byte, classify it, then either
// confirm, rotate on timeout, or stop on cancellation
func (c *Controller) detect() (int, error) {
	cls := NewClassifier()
	var windowStart time.Time
	capture := &window{rate: c.Current(), started: c.now()}

	for {
		if windowStart.IsZero() {
			windowStart = c.now()
		}

		if c.Cancelled() {
			c.closeWindow(capture, OutcomeCancelled)
			break
		}

		b, ok, err := c.transport.Receive(c.opts.ReadTimeout)
		if err != nil {
			c.closeWindow(capture, OutcomeFailed)
			c.finish()
			return c.Current(), fmt.Errorf("failed to read from transport: %w", err)
		}

		if rate := c.Current(); rate != capture.rate {
			c.closeWindow(capture, OutcomeMoved)
			capture = &window{rate: rate, started: c.now()}
		}

		if ok {
			capture.add(b)
			if c.observe(cls, b) {
				counts := cls.Counters()
				c.logger.Debug().
					Int("rate", capture.rate).
					Int("total", counts.Total).
					Int("whitespace", counts.Whitespace).
					Int("punctuation", counts.Punctuation).
					Int("vowels", counts.Vowels).
					Msg("rate confirmed")
				c.closeWindow(capture, OutcomeConfirmed)
				break
			}
		}

		if c.opts.Auto && c.now().Sub(windowStart) >= c.opts.Timeout {
			c.closeWindow(capture, OutcomeRotated)
			rate, err := c.rotate()
			c.logger.Debug().Int("rate", rate).Msg("window timed out")
			if err != nil {
				c.finish()
				return rate, err
			}
			cls.Reset()
			windowStart = time.Time{}
			capture = &window{rate: rate, started: c.now()}
		}
	}

	c.finish()
	return c.Current(), nil
}

// observe echoes b and, in automatic mode, classifies it. It reports
// whether the window is now confirmed.
func (c *Controller) observe(cls *Classifier, b byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.display.Append([]byte{b}, false)

	if !c.opts.Auto {
		c.stats.UpdateByte(Classify(b), false)
		return false
	}

	hadCounts := cls.Counters().Total > 0
	class := cls.Observe(b)
	c.stats.UpdateByte(class, hadCounts)
	if class == ClassNoise && hadCounts {
		c.logger.Debug().Uint8("byte", b).Msg("noise byte, counters cleared")
	}
	return cls.Confirmed(c.opts.Threshold)
}

// closeWindow hands a finished window to the recorder
func (c *Controller) closeWindow(w *window, outcome Outcome) {
	c.mu.Lock()
	c.stats.Windows++
	c.mu.Unlock()

	if c.opts.Recorder == nil {
		return
	}
	err := c.opts.Recorder.Record(Window{
		Rate:    w.rate,
		Started: w.started,
		Ended:   c.now(),
		Outcome: outcome,
		Data:    append([]byte(nil), w.data...),
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to record window")
	}
}

// finish ends the echoed line
func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.Append([]byte("\n"), true)
}
