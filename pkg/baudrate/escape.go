// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import "time"

// escapeTracker disambiguates a plain ESC from the start of an escape
// sequence. After Arm, the next key decides: KeyEscapeContinuation
// before the deadline means a sequence (e.g. an arrow key) is coming,
// anything else (or a late key) lets the armed state lapse.
type escapeTracker struct {
	timeout  time.Duration
	deadline time.Time
	armed    bool
}

func newEscapeTracker(timeout time.Duration) *escapeTracker {
	if timeout <= 0 {
		timeout = EscapeTimeout
	}
	return &escapeTracker{timeout: timeout}
}

// Arm starts the continuation window at now
func (e *escapeTracker) Arm(now time.Time) {
	e.deadline = now.Add(e.timeout)
	e.armed = true
}

// Armed reports whether a decision is pending
func (e *escapeTracker) Armed() bool {
	return e.armed
}

// Resolve consumes the pending decision for key k observed at now and
// reports whether k continues an escape sequence. The tracker is idle
// afterwards either way.
func (e *escapeTracker) Resolve(k byte, now time.Time) bool {
	if !e.armed {
		return false
	}
	e.armed = false
	return k == KeyEscapeContinuation && now.Before(e.deadline)
}
