// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// KeySource delivers single raw keystrokes, blocking until one arrives.
// Returning io.EOF ends the interpreter without error.
type KeySource interface {
	ReadKey() (byte, error)
}

// Interpreter turns keystrokes into ladder moves, help requests and
// cancellation. With pass-through enabled it forwards keys to the
// transport and only interprets the key following KeyInterpret.
type Interpreter struct {
	ctrl         *Controller
	keys         KeySource
	passthrough  bool
	interpreting bool
	escape       *escapeTracker
	now          func() time.Time
	logger       *zerolog.Logger
}

// NewInterpreter creates an interpreter driving ctrl from keys
func NewInterpreter(ctrl *Controller, keys KeySource) *Interpreter {
	return &Interpreter{
		ctrl:         ctrl,
		keys:         keys,
		passthrough:  ctrl.opts.PassthroughKeys,
		interpreting: !ctrl.opts.PassthroughKeys,
		escape:       newEscapeTracker(ctrl.opts.EscapeTimeout),
		now:          ctrl.now,
		logger:       ctrl.logger,
	}
}

// Interpreting reports whether the next key is treated as a command
func (in *Interpreter) Interpreting() bool {
	return in.interpreting
}

// Run reads keys until the controller is cancelled or the source ends
func (in *Interpreter) Run() error {
	for !in.ctrl.Cancelled() {
		k, err := in.keys.ReadKey()
		if err != nil {
			if errors.Is(err, io.EOF) {
				in.logger.Debug().Msg("key source closed")
				return nil
			}
			return fmt.Errorf("failed to read key: %w", err)
		}
		if in.ctrl.Cancelled() {
			return nil
		}
		if err := in.Handle(k); err != nil {
			return err
		}
	}
	return nil
}

// Handle processes a single keystroke
func (in *Interpreter) Handle(k byte) error {
	if in.escape.Armed() && in.escape.Resolve(k, in.now()) {
		in.interpreting = true
		in.logger.Debug().Msg("escape sequence, interpreting")
		return nil
	}

	if in.passthrough && !in.interpreting {
		if k == KeyInterpret {
			in.interpreting = true
			in.logger.Debug().Msg("interpret key, interpreting next key")
			return nil
		}
		return in.ctrl.Forward(k)
	}

	var err error
	switch {
	case lo.Contains(upKeys, k):
		_, err = in.ctrl.Step(1)
	case lo.Contains(downKeys, k):
		_, err = in.ctrl.Step(-1)
	case lo.Contains(helpKeys, k):
		in.ctrl.Help()
	case k == ' ':
		_, err = in.ctrl.Toggle()
	case lo.Contains(returnKeys, k):
		in.ctrl.Newline()
	case k == KeyCancel:
		in.ctrl.Cancel()
	case k == KeyEsc && in.passthrough:
		in.escape.Arm(in.now())
		in.interpreting = false
		return nil
	}

	// Each command is one-shot while keys are passed through
	if in.passthrough {
		in.interpreting = false
	}
	return err
}

// InterpretKeyName returns the CTRL-x name of the interpret key
func InterpretKeyName() string {
	return fmt.Sprintf("CTRL-%c", 'A'+KeyInterpret-1)
}

// HelpText describes the interactive keys
func HelpText() string {
	prefix := InterpretKeyName()
	return fmt.Sprintf(`Keys:
	%[1]s when in key press passthrough mode for this programme to process the following keypresses.
	ESC to cancel %[1]s.
	↑ and ↓ arrow keys or 'u' and 'd' to increment/decrement the baudrate.
	h to display this helpful information.
	SPACE to toggle between recent baudrates.
	CTRL-C to break out from this programme.
`, prefix)
}
