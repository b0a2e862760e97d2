// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultPort is used when no port is given and none can be discovered
const DefaultPort = "/dev/ttyUSB0"

// SerialTransport adapts a serial port to baudrate.Transport
type SerialTransport struct {
	port        serial.Port
	name        string
	mode        serial.Mode
	readTimeout time.Duration
	buf         [1]byte
}

// OpenSerialTransport opens a serial port at rate, 8-N-1
func OpenSerialTransport(name string, rate int) (*SerialTransport, error) {
	mode := serial.Mode{
		BaudRate: rate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, &mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	return &SerialTransport{port: port, name: name, mode: mode}, nil
}

// Name returns the device path
func (s *SerialTransport) Name() string {
	return s.name
}

// Receive waits up to timeout for a single byte
func (s *SerialTransport) Receive(timeout time.Duration) (byte, bool, error) {
	if timeout != s.readTimeout {
		if err := s.port.SetReadTimeout(timeout); err != nil {
			return 0, false, fmt.Errorf("failed to set read timeout: %w", err)
		}
		s.readTimeout = timeout
	}

	n, err := s.port.Read(s.buf[:])
	if err != nil {
		var perr *serial.PortError
		if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
			return 0, false, fmt.Errorf("serial port %s closed: %w", s.name, err)
		}
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return s.buf[0], true, nil
}

func (s *SerialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// SetRate reconfigures the port speed, keeping 8-N-1
func (s *SerialTransport) SetRate(rate int) error {
	s.mode.BaudRate = rate
	return s.port.SetMode(&s.mode)
}

// Flush waits for pending output and discards unread input
func (s *SerialTransport) Flush() error {
	if err := s.port.Drain(); err != nil {
		return err
	}
	return s.port.ResetInputBuffer()
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}
