// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records detection windows to a file for later
// inspection. A capture is a CBOR sequence of [record_type, payload_map]
// items: one header followed by one item per window.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/baudrate/pkg/baudrate"
)

// FormatVersion is written in every header
const FormatVersion = 1

// Record types
const (
	RecordHeader uint8 = 0x01
	RecordWindow uint8 = 0x02
)

var (
	// ErrNoHeader is returned when a capture does not start with a header
	ErrNoHeader = errors.New("capture has no header")
	// ErrUnsupportedVersion is returned for captures from a newer format
	ErrUnsupportedVersion = errors.New("unsupported capture version")
)

// Header describes the session a capture was taken from
type Header struct {
	Version   int       `cbor:"1,keyasint"`
	Port      string    `cbor:"2,keyasint,omitempty"`
	Threshold int       `cbor:"3,keyasint"`
	Created   time.Time `cbor:"4,keyasint"`
}

// windowPayload is the on-disk form of baudrate.Window
type windowPayload struct {
	Rate    int       `cbor:"1,keyasint"`
	Started time.Time `cbor:"2,keyasint"`
	Ended   time.Time `cbor:"3,keyasint"`
	Outcome string    `cbor:"4,keyasint"`
	Data    []byte    `cbor:"5,keyasint"`
}

// record is one sequence item: [record_type, payload_map]
type record struct {
	_       struct{} `cbor:",toarray"`
	Type    uint8
	Payload cbor.RawMessage
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// ============================================================
// Writer
// ============================================================

// Writer appends windows to a capture. It implements baudrate.Recorder
// and is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	count  int
}

// NewWriter writes h to w and returns a writer for the windows that follow
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if h.Version == 0 {
		h.Version = FormatVersion
	}
	if h.Created.IsZero() {
		h.Created = time.Now()
	}

	cw := &Writer{enc: encMode.NewEncoder(w)}
	if err := cw.write(RecordHeader, h); err != nil {
		return nil, err
	}
	return cw, nil
}

// Create creates (or truncates) the capture file at path
func Create(path string, h Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture: %w", err)
	}
	w, err := NewWriter(f, h)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Record appends one window
func (w *Writer) Record(win baudrate.Window) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.write(RecordWindow, windowPayload{
		Rate:    win.Rate,
		Started: win.Started,
		Ended:   win.Ended,
		Outcome: string(win.Outcome),
		Data:    win.Data,
	})
	if err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of windows written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying file when the writer owns one
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

func (w *Writer) write(t uint8, payload any) error {
	raw, err := encMode.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := w.enc.Encode(record{Type: t, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// ============================================================
// Reader
// ============================================================

// Reader reads windows back from a capture
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and validates the capture header
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{dec: cbor.NewDecoder(r)}

	rec, err := cr.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, err
	}
	if rec.Type != RecordHeader {
		return nil, ErrNoHeader
	}
	if err := cbor.Unmarshal(rec.Payload, &cr.header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if cr.header.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cr.header.Version)
	}
	return cr, nil
}

// Header returns the capture header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next window, or io.EOF at the end of the capture.
// Records of unknown type are skipped.
func (r *Reader) Next() (baudrate.Window, error) {
	for {
		rec, err := r.next()
		if err != nil {
			return baudrate.Window{}, err
		}
		if rec.Type != RecordWindow {
			continue
		}

		var p windowPayload
		if err := cbor.Unmarshal(rec.Payload, &p); err != nil {
			return baudrate.Window{}, fmt.Errorf("failed to decode window: %w", err)
		}
		return baudrate.Window{
			Rate:    p.Rate,
			Started: p.Started,
			Ended:   p.Ended,
			Outcome: baudrate.Outcome(p.Outcome),
			Data:    p.Data,
		}, nil
	}
}

func (r *Reader) next() (record, error) {
	var rec record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}

// ReadAll reads a whole capture
func ReadAll(r io.Reader) (Header, []baudrate.Window, error) {
	cr, err := NewReader(r)
	if err != nil {
		return Header{}, nil, err
	}

	var windows []baudrate.Window
	for {
		w, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return cr.header, windows, nil
		}
		if err != nil {
			return cr.header, windows, err
		}
		windows = append(windows, w)
	}
}

// ReadFile reads the capture at path
func ReadFile(path string) (Header, []baudrate.Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}
