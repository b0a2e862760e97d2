// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Display renders a single overwriting status line plus the optional
// echo of bytes read from the transport. It is not safe for concurrent
// use; the Controller serializes access.
type Display struct {
	out          io.Writer
	echo         bool
	keepNewlines bool
	width        int
	rateWidth    int

	pending      string
	needsCapping bool
	clearLine    string

	// Decorate, when set, styles the rate banner before it is written
	Decorate func(string) string
}

// NewDisplay creates a display writing to out. Echoed text is flushed
// once it reaches width terminal cells.
func NewDisplay(out io.Writer, width int, echo, keepNewlines bool) *Display {
	if width <= 0 {
		width = DefaultDisplayWidth
	}
	return &Display{
		out:          out,
		echo:         echo,
		keepNewlines: keepNewlines,
		width:        width,
		rateWidth:    len(strconv.Itoa(Rates[0])),
		clearLine:    "\r" + strings.Repeat(" ", width) + "\r",
	}
}

// SetRateWidth sets the column width used to right-align rates
func (d *Display) SetRateWidth(w int) {
	if w > 0 {
		d.rateWidth = w
	}
}

// Pending returns the text waiting on the current line
func (d *Display) Pending() string {
	return d.pending
}

// NeedsCapping reports whether a status banner is on screen and echo
// output must start two lines below it
func (d *Display) NeedsCapping() bool {
	return d.needsCapping
}

// Append echoes raw transport bytes. Chunks that are not valid UTF-8 are
// dropped. Unless allowNewline (or the display's keepNewlines) is set,
// line breaks never reach the screen: a lone newline clears the line and
// an embedded one keeps only the text after the last break.
func (d *Display) Append(raw []byte, allowNewline bool) {
	if !d.echo || len(raw) == 0 {
		return
	}
	if !utf8.Valid(raw) {
		return
	}
	buf := string(raw)

	reprint := true
	clear := false
	carry := ""

	switch {
	case allowNewline || d.keepNewlines:
		d.pending += buf
		if pos := strings.LastIndex(d.pending, "\n"); pos >= 0 {
			reprint = false
			carry = d.pending[pos+1:]
		}

	case buf == "\n":
		d.pending = ""
		if !d.needsCapping {
			d.write(d.clearLine)
		}
		return

	case strings.Contains(buf, "\n"):
		buf = strings.TrimSpace(buf)
		if pos := strings.LastIndex(buf, "\n"); pos >= 0 {
			buf = buf[pos+1:]
		}
		d.pending = buf
		clear = true

	default:
		d.pending += buf
	}

	d.Cap()

	prefix := "\r"
	if clear {
		prefix = d.clearLine
	}
	d.write(prefix + d.pending)

	if !reprint {
		d.pending = carry
		return
	}
	if runewidth.StringWidth(d.pending) >= d.width {
		d.pending = ""
	}
}

// Status writes the rate banner. The first banner after echo output is
// preceded by two blank lines so the two never share a line.
func (d *Display) Status(rate int) {
	if !d.needsCapping {
		d.write("\n\n")
		d.needsCapping = true
	}
	banner := fmt.Sprintf("@@@@@@@@@@@@@@@@@@@@@ Baudrate: %*d @@@@@@@@@@@@@@@@@@@@@", d.rateWidth, rate)
	if d.Decorate != nil {
		banner = d.Decorate(banner)
	}
	d.write("\r" + banner)
}

// Cap emits two blank lines below a status banner, if one is showing
func (d *Display) Cap() {
	if !d.needsCapping {
		return
	}
	d.write("\n\n")
	d.needsCapping = false
}

// Newline moves to a fresh line below any banner
func (d *Display) Newline() {
	d.Cap()
	d.write("\n")
}

// Message writes a block of text on its own lines below any banner
func (d *Display) Message(text string) {
	d.Cap()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	d.write(text)
}

func (d *Display) write(s string) {
	// Diagnostic output; a failing terminal must not stop detection
	_, _ = io.WriteString(d.out, s)
}
