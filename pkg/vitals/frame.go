// Collar Bridge
// Copyright (c) 2026 The Vet Collar Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Collar Bridge.
//
// Collar Bridge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Collar Bridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Collar Bridge.  If not, see <http://www.gnu.org/licenses/>.

// Package vitals turns the collar's raw serial output into validated
// sensor readings and derives a coarse health status from them.
package vitals

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// TemperatureMarker and WaveformMarker are the section headers of one
	// transmission cycle. A frame is complete once the buffer holds both.
	TemperatureMarker = "Temperature:"
	WaveformMarker    = "Waveform:"

	// DefaultMaxBuffer bounds buffer growth between complete frames. The
	// collar emits a few dozen bytes per cycle, so hitting this means the
	// stream is garbage and the buffer is reset.
	DefaultMaxBuffer = 64 * 1024
)

// Assembler accumulates arbitrarily-chunked serial text and detects when
// a complete frame is available. The device does not guarantee one write
// per logical message, so completion is content-based: the buffer must
// contain both section markers. Not safe for concurrent use; the
// orchestrator is the only caller.
type Assembler struct {
	buf       strings.Builder
	maxBuffer int
}

// NewAssembler returns an Assembler with the default buffer cap.
func NewAssembler() *Assembler {
	return &Assembler{maxBuffer: DefaultMaxBuffer}
}

// NewAssemblerWithCap returns an Assembler with a custom buffer cap.
func NewAssemblerWithCap(maxBuffer int) *Assembler {
	return &Assembler{maxBuffer: maxBuffer}
}

// Push appends a raw chunk to the buffer. When the buffer contains a
// complete frame it is returned and the buffer cleared. A chunk holding
// only part of a marker must not trigger completion, which falls out of
// the substring check running against the whole buffer.
func (a *Assembler) Push(chunk string) (string, bool) {
	a.buf.WriteString(chunk)

	if a.buf.Len() > a.maxBuffer {
		log.Warn().
			Int("size", a.buf.Len()).
			Msg("frame buffer overflow, resetting")
		a.buf.Reset()
		return "", false
	}

	frame := a.buf.String()
	if !strings.Contains(frame, TemperatureMarker) || !strings.Contains(frame, WaveformMarker) {
		return "", false
	}

	a.buf.Reset()
	return frame, true
}

// Reset discards any buffered data. Called after a failed parse so a
// corrupt frame cannot stall the stream.
func (a *Assembler) Reset() {
	a.buf.Reset()
}

// Pending returns the number of buffered bytes awaiting a complete frame.
func (a *Assembler) Pending() int {
	return a.buf.Len()
}
