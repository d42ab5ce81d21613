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

package vitals

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Accepted sensor ranges. Out-of-range values are treated as absent, not
// as parse errors: temperature is mandatory so the frame is dropped,
// heart rate is optional so the reading survives without it.
const (
	MinTempC = 20.0
	MaxTempC = 50.0
	MinTempF = 68.0
	MaxTempF = 122.0

	MinHeartRate = 0
	MaxHeartRate = 300
)

var (
	// one line carries both scales, e.g. "Temperature:38.5C 101.3F"
	tempRe = regexp.MustCompile(`Temperature:([\d.]+)C\s+([\d.]+)F`)
	// e.g. "Waveform:1850 BPM:72 "
	waveformRe = regexp.MustCompile(`Waveform:(\d+)`)
	bpmRe      = regexp.MustCompile(`BPM:(\d+)`)
)

// Reading is one parsed transmission cycle. Immutable once produced.
// Celsius and Fahrenheit are parsed independently from the wire text, so
// no round-trip accuracy between them is guaranteed; both are trusted as
// reported.
type Reading struct {
	CapturedAt   time.Time
	HeartRate    *int
	TemperatureC float64
	TemperatureF float64
	Waveform     int
}

// Parser extracts readings from assembled frames. CapturedAt is stamped
// from the injected clock at parse time, not from anything embedded in
// the device text.
type Parser struct {
	clock clockwork.Clock
}

func NewParser() *Parser {
	return &Parser{clock: clockwork.NewRealClock()}
}

func NewParserWithClock(clock clockwork.Clock) *Parser {
	return &Parser{clock: clock}
}

// Parse extracts a Reading from one assembled frame, or returns nil if
// the frame has no acceptable temperature. Heart rate may be absent in a
// valid reading.
func (p *Parser) Parse(frame string) *Reading {
	var (
		tempC, tempF float64
		tempOK       bool
		waveform     int
		waveOK       bool
		heartRate    *int
	)

	// Equivalent of strings.Lines(frame) (Go 1.24+): each line keeps its
	// trailing newline, and no empty final line is produced.
	for rest := frame; rest != ""; {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
			rest = rest[i+1:]
		} else {
			rest = ""
		}
		if !tempOK {
			if c, f, ok := parseTemperature(line); ok {
				tempC, tempF = c, f
				tempOK = true
			}
		}

		if !waveOK {
			if wf, bpm, ok := parseWaveformAndBPM(line); ok {
				waveform = wf
				heartRate = bpm
				waveOK = true
			}
		}
	}

	// temperature is mandatory
	if !tempOK {
		return nil
	}

	return &Reading{
		TemperatureC: tempC,
		TemperatureF: tempF,
		Waveform:     waveform,
		HeartRate:    heartRate,
		CapturedAt:   p.clock.Now(),
	}
}

func parseTemperature(line string) (tempC, tempF float64, ok bool) {
	m := tempRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}

	c, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	f, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}

	if c < MinTempC || c > MaxTempC || f < MinTempF || f > MaxTempF {
		return 0, 0, false
	}

	return c, f, true
}

func parseWaveformAndBPM(line string) (waveform int, heartRate *int, ok bool) {
	wfMatch := waveformRe.FindStringSubmatch(line)
	if wfMatch == nil {
		return 0, nil, false
	}

	wf, err := strconv.Atoi(wfMatch[1])
	if err != nil {
		return 0, nil, false
	}

	if bpmMatch := bpmRe.FindStringSubmatch(line); bpmMatch != nil {
		bpm, err := strconv.Atoi(bpmMatch[1])
		if err == nil && bpm >= MinHeartRate && bpm <= MaxHeartRate {
			heartRate = &bpm
		}
	}

	return wf, heartRate, true
}

// Validate reapplies the sensor range checks before a reading is allowed
// to reach transport. The bounds are identical to the parser's on
// purpose: the two gates are independent so tightening one never
// silently loosens the other.
func Validate(r *Reading) bool {
	if r == nil {
		return false
	}

	if r.TemperatureC < MinTempC || r.TemperatureC > MaxTempC {
		return false
	}

	if r.HeartRate != nil && (*r.HeartRate < MinHeartRate || *r.HeartRate > MaxHeartRate) {
		return false
	}

	return true
}
