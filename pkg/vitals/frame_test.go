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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrame = "Temperature:38.5C 101.3F\nWaveform:1850 BPM:72 \n"

func TestPush_SingleChunk(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	frame, ok := a.Push(testFrame)

	require.True(t, ok)
	assert.Equal(t, testFrame, frame)
	assert.Zero(t, a.Pending(), "buffer should be cleared after completion")
}

func TestPush_SplitAcrossChunks(t *testing.T) {
	t.Parallel()

	// neither chunk alone contains both markers
	a := NewAssembler()

	frame, ok := a.Push("Temperature:38.5C 101.3F\n")
	assert.False(t, ok)
	assert.Empty(t, frame)

	frame, ok = a.Push("Waveform:1850 BPM:72 \n")
	require.True(t, ok)
	assert.Equal(t, testFrame, frame)
}

func TestPush_PartialMarkerDoesNotTrigger(t *testing.T) {
	t.Parallel()

	a := NewAssembler()

	_, ok := a.Push("Temper")
	assert.False(t, ok)

	_, ok = a.Push("ature:38.5C 101.3F\nWave")
	assert.False(t, ok)

	frame, ok := a.Push("form:1850 BPM:72 \n")
	require.True(t, ok)
	assert.Equal(t, testFrame, frame)
}

func TestPush_ByteAtATime(t *testing.T) {
	t.Parallel()

	a := NewAssembler()

	var frame string
	var ok bool
	completions := 0
	for _, b := range []byte(testFrame) {
		frame, ok = a.Push(string(b))
		if ok {
			completions++
		}
	}

	require.Equal(t, 1, completions, "exactly one frame should complete")
	assert.Equal(t, testFrame, frame)
}

func TestPush_OverflowResets(t *testing.T) {
	t.Parallel()

	a := NewAssemblerWithCap(128)

	// junk with one marker only, never completing
	_, ok := a.Push("Temperature:" + strings.Repeat("x", 200))
	assert.False(t, ok)
	assert.Zero(t, a.Pending(), "overflowing buffer should reset")

	// assembler still works after the reset
	frame, ok := a.Push(testFrame)
	require.True(t, ok)
	assert.Equal(t, testFrame, frame)
}

func TestReset(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	_, ok := a.Push("Temperature:38.5C 101.3F\n")
	require.False(t, ok)
	require.Positive(t, a.Pending())

	a.Reset()
	assert.Zero(t, a.Pending())
}
