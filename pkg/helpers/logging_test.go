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

package helpers

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogging(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	var buf bytes.Buffer
	err := InitLogging(logDir, false, []io.Writer{&buf})
	require.NoError(t, err)

	assert.DirExists(t, logDir)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	log.Info().Msg("bridge starting")
	assert.Contains(t, buf.String(), "bridge starting")
	assert.FileExists(t, filepath.Join(logDir, LogFile))

	// debug messages are filtered at info level
	buf.Reset()
	log.Debug().Msg("noisy detail")
	assert.NotContains(t, buf.String(), "noisy detail")
}

func TestInitLogging_DebugLevel(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	var buf bytes.Buffer
	err := InitLogging(logDir, true, []io.Writer{&buf})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Msg("noisy detail")
	assert.Contains(t, buf.String(), "noisy detail")
}
