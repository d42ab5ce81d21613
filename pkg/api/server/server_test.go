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

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		StartedAt:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Connected:      true,
		Device:         "/dev/ttyUSB0",
		LastStatus:     "normal",
		LastCapturedAt: "2026-03-14T09:26:53Z",
		FramesParsed:   10,
		FramesDropped:  2,
		SendsOK:        7,
		SendsFailed:    1,
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := New(0, testSnapshot)
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	s := New(0, testSnapshot)
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, testSnapshot(), got)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	s := New(0, testSnapshot)
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	limited := false
	for i := 0; i < 100; i++ {
		resp, err := http.Get(srv.URL + "/api/health")
		require.NoError(t, err)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}

	assert.True(t, limited, "burst beyond the bucket should be limited")
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	s := New(0, testSnapshot)
	require.NoError(t, s.Start())
	s.Stop()
}
