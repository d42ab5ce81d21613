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

package collar

import (
	"errors"
	"time"

	"github.com/VetCollarProject/collar-bridge/pkg/helpers/syncutil"
)

// mockSerialPort implements SerialPort for tests: scripted data, error
// injection, and a custom read function for timing control.
type mockSerialPort struct {
	ReadFunc   func(p []byte) (n int, err error)
	ReadError  error
	CloseError error
	TimeoutErr error
	ReadData   []byte
	readIndex  int
	closed     bool
	mu         syncutil.RWMutex
}

func newMockSerialPort() *mockSerialPort {
	return &mockSerialPort{}
}

func (m *mockSerialPort) Read(p []byte) (int, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return 0, errors.New("port closed")
	}

	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}

	if m.ReadError != nil {
		return 0, m.ReadError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readIndex >= len(m.ReadData) {
		// simulate a blocking read hitting the timeout
		time.Sleep(10 * time.Millisecond)
		return 0, nil
	}

	n := copy(p, m.ReadData[m.readIndex:])
	m.readIndex += n
	return n, nil
}

func (m *mockSerialPort) Close() error {
	m.mu.Lock()
	m.closed = true
	closeError := m.CloseError
	m.mu.Unlock()
	return closeError
}

func (m *mockSerialPort) SetReadTimeout(_ time.Duration) error {
	return m.TimeoutErr
}

func (m *mockSerialPort) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
