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

// Package collar owns the serial connection to the collar hardware:
// port auto-detection, open/close, the raw read loop, and reconnection
// after errors.
package collar

import (
	"errors"
	"fmt"
	"time"

	"github.com/VetCollarProject/collar-bridge/pkg/config"
	"github.com/VetCollarProject/collar-bridge/pkg/helpers"
	"github.com/VetCollarProject/collar-bridge/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Chunk is one raw fragment of serial output, delivered at whatever
// boundary the transport produced it. Framing is the consumer's problem.
type Chunk struct {
	Data   string
	Source string
}

// ErrNoPort is returned by Connect when no port could be opened or
// auto-detected. A reconnect attempt is already scheduled when this is
// returned.
var ErrNoPort = errors.New("no collar port available")

// SerialPort is the subset of serial port operations the session needs
// (mockable in tests).
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// SerialPortFactory creates a serial port connection.
type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultSerialPortFactory opens real serial ports.
func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Session owns the serial connection lifecycle. Raw chunks are emitted
// on the channel supplied at construction; the channel has exactly one
// consumer and a send blocks when it is full, which is the session's
// only form of backpressure.
type Session struct {
	clock       clockwork.Clock
	portFactory SerialPortFactory
	listPorts   func() ([]helpers.PortInfo, error)
	chunks      chan<- Chunk
	port        SerialPort
	reconnect   clockwork.Timer
	signatures  []Signature
	cfg         config.Serial
	path        string
	connecting  bool
	reading     bool
	mu          syncutil.Mutex
}

func NewSession(cfg config.Serial, chunks chan<- Chunk) *Session {
	return &Session{
		cfg:         cfg,
		chunks:      chunks,
		portFactory: DefaultSerialPortFactory,
		listPorts:   helpers.ListSerialPorts,
		signatures:  DefaultSignatures,
		clock:       clockwork.NewRealClock(),
	}
}

// Connect opens the configured port, auto-detecting one first if the
// port is set to "auto". On failure a reconnect attempt is scheduled and
// an error returned; the process keeps running. Calls made while a
// connection attempt is already in progress are no-ops.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return nil
	}
	if s.port != nil {
		s.mu.Unlock()
		log.Info().Msg("serial port already connected")
		return nil
	}
	s.connecting = true
	s.mu.Unlock()

	path := s.cfg.Port
	if path == "" || path == config.PortAuto {
		detected, err := s.detectPort()
		if err != nil || detected == "" {
			s.mu.Lock()
			s.connecting = false
			s.mu.Unlock()
			s.scheduleReconnect()
			return ErrNoPort
		}
		path = detected
	}

	log.Info().
		Str("port", path).
		Int("baud", s.cfg.BaudRate).
		Msg("connecting to serial port")

	port, err := s.portFactory(path, &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		log.Error().Err(err).Str("port", path).Msg("failed to open serial port")
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
		s.scheduleReconnect()
		return fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close serial port")
		}
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
		s.scheduleReconnect()
		return fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	s.mu.Lock()
	s.port = port
	s.path = path
	s.reading = true
	s.connecting = false
	s.mu.Unlock()

	log.Info().Str("port", path).Msg("serial port opened")

	go s.readLoop(port, path)

	return nil
}

func (s *Session) detectPort() (string, error) {
	ports, err := s.listPorts()
	if err != nil {
		log.Error().Err(err).Msg("failed to enumerate serial ports")
		return "", err
	}
	return DetectPort(ports, s.signatures), nil
}

func (s *Session) readLoop(port SerialPort, path string) {
	buf := make([]byte, 1024)

	for {
		s.mu.Lock()
		reading := s.reading
		s.mu.Unlock()
		if !reading {
			return
		}

		n, err := port.Read(buf)
		if err != nil {
			s.mu.Lock()
			stopping := !s.reading
			s.mu.Unlock()
			if stopping {
				// deliberate disconnect, not a device fault
				return
			}
			log.Error().Err(err).Str("port", path).Msg("serial read failed")
			s.closePort()
			s.scheduleReconnect()
			return
		}

		if n == 0 {
			continue
		}

		s.chunks <- Chunk{Data: string(buf[:n]), Source: path}
	}
}

// scheduleReconnect arms a single reconnect timer. Duplicate calls while
// a timer is pending do nothing.
func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reconnect != nil {
		return
	}

	delay := s.cfg.ReconnectDelay()
	log.Info().Dur("delay", delay).Msg("scheduling serial reconnection")

	s.reconnect = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		s.reconnect = nil
		s.mu.Unlock()

		if err := s.Connect(); err != nil {
			log.Error().Err(err).Msg("reconnection attempt failed")
		}
	})
}

// Disconnect cancels any pending reconnect and closes the port. Close
// errors are logged, not returned.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	s.mu.Unlock()

	s.closePort()
}

func (s *Session) closePort() {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.reading = false
	s.mu.Unlock()

	if port == nil {
		return
	}

	if err := port.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing serial port")
	} else {
		log.Info().Msg("serial port closed")
	}
}

// Connected reports whether the port is open and the read loop active.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil && s.reading
}

// Device returns the path of the currently open port, or "" when
// disconnected.
func (s *Session) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ""
	}
	return s.path
}
