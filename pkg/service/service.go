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

// Package service wires the pipeline together: serial chunks in, frames
// assembled, readings parsed and validated, vitals relayed to the API.
package service

import (
	"context"
	"time"

	"github.com/VetCollarProject/collar-bridge/pkg/api/client"
	"github.com/VetCollarProject/collar-bridge/pkg/api/server"
	"github.com/VetCollarProject/collar-bridge/pkg/collar"
	"github.com/VetCollarProject/collar-bridge/pkg/config"
	"github.com/VetCollarProject/collar-bridge/pkg/helpers/syncutil"
	"github.com/VetCollarProject/collar-bridge/pkg/vitals"
	"github.com/rs/zerolog/log"
)

// chunkQueueSize bounds the chunk channel between the serial session and
// the pipeline. The session blocks when it fills, which is the explicit
// backpressure point if the API ever becomes the bottleneck.
const chunkQueueSize = 64

// Sender is the transport the pipeline hands validated readings to.
type Sender interface {
	SendVitalData(ctx context.Context, reading *vitals.Reading, status string) bool
}

type stats struct {
	lastCapturedAt time.Time
	lastStatus     string
	framesParsed   uint64
	framesDropped  uint64
	sendsOK        uint64
	sendsFailed    uint64
}

// Service is the orchestrator: it owns the chunk channel, drives the
// assemble/parse/validate/classify/send pipeline, and tracks a status
// snapshot for the local endpoint. Ingestion never blocks on the
// network; sends run on their own goroutines bounded by the transport
// client's in-flight cap.
type Service struct {
	startedAt time.Time
	cfg       *config.Instance
	session   *collar.Session
	assembler *vitals.Assembler
	parser    *vitals.Parser
	sender    Sender
	statusSrv *server.Server
	chunks    chan collar.Chunk
	stats     stats
	mu        syncutil.RWMutex
}

func New(cfg *config.Instance) *Service {
	chunks := make(chan collar.Chunk, chunkQueueSize)

	svc := &Service{
		cfg:       cfg,
		session:   collar.NewSession(cfg.Serial(), chunks),
		assembler: vitals.NewAssembler(),
		parser:    vitals.NewParser(),
		sender:    client.New(cfg.API(), cfg.Service()),
		chunks:    chunks,
	}

	if port := cfg.Service().APIPort; port != 0 {
		svc.statusSrv = server.New(port, svc.Snapshot)
	}

	return svc
}

// Run starts the pipeline and blocks until ctx is cancelled. Shutdown
// disconnects the serial session and stops the status endpoint without
// waiting for in-flight sends.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	if s.statusSrv != nil {
		if err := s.statusSrv.Start(); err != nil {
			log.Warn().Err(err).Msg("status endpoint unavailable")
		}
	}

	// a failed first connect has already scheduled a reconnect
	if err := s.session.Connect(); err != nil {
		log.Error().Err(err).Msg("initial serial connection failed")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down bridge service")
			s.session.Disconnect()
			if s.statusSrv != nil {
				s.statusSrv.Stop()
			}
			return nil
		case chunk := <-s.chunks:
			s.handleChunk(chunk)
		}
	}
}

func (s *Service) handleChunk(chunk collar.Chunk) {
	frame, ok := s.assembler.Push(chunk.Data)
	if !ok {
		return
	}

	reading := s.parser.Parse(frame)
	if reading == nil || !vitals.Validate(reading) {
		log.Warn().
			Str("source", chunk.Source).
			Msg("discarding invalid or incomplete frame")
		s.mu.Lock()
		s.stats.framesDropped++
		s.mu.Unlock()
		return
	}

	heartRate := 0
	if reading.HeartRate != nil {
		heartRate = *reading.HeartRate
	}
	status := vitals.VitalStatus(heartRate, reading.TemperatureC, vitals.BreedUnknown)

	s.mu.Lock()
	s.stats.framesParsed++
	s.stats.lastStatus = status
	s.stats.lastCapturedAt = reading.CapturedAt
	s.mu.Unlock()

	log.Debug().
		Float64("temperature", reading.TemperatureC).
		Int("waveform", reading.Waveform).
		Str("status", status).
		Msg("parsed reading")

	if reading.HeartRate == nil {
		log.Warn().Msg("skipping update, no heart rate in frame")
		return
	}

	// fire-and-forget: the pipeline keeps ingesting while the send
	// retries. Not tied to the run context: an issued send is never
	// cancelled by shutdown.
	go func() {
		sent := s.sender.SendVitalData(context.Background(), reading, status)

		s.mu.Lock()
		if sent {
			s.stats.sendsOK++
		} else {
			s.stats.sendsFailed++
		}
		s.mu.Unlock()
	}()
}

// Snapshot reports the current pipeline state for the status endpoint.
func (s *Service) Snapshot() server.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := server.Snapshot{
		StartedAt:     s.startedAt,
		Connected:     s.session.Connected(),
		Device:        s.session.Device(),
		LastStatus:    s.stats.lastStatus,
		FramesParsed:  s.stats.framesParsed,
		FramesDropped: s.stats.framesDropped,
		SendsOK:       s.stats.sendsOK,
		SendsFailed:   s.stats.sendsFailed,
	}
	if !s.stats.lastCapturedAt.IsZero() {
		snap.LastCapturedAt = s.stats.lastCapturedAt.UTC().Format(time.RFC3339)
	}
	return snap
}
