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

// Package server exposes a small localhost HTTP surface for diagnosing
// the bridge without reading logs: a health check and a status snapshot.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	requestsPerSecond = 10
	burstSize         = 20
)

// Snapshot is the bridge state reported by GET /api/status.
type Snapshot struct {
	StartedAt      time.Time `json:"startedAt"`
	Device         string    `json:"device"`
	LastStatus     string    `json:"lastStatus,omitempty"`
	LastCapturedAt string    `json:"lastCapturedAt,omitempty"`
	FramesParsed   uint64    `json:"framesParsed"`
	FramesDropped  uint64    `json:"framesDropped"`
	SendsOK        uint64    `json:"sendsOk"`
	SendsFailed    uint64    `json:"sendsFailed"`
	Connected      bool      `json:"connected"`
}

// Server serves the local status endpoint. The snapshot function is
// supplied by the orchestrator.
type Server struct {
	srv      *http.Server
	snapshot func() Snapshot
	port     int
}

func New(port int, snapshot func() Snapshot) *Server {
	return &Server{port: port, snapshot: snapshot}
}

// rateLimitMiddleware applies a single token bucket to the whole
// endpoint. The surface is localhost-only so per-client buckets are not
// worth the bookkeeping.
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn().Str("path", r.URL.Path).Msg("status endpoint rate limited")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)))

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
			log.Error().Err(err).Msg("failed to encode status snapshot")
		}
	})

	return r
}

// Start begins serving on localhost. Returns immediately; serve errors
// other than graceful shutdown are logged.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("status endpoint listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status endpoint serve failed")
		}
	}()

	return nil
}

// Stop shuts the endpoint down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("status endpoint shutdown failed")
	}
}
