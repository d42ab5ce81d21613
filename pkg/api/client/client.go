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

// Package client delivers parsed readings to the backend API under local
// throttling, bounded retry with backoff, and error-class-specific abort
// rules.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/VetCollarProject/collar-bridge/pkg/config"
	"github.com/VetCollarProject/collar-bridge/pkg/helpers/syncutil"
	"github.com/VetCollarProject/collar-bridge/pkg/vitals"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// defaultTransport pools connections to the API host.
var defaultTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
}

type vitalsPayload struct {
	Status      string  `json:"status"`
	Time        string  `json:"time"`
	HeartRate   int     `json:"heartRate"`
	Temperature float64 `json:"temperature"`
}

// Client owns the outbound HTTP relationship to the API. The "last
// successful send" timestamp behind the mutex is the local throttle: it
// is written only on success, so a run of throttled skips never extends
// the window. A weighted semaphore caps concurrent in-flight sends.
type Client struct {
	clock          clockwork.Clock
	httpClient     *http.Client
	sem            *semaphore.Weighted
	lastSend       time.Time
	cfg            config.API
	breedSize      vitals.BreedSize
	updateInterval time.Duration
	mu             syncutil.Mutex
}

func New(cfg config.API, svc config.Service) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: defaultTransport,
			Timeout:   cfg.Timeout(),
		},
		updateInterval: svc.UpdateInterval(),
		sem:            semaphore.NewWeighted(int64(svc.MaxInflight)),
		breedSize:      vitals.BreedUnknown,
		clock:          clockwork.NewRealClock(),
	}
}

// SendVitalData relays one reading to the API. status may be "" to have
// it derived from the reading. Returns true only on an acknowledged
// send; false on throttled skip, in-flight cap, terminal API errors
// (401/404), or retry exhaustion.
func (c *Client) SendVitalData(ctx context.Context, reading *vitals.Reading, status string) bool {
	c.mu.Lock()
	elapsed := c.clock.Since(c.lastSend)
	c.mu.Unlock()
	if elapsed < c.updateInterval {
		log.Debug().
			Dur("elapsed", elapsed).
			Msg("skipping update, too soon since last send")
		return false
	}

	if !c.sem.TryAcquire(1) {
		log.Warn().Msg("skipping update, too many sends in flight")
		return false
	}
	defer c.sem.Release(1)

	heartRate := 0
	if reading.HeartRate != nil {
		heartRate = *reading.HeartRate
	}

	if status == "" {
		status = vitals.VitalStatus(heartRate, reading.TemperatureC, c.breedSize)
	}

	payload := vitalsPayload{
		HeartRate:   heartRate,
		Temperature: reading.TemperatureC,
		Status:      status,
		Time:        reading.CapturedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal vitals payload")
		return false
	}

	sendID := uuid.NewString()

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		code, err := c.put(ctx, body)

		if err == nil && code >= 200 && code < 300 {
			c.mu.Lock()
			c.lastSend = c.clock.Now()
			c.mu.Unlock()
			log.Info().
				Str("send_id", sendID).
				Int("heart_rate", payload.HeartRate).
				Float64("temperature", payload.Temperature).
				Str("status", payload.Status).
				Msg("sent vital data")
			return true
		}

		switch code {
		case http.StatusUnauthorized:
			log.Error().Str("send_id", sendID).
				Msg("authentication failed, check auth token")
			return false
		case http.StatusNotFound:
			log.Error().Str("send_id", sendID).
				Msg("dog record not found, check dog id")
			return false
		case http.StatusTooManyRequests:
			// server-side throttle gets an extra backoff multiplier
			wait := c.cfg.RetryDelay() * time.Duration(attempt+2)
			log.Warn().
				Str("send_id", sendID).
				Dur("wait", wait).
				Int("attempt", attempt+1).
				Int("max_retries", c.cfg.MaxRetries).
				Msg("rate limited by server, backing off")
			if !c.wait(ctx, wait) {
				return false
			}
			continue
		}

		if attempt < c.cfg.MaxRetries-1 {
			wait := c.cfg.RetryDelay() * time.Duration(attempt+1)
			log.Warn().
				Str("send_id", sendID).
				Int("code", code).
				Err(err).
				Dur("wait", wait).
				Int("attempt", attempt+1).
				Int("max_retries", c.cfg.MaxRetries).
				Msg("send failed, retrying")
			if !c.wait(ctx, wait) {
				return false
			}
		}
	}

	log.Error().Str("send_id", sendID).
		Msg("failed to send vital data after all retries")
	return false
}

// put performs one PUT attempt. The returned code is 0 for network-level
// failures.
func (c *Client) put(ctx context.Context, body []byte) (int, error) {
	url := fmt.Sprintf("%s/dogs/%s/vitals", c.cfg.BaseURL, c.cfg.DogID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}

	// drain so the connection can be reused
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, fmt.Errorf("api returned %d: %s", resp.StatusCode, respBody)
}

func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-c.clock.After(d):
		return true
	case <-ctx.Done():
		log.Warn().Msg("send cancelled during backoff")
		return false
	}
}
