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

// Package config holds the bridge configuration: a TOML file on disk with
// defaults written on first run, plus environment overrides for the
// fields that identify the target dog record and carry the API
// credential.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/VetCollarProject/collar-bridge/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgFile       = "bridge.toml"

	// CfgEnv overrides the config file path.
	CfgEnv = "BRIDGE_CFG"
	// DogIDEnv overrides api.dog_id.
	DogIDEnv = "BRIDGE_DOG_ID"
	// AuthTokenEnv overrides api.auth_token.
	AuthTokenEnv = "BRIDGE_AUTH_TOKEN"

	// PortAuto selects serial port auto-detection.
	PortAuto = "auto"
)

type Values struct {
	Serial       Serial  `toml:"serial,omitempty"`
	API          API     `toml:"api,omitempty"`
	Service      Service `toml:"service,omitempty"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

type Serial struct {
	// Port is a device path/name, or "auto" for detection.
	Port             string `toml:"port"`
	BaudRate         int    `toml:"baud_rate"`
	ReconnectDelayMS int    `toml:"reconnect_delay_ms"`
}

type API struct {
	BaseURL      string `toml:"base_url"        validate:"required,url"`
	DogID        string `toml:"dog_id"          validate:"required"`
	AuthToken    string `toml:"auth_token"      validate:"required"`
	MaxRetries   int    `toml:"max_retries"     validate:"min=1"`
	RetryDelayMS int    `toml:"retry_delay_ms"  validate:"min=0"`
	TimeoutMS    int    `toml:"timeout_ms"      validate:"min=1"`
}

type Service struct {
	DeviceID         string `toml:"device_id,omitempty"`
	UpdateIntervalMS int    `toml:"update_interval_ms" validate:"min=0"`
	// APIPort is the local status endpoint port, 0 to disable.
	APIPort     int `toml:"api_port"`
	MaxInflight int `toml:"max_inflight" validate:"min=1"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Serial: Serial{
		Port:             PortAuto,
		BaudRate:         115200,
		ReconnectDelayMS: 5000,
	},
	API: API{
		BaseURL:      "http://localhost:3000/api",
		MaxRetries:   3,
		RetryDelayMS: 2000,
		TimeoutMS:    10000,
	},
	Service: Service{
		UpdateIntervalMS: 5000,
		APIPort:          7497,
		MaxInflight:      4,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top, so fields
	// not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	// credentials may come from the environment instead of the file
	if dogID := os.Getenv(DogIDEnv); dogID != "" {
		newVals.API.DogID = dogID
	}
	if token := os.Getenv(AuthTokenEnv); token != "" {
		newVals.API.AuthToken = token
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	// generate a device id if one doesn't exist
	if c.vals.Service.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.Service.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	// never write credentials sourced from the environment back to disk
	vals := c.vals
	if os.Getenv(DogIDEnv) != "" {
		vals.API.DogID = ""
	}
	if os.Getenv(AuthTokenEnv) != "" {
		vals.API.AuthToken = ""
	}

	data, err := toml.Marshal(&vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.cfgPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all required fields are present and well formed.
// A missing dog ID or auth token is a startup failure, not something the
// bridge can recover from at runtime.
func (c *Instance) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&c.vals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Instance) Serial() Serial {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial
}

func (c *Instance) API() API {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API
}

func (c *Instance) Service() Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(debug bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = debug
}

func (s Serial) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelayMS) * time.Millisecond
}

func (a API) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelayMS) * time.Millisecond
}

func (a API) Timeout() time.Duration {
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

func (s Service) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalMS) * time.Millisecond
}
