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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/VetCollarProject/collar-bridge/pkg/config"
	"github.com/VetCollarProject/collar-bridge/pkg/helpers"
	"github.com/VetCollarProject/collar-bridge/pkg/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "collar-bridge")
}

func run() error {
	configDir := flag.String(
		"config",
		defaultConfigDir(),
		"path to config directory",
	)
	daemonMode := flag.Bool(
		"daemon",
		false,
		"run without console log output",
	)
	debug := flag.Bool(
		"debug",
		false,
		"enable debug logging",
	)
	flag.Parse()

	var extraWriters []io.Writer
	if !*daemonMode {
		extraWriters = append(extraWriters, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := helpers.InitLogging(
		filepath.Join(*configDir, "logs"), *debug, extraWriters,
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.NewConfig(*configDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *debug {
		cfg.SetDebugLogging(true)
	}
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// missing dog id or auth token is fatal before any connection attempt
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("configuration invalid")
		return err
	}

	log.Info().Msg("=== collar bridge service starting ===")
	log.Info().Str("port", cfg.Serial().Port).Msg("serial port")
	log.Info().Int("baud", cfg.Serial().BaudRate).Msg("baud rate")
	log.Info().Str("url", cfg.API().BaseURL).Msg("api base url")
	log.Info().Str("dog_id", cfg.API().DogID).Msg("target dog record")
	log.Info().Dur("interval", cfg.Service().UpdateInterval()).Msg("update interval")

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	svc := service.New(cfg)
	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("bridge service failed: %w", err)
	}

	log.Info().Msg("bridge service stopped")
	return nil
}
