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
	"regexp"
	"strings"

	"github.com/VetCollarProject/collar-bridge/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// Signature matches one enumerated port against known collar hardware.
// VID/PID compare as lowercase hex equality, Product as a
// case-insensitive substring. Empty fields are wildcards.
type Signature struct {
	VID     string
	PID     string
	Product string
}

// DefaultSignatures lists the USB bridges the collar firmware ships on,
// in priority order. First match wins, deterministic by enumeration
// order.
var DefaultSignatures = []Signature{
	{VID: "1a86", PID: "7523"}, // CH340
	{VID: "10c4", PID: "ea60"}, // CP210x
	{VID: "0403"},              // FTDI
	{VID: "2341"},              // Arduino
	{VID: "2a03"},              // Arduino (clones)
	{VID: "303a"},              // Espressif
	{Product: "arduino"},
	{Product: "esp32"},
	{Product: "usb serial"},
	{Product: "usb-serial"},
	{Product: "usb to serial"},
}

// fallback when no metadata matched: common platform serial naming
var fallbackNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/dev/tty(USB|ACM)\d+$`),
	regexp.MustCompile(`^/dev/(tty|cu)\.(usbserial|usbmodem)`),
	regexp.MustCompile(`(?i)^COM\d+$`),
}

func (sig Signature) matches(port helpers.PortInfo) bool {
	if sig.VID != "" && sig.VID != port.VID {
		return false
	}
	if sig.PID != "" && sig.PID != port.PID {
		return false
	}
	if sig.Product != "" &&
		!strings.Contains(strings.ToLower(port.Product), strings.ToLower(sig.Product)) {
		return false
	}
	return true
}

// DetectPort selects the collar's port from an enumerated list: first by
// hardware signature, then by platform naming pattern. Returns "" when
// nothing plausible is present.
func DetectPort(ports []helpers.PortInfo, signatures []Signature) string {
	log.Info().Msgf("scanning %d available serial ports", len(ports))

	for _, sig := range signatures {
		for _, port := range ports {
			if sig.matches(port) {
				log.Info().
					Str("port", port.Name).
					Str("product", port.Product).
					Msg("auto-detected collar port by signature")
				return port.Name
			}
		}
	}

	for _, port := range ports {
		for _, re := range fallbackNamePatterns {
			if re.MatchString(port.Name) {
				log.Info().
					Str("port", port.Name).
					Msg("auto-selected first plausible serial port")
				return port.Name
			}
		}
	}

	log.Warn().Msg("no collar port detected automatically")
	return ""
}
