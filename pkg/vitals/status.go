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

package vitals

// BreedSize selects the heart-rate band used for classification. The
// bridge has no breed information of its own, so it classifies with
// BreedUnknown unless told otherwise.
type BreedSize string

const (
	BreedLarge   BreedSize = "large"
	BreedSmall   BreedSize = "small"
	BreedUnknown BreedSize = "unknown"
)

// Status labels accepted by the API.
const (
	StatusNormal   = "normal"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

type axisStatus int

const (
	axisNormal axisStatus = iota
	axisLow
	axisHigh
)

// Heart-rate bands in BPM per breed size. Fixed lookup constants, not
// tunable parameters.
var heartRateBands = map[BreedSize]struct{ low, high int }{
	BreedLarge:   {low: 60, high: 100},
	BreedSmall:   {low: 80, high: 140},
	BreedUnknown: {low: 70, high: 120},
}

func heartRateStatus(heartRate int, size BreedSize) axisStatus {
	band, ok := heartRateBands[size]
	if !ok {
		band = heartRateBands[BreedUnknown]
	}

	switch {
	case heartRate < band.low:
		return axisLow
	case heartRate > band.high:
		return axisHigh
	default:
		return axisNormal
	}
}

// temperatureStatus classifies a Celsius temperature. Comparison always
// runs in Fahrenheit; the [100.5, 102.5] band is normal with borderline
// readings pushed to the nearer side.
func temperatureStatus(tempC float64) axisStatus {
	tempF := tempC*9/5 + 32

	switch {
	case tempF < 100:
		return axisLow
	case tempF > 103:
		return axisHigh
	case tempF >= 100.5 && tempF <= 102.5:
		return axisNormal
	case tempF < 100.5:
		return axisLow
	default:
		return axisHigh
	}
}

// VitalStatus derives the overall health label from heart rate and
// temperature. The combination counts abnormal axes rather than weighing
// magnitude: both normal is normal, one abnormal is warning, both
// abnormal is critical.
func VitalStatus(heartRate int, tempC float64, size BreedSize) string {
	hrAbnormal := heartRateStatus(heartRate, size) != axisNormal
	tempAbnormal := temperatureStatus(tempC) != axisNormal

	switch {
	case hrAbnormal && tempAbnormal:
		return StatusCritical
	case hrAbnormal || tempAbnormal:
		return StatusWarning
	default:
		return StatusNormal
	}
}
