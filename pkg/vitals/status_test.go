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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVitalStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		size      BreedSize
		heartRate int
		tempC     float64
		want      string
	}{
		{
			name:      "both normal",
			heartRate: 75,
			tempC:     38.5, // ~101.3F
			size:      BreedUnknown,
			want:      StatusNormal,
		},
		{
			name:      "high heart rate only",
			heartRate: 130,
			tempC:     38.5,
			size:      BreedUnknown,
			want:      StatusWarning,
		},
		{
			name:      "high heart rate and high temperature",
			heartRate: 130,
			tempC:     40, // 104F
			size:      BreedUnknown,
			want:      StatusCritical,
		},
		{
			name:      "low heart rate only",
			heartRate: 50,
			tempC:     38.5,
			size:      BreedUnknown,
			want:      StatusWarning,
		},
		{
			name:      "high temperature only",
			heartRate: 80,
			tempC:     40,
			size:      BreedUnknown,
			want:      StatusWarning,
		},
		{
			name:      "large breed tolerates lower heart rate",
			heartRate: 65,
			tempC:     38.5,
			size:      BreedLarge,
			want:      StatusNormal,
		},
		{
			name:      "large breed flags above 100",
			heartRate: 110,
			tempC:     38.5,
			size:      BreedLarge,
			want:      StatusWarning,
		},
		{
			name:      "small breed tolerates higher heart rate",
			heartRate: 130,
			tempC:     38.5,
			size:      BreedSmall,
			want:      StatusNormal,
		},
		{
			name:      "small breed flags below 80",
			heartRate: 75,
			tempC:     38.5,
			size:      BreedSmall,
			want:      StatusWarning,
		},
		{
			name:      "unrecognized size falls back to unknown band",
			heartRate: 75,
			tempC:     38.5,
			size:      BreedSize("giant"),
			want:      StatusNormal,
		},
		{
			name:      "borderline temperature below normal band",
			heartRate: 75,
			tempC:     37.9, // ~100.2F, above low cutoff but below normal band
			size:      BreedUnknown,
			want:      StatusWarning,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, VitalStatus(tt.heartRate, tt.tempC, tt.size))
		})
	}
}

func TestTemperatureStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tempC float64
		want  axisStatus
	}{
		{name: "clearly low", tempC: 36.0, want: axisLow},          // 96.8F
		{name: "normal", tempC: 38.5, want: axisNormal},            // 101.3F
		{name: "clearly high", tempC: 40.0, want: axisHigh},        // 104F
		{name: "borderline low", tempC: 37.9, want: axisLow},       // 100.2F
		{name: "borderline high", tempC: 39.17, want: axisHigh},    // ~102.5F..103F gap
		{name: "bottom of normal band", tempC: 38.06, want: axisNormal}, // ~100.5F
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, temperatureStatus(tt.tempC))
		})
	}
}
