// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsCheck(t *testing.T) {
	b := DefaultBounds()
	require.NoError(t, b.Validate())

	assert.NoError(t, b.Check(37.5665, 126.978))
	assert.ErrorIs(t, b.Check(0, 126.978), ErrOutOfBounds)
	assert.ErrorIs(t, b.Check(37.5, 0), ErrOutOfBounds)
	assert.ErrorIs(t, b.Check(math.NaN(), 127), ErrOutOfBounds)
	assert.ErrorIs(t, b.Check(40.1, 127), ErrOutOfBounds)
	assert.ErrorIs(t, b.Check(37.5, 123.9), ErrOutOfBounds)

	// edges are inclusive
	assert.True(t, b.Contains(33.0, 124.0))
	assert.True(t, b.Contains(39.0, 130.0))
}

func TestBoundsValidate(t *testing.T) {
	assert.Error(t, Bounds{LatMin: 39, LatMax: 33, LonMin: 124, LonMax: 130}.Validate())
	assert.Error(t, Bounds{LatMin: 33, LatMax: 39, LonMin: 130, LonMax: 130}.Validate())
	assert.Error(t, Bounds{LatMin: -100, LatMax: 39, LonMin: 124, LonMax: 130}.Validate())
}

func TestParseNMEARMC(t *testing.T) {
	fix, err := ParseNMEA("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70")
	require.NoError(t, err)

	assert.InDelta(t, 51.563667, fix.Latitude, 1e-5)
	assert.InDelta(t, -0.704, fix.Longitude, 1e-5)
	assert.InDelta(t, 173.8, fix.SpeedKnots, 1e-9)
	assert.Equal(t, "A", fix.Validity)
	assert.True(t, fix.Valid())
}

func TestParseNMEAGGA(t *testing.T) {
	fix, err := ParseNMEA("$GPGGA,034225.077,3356.4650,S,15124.5567,E,1,03,9.7,-25.0,M,21.0,M,,0000*58")
	require.NoError(t, err)

	assert.InDelta(t, -33.941083, fix.Latitude, 1e-5)
	assert.InDelta(t, 151.409278, fix.Longitude, 1e-5)
	assert.True(t, fix.Valid())
}

func TestParseNMEARejects(t *testing.T) {
	_, err := ParseNMEA("37.5,127.0,0,0,1,0,0,0,0,0,0")
	assert.ErrorIs(t, err, ErrNoFix)

	_, err = ParseNMEA("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*00")
	assert.Error(t, err)
}

func TestReceiverKeepsLastValidFix(t *testing.T) {
	r := NewReceiver()
	_, ok := r.Latest()
	assert.False(t, ok)

	assert.True(t, r.Feed("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"))
	assert.False(t, r.Feed("garbage"))

	fix, ok := r.Latest()
	require.True(t, ok)
	assert.InDelta(t, 51.563667, fix.Latitude, 1e-5)
}
