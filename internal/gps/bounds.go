// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned for coordinates that are zero, missing, or
// outside the configured region.
var ErrOutOfBounds = errors.New("position out of bounds")

// Bounds is an inclusive latitude/longitude box.
type Bounds struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// DefaultBounds covers the Korean peninsula, where the device was first
// deployed.
func DefaultBounds() Bounds {
	return Bounds{LatMin: 33.0, LatMax: 39.0, LonMin: 124.0, LonMax: 130.0}
}

// Validate checks the box is well formed.
func (b Bounds) Validate() error {
	if b.LatMin >= b.LatMax {
		return fmt.Errorf("bounds: lat_min %.6f must be below lat_max %.6f", b.LatMin, b.LatMax)
	}
	if b.LonMin >= b.LonMax {
		return fmt.Errorf("bounds: lon_min %.6f must be below lon_max %.6f", b.LonMin, b.LonMax)
	}
	if b.LatMin < -90 || b.LatMax > 90 || b.LonMin < -180 || b.LonMax > 180 {
		return fmt.Errorf("bounds: box exceeds the valid coordinate range")
	}
	return nil
}

// Check returns ErrOutOfBounds (wrapped) unless lat/lon is a present,
// non-zero coordinate inside the box.
func (b Bounds) Check(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("%w: missing coordinate", ErrOutOfBounds)
	}
	if lat == 0 || lon == 0 {
		return fmt.Errorf("%w: zero coordinate (%.6f, %.6f)", ErrOutOfBounds, lat, lon)
	}
	if lat < b.LatMin || lat > b.LatMax || lon < b.LonMin || lon > b.LonMax {
		return fmt.Errorf("%w: (%.6f, %.6f) outside box", ErrOutOfBounds, lat, lon)
	}
	return nil
}

// Contains is Check without the reason.
func (b Bounds) Contains(lat, lon float64) bool {
	return b.Check(lat, lon) == nil
}
