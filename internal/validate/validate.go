// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package validate

import (
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
)

// Stats counts what the validator did with each record.
type Stats struct {
	Accepted    int `json:"accepted"`
	Malformed   int `json:"malformed"`
	OutOfBounds int `json:"out_of_bounds"`
}

// Dropped is the total of rejected records.
func (s Stats) Dropped() int { return s.Malformed + s.OutOfBounds }

// Validator turns wire lines into frames and drops frames the position
// corrector must never see. With RequireGPS set (the Kalman path) a frame
// whose coordinate is missing, zero or outside Bounds is dropped.
type Validator struct {
	Bounds     gps.Bounds
	RequireGPS bool

	stats Stats
}

// New returns a validator for the given bounds.
func New(bounds gps.Bounds, requireGPS bool) *Validator {
	return &Validator{Bounds: bounds, RequireGPS: requireGPS}
}

// ParseLine parses and checks one wire line. Errors wrap
// imu.ErrMalformedFrame or gps.ErrOutOfBounds.
func (v *Validator) ParseLine(line string) (imu.RawFrame, error) {
	f, err := v.Parse(line)
	if err != nil {
		return imu.RawFrame{}, err
	}
	return v.Check(f)
}

// Parse only parses, counting malformed lines. Pass the frame to Check
// before using it.
func (v *Validator) Parse(line string) (imu.RawFrame, error) {
	f, err := imu.ParseFrame(line)
	if err != nil {
		v.stats.Malformed++
		return imu.RawFrame{}, err
	}
	return f, nil
}

// Check applies the GPS drop policy to an already parsed frame.
func (v *Validator) Check(f imu.RawFrame) (imu.RawFrame, error) {
	if v.RequireGPS {
		if err := v.Bounds.Check(f.Lat, f.Lon); err != nil {
			v.stats.OutOfBounds++
			return imu.RawFrame{}, err
		}
	}
	v.stats.Accepted++
	return f, nil
}

// Stats returns the counters so far.
func (v *Validator) Stats() Stats { return v.stats }
