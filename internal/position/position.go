// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package position

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/orientation"
)

var (
	// ErrInsufficientSteps is reported when fewer than two step events were
	// detected. Positions degrade to the origin.
	ErrInsufficientSteps = errors.New("insufficient steps")

	// ErrNotInitialized means an estimate was requested before the filter
	// saw its first measurement.
	ErrNotInitialized = errors.New("position filter not initialized")

	// ErrAlreadyInitialized means a filter was initialised twice in one
	// session.
	ErrAlreadyInitialized = errors.New("position filter already initialized")
)

// CoordFrame says what a Position's X/Y mean.
type CoordFrame int

const (
	// Geographic positions hold latitude in X and longitude in Y.
	Geographic CoordFrame = iota
	// Local positions are metres east (X) and north (Y) of the start.
	Local
)

func (c CoordFrame) String() string {
	if c == Local {
		return "local"
	}
	return "geographic"
}

// ColumnNames returns the export column names for X and Y.
func (c CoordFrame) ColumnNames() (string, string) {
	if c == Local {
		return "pos_x", "pos_y"
	}
	return "lat", "lon"
}

// Position is a 2-D estimate. See CoordFrame for units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CorrectedSample is a raw frame plus its corrected position.
type CorrectedSample struct {
	Index    int          `json:"index"`
	Frame    imu.RawFrame `json:"frame"`
	Position Position     `json:"position"`
	Coord    CoordFrame   `json:"-"`
}

// Corrector turns accepted frames into corrected samples. Samples come
// out in input order, possibly later than their frame went in. Flush
// returns whatever is still held at stream end.
type Corrector interface {
	Update(f imu.RawFrame) ([]CorrectedSample, error)
	Flush() ([]CorrectedSample, error)
	Coord() CoordFrame
}

// Mode selects the correction strategy for a session.
type Mode string

const (
	ModeGPS  Mode = "gps"
	ModePDR  Mode = "pdr"
	ModeAuto Mode = "auto"
)

// ParseMode accepts gps, pdr or auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeGPS, ModePDR, ModeAuto:
		return m, nil
	}
	return "", fmt.Errorf("unknown position mode %q (want gps, pdr or auto)", s)
}

// ResolveMode picks a concrete mode for a recorded session: GPS when any
// frame carries a coordinate, PDR otherwise. Concrete modes pass through.
func ResolveMode(m Mode, frames []imu.RawFrame) Mode {
	if m != ModeAuto {
		return m
	}
	for _, f := range frames {
		if f.HasGPS() {
			return ModeGPS
		}
	}
	return ModePDR
}

// Options holds the tunables for both strategies.
type Options struct {
	KalmanR float64
	KalmanQ float64

	SamplingPeriod float64 // seconds
	StepLength     float64 // metres
	PeakProminence float64 // g
	MinStepPeriod  float64 // seconds
	SmoothWindow   int     // samples
	InitialHeading float64 // radians, 0 = +X
	MaxPending     int     // samples held waiting for the next step

	Mounting orientation.Mounting
}

// DefaultOptions returns the chest-mount tuning.
func DefaultOptions() Options {
	return Options{
		KalmanR:        20,
		KalmanQ:        0.01,
		SamplingPeriod: 0.02,
		StepLength:     0.65,
		PeakProminence: 0.15,
		MinStepPeriod:  0.4,
		SmoothWindow:   5,
		MaxPending:     500,
		Mounting:       orientation.ChestMount(),
	}
}

// New builds the corrector for a concrete mode. ModeAuto must be resolved
// first.
func New(mode Mode, opts Options) (Corrector, error) {
	switch mode {
	case ModeGPS:
		return NewKalmanCorrector(opts.KalmanR, opts.KalmanQ), nil
	case ModePDR:
		return NewPDRCorrector(opts)
	case ModeAuto:
		return nil, fmt.Errorf("position: auto mode must be resolved before processing")
	}
	return nil, fmt.Errorf("position: unknown mode %q", mode)
}
