// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/mobility_mapper/internal/imu"
)

const metresPerDegree = 111320.0

// SimOptions shapes the synthetic walk.
type SimOptions struct {
	SamplingPeriod float64 // seconds of signal time per frame
	StepPeriod     float64 // seconds
	Speed          float64 // m/s, moves the GPS coordinate
	YawRate        float64 // deg/s about the vertical axis

	// Origin of the GPS track. Zero leaves lat/lon at 0 (no fix).
	OriginLat float64
	OriginLon float64
}

// DefaultSimOptions walks at 2 steps/s, 1.3 m/s, straight ahead.
func DefaultSimOptions() SimOptions {
	return SimOptions{SamplingPeriod: 0.02, StepPeriod: 0.5, Speed: 1.3}
}

// Simulated produces a chest-mounted walk with a repeating 60 s route:
// flat walking, a stair section from 20 s to 30 s and a ramp from
// 40 s to 50 s. Frames depend only on the sample index, so a run is
// reproducible.
type Simulated struct {
	opts SimOptions
	pace *pacer

	i       int
	heading float64 // radians, 0 = north
	lat     float64
	lon     float64
}

// NewSimulated returns a simulated wearable paced at interval. An interval
// of 0 returns frames as fast as they are read.
func NewSimulated(opts SimOptions, interval time.Duration) *Simulated {
	return &Simulated{
		opts: opts,
		pace: newPacer(interval),
		lat:  opts.OriginLat,
		lon:  opts.OriginLon,
	}
}

func (s *Simulated) Next() (imu.RawFrame, error) {
	s.pace.wait()

	dt := s.opts.SamplingPeriod
	t := float64(s.i) * dt
	s.i++

	amp, pitch := 0.15, 0.0
	switch phase := math.Mod(t, 60); {
	case phase >= 20 && phase < 30:
		amp = 0.45
	case phase >= 40 && phase < 50:
		pitch = 0.3
	}

	bounce := amp * math.Cos(2*math.Pi*t/s.opts.StepPeriod)
	f := imu.RawFrame{
		Ax: math.Sin(pitch),
		Az: math.Cos(pitch) + bounce,
		Gx: 60 * math.Abs(math.Sin(math.Pi*t/s.opts.StepPeriod)),
		Gz: s.opts.YawRate,
	}

	if s.opts.OriginLat != 0 && s.opts.OriginLon != 0 {
		d := s.opts.Speed * dt
		s.lat += d * math.Cos(s.heading) / metresPerDegree
		s.lon += d * math.Sin(s.heading) / (metresPerDegree * math.Cos(s.lat*math.Pi/180))
		f.Lat, f.Lon = s.lat, s.lon
	}
	s.heading += s.opts.YawRate * math.Pi / 180 * dt

	return f, nil
}
