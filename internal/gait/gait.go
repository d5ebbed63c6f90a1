// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gait derives step cadence and ground contact time from the
// corrected sample stream. Results are diagnostic; nothing feeds back into
// position correction or zone classification.
package gait

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/mobility_mapper/internal/dsp"
	"github.com/relabs-tech/mobility_mapper/internal/orientation"
	"github.com/relabs-tech/mobility_mapper/internal/position"
)

var (
	// ErrCannotSegment means no stance phase boundary was found at all.
	ErrCannotSegment = errors.New("cannot segment gait")

	// ErrUnpairedGaitEvents means stance edges were found but none formed
	// a complete start/end interval.
	ErrUnpairedGaitEvents = errors.New("unpaired gait events")

	// ErrInsufficientSteps is shared with the dead reckoning path.
	ErrInsufficientSteps = position.ErrInsufficientSteps
)

// Method names a segmentation strategy.
type Method string

const (
	MethodZUPT Method = "zupt"
	MethodPeak Method = "peak"
	MethodOff  Method = "off"
)

// ParseMethod accepts zupt, peak or off.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodZUPT, MethodPeak, MethodOff:
		return m, nil
	}
	return "", fmt.Errorf("unknown gait mode %q (want zupt, peak or off)", s)
}

// Result summarises a session.
type Result struct {
	Method  Method  `json:"method"`
	Steps   int     `json:"steps"`   // stance intervals or peaks
	Cadence float64 `json:"cadence"` // steps per minute
	Elapsed float64 `json:"elapsed"` // seconds the cadence is computed over

	// ground contact time, ZUPT only
	MeanContact float64 `json:"mean_contact,omitempty"`
	StdContact  float64 `json:"std_contact,omitempty"`
}

// Analyzer consumes corrected samples and reports on demand.
type Analyzer interface {
	Push(s position.CorrectedSample)
	Result() (Result, error)
}

// Options tunes both strategies.
type Options struct {
	SamplingPeriod float64
	Mounting       orientation.Mounting

	GyroThreshold float64 // deg/s, stance below
	SmoothWindow  int     // samples

	PeakHeight    float64 // g
	MinStepPeriod float64 // seconds
}

// DefaultOptions returns settings for a chest-worn unit at 50 Hz.
func DefaultOptions() Options {
	return Options{
		SamplingPeriod: 0.02,
		Mounting:       orientation.ChestMount(),
		GyroThreshold:  20,
		SmoothWindow:   5,
		PeakHeight:     1.2,
		MinStepPeriod:  0.3,
	}
}

// New returns the analyzer for m, or nil for MethodOff.
func New(m Method, opts Options) (Analyzer, error) {
	if opts.SamplingPeriod <= 0 {
		return nil, fmt.Errorf("gait: sampling period must be positive, got %v", opts.SamplingPeriod)
	}
	switch m {
	case MethodZUPT:
		return NewZUPT(opts), nil
	case MethodPeak:
		return NewPeak(opts), nil
	case MethodOff:
		return nil, nil
	}
	return nil, fmt.Errorf("gait: unknown method %q", m)
}

// ZUPTAnalyzer segments stance phases where the smoothed gyro magnitude
// falls under a threshold. Each complete stance is one foot contact.
type ZUPTAnalyzer struct {
	dt         float64
	threshold  float64
	gx, gy, gz *dsp.Trailing

	n        int
	stance   bool
	start    int // sample where the open stance began, -1 if none
	edges    int
	contacts []float64
}

// NewZUPT returns a ZUPT analyzer.
func NewZUPT(opts Options) *ZUPTAnalyzer {
	return &ZUPTAnalyzer{
		dt:        opts.SamplingPeriod,
		threshold: opts.GyroThreshold,
		gx:        dsp.NewTrailing(opts.SmoothWindow),
		gy:        dsp.NewTrailing(opts.SmoothWindow),
		gz:        dsp.NewTrailing(opts.SmoothWindow),
		start:     -1,
	}
}

func (z *ZUPTAnalyzer) Push(s position.CorrectedSample) {
	g := s.Frame.Gyro()
	x, y, w := z.gx.Push(g[0]), z.gy.Push(g[1]), z.gz.Push(g[2])
	stance := math.Sqrt(x*x+y*y+w*w) < z.threshold

	if z.n > 0 && stance != z.stance {
		z.edges++
		if stance {
			z.start = z.n
		} else if z.start >= 0 {
			// a stance already open at stream start has start < 0 and is dropped
			z.contacts = append(z.contacts, float64(z.n-z.start)*z.dt)
			z.start = -1
		}
	}
	z.stance = stance
	z.n++
}

// Result reports cadence over the whole stream and contact time
// statistics. A stance still open at stream end is ignored.
func (z *ZUPTAnalyzer) Result() (Result, error) {
	if z.edges == 0 || z.n < 2 {
		return Result{}, fmt.Errorf("%w: no stance boundaries in %d samples", ErrCannotSegment, z.n)
	}
	if len(z.contacts) == 0 {
		return Result{}, fmt.Errorf("%w: %d edges, no complete stance", ErrUnpairedGaitEvents, z.edges)
	}

	elapsed := float64(z.n-1) * z.dt
	mean, std := stat.MeanStdDev(z.contacts, nil)
	if len(z.contacts) < 2 {
		std = 0
	}
	return Result{
		Method:      MethodZUPT,
		Steps:       len(z.contacts),
		Cadence:     2 * float64(len(z.contacts)) / elapsed * 60,
		Elapsed:     elapsed,
		MeanContact: mean,
		StdContact:  std,
	}, nil
}

// PeakAnalyzer counts vertical acceleration peaks above a height with a
// minimum spacing.
type PeakAnalyzer struct {
	dt     float64
	mount  orientation.Mounting
	peaks  *dsp.PeakDetector
	count  int
	first  int
	last   int
	closed bool
}

// NewPeak returns a peak analyzer.
func NewPeak(opts Options) *PeakAnalyzer {
	distance := max(int(math.Round(opts.MinStepPeriod/opts.SamplingPeriod)), 1)
	return &PeakAnalyzer{
		dt:    opts.SamplingPeriod,
		mount: opts.Mounting,
		peaks: dsp.NewPeakDetector(dsp.PeakOptions{Height: opts.PeakHeight, Distance: distance}),
	}
}

func (p *PeakAnalyzer) Push(s position.CorrectedSample) {
	if p.closed {
		return
	}
	_, _, v := p.mount.Split(s.Frame.Accel())
	p.add(p.peaks.Push(v))
}

func (p *PeakAnalyzer) add(peaks []int) {
	for _, i := range peaks {
		if p.count == 0 {
			p.first = i
		}
		p.last = i
		p.count++
	}
}

// Result closes the detector; samples pushed afterwards are not counted.
func (p *PeakAnalyzer) Result() (Result, error) {
	if !p.closed {
		p.add(p.peaks.Flush())
		p.closed = true
	}
	if p.count < 2 {
		return Result{}, fmt.Errorf("%w: %d peaks", ErrInsufficientSteps, p.count)
	}

	span := float64(p.last-p.first) * p.dt
	return Result{
		Method:  MethodPeak,
		Steps:   p.count,
		Cadence: 2 * float64(p.count) / span * 60,
		Elapsed: span,
	}, nil
}
