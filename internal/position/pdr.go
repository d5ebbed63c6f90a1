// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package position

import (
	"fmt"
	"math"

	"github.com/relabs-tech/mobility_mapper/internal/dsp"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/orientation"
)

// PDRCorrector estimates a local 2-D path from step events.
//
// Vertical acceleration is smoothed and searched for peaks; each peak is a
// step. Between steps s[i-1] and s[i] the yaw rate is integrated into the
// heading and the position advances one step length along it. Samples in
// [s[i-1], s[i]) are interpolated from anchor i-1 to anchor i. Samples
// before the first step sit at the origin and samples from the last step
// on keep the last anchor.
//
// Samples are held until the step closing their interval is confirmed,
// which happens a bounded number of samples after the step itself.
type PDRCorrector struct {
	dt         float64
	stepLength float64
	maxPending int
	mount      orientation.Mounting

	smooth *dsp.Centered
	peaks  *dsp.PeakDetector
	delay  int

	pending []CorrectedSample
	n       int

	// cumulative yaw (radians) before each recent sample, from index cumBase
	cum     []float64
	cumBase int
	yaw     float64

	heading  float64
	anchor   Position
	lastStep int
	lastCum  float64
	steps    int
	flushed  bool
}

// NewPDRCorrector validates opts and returns a corrector at the origin.
func NewPDRCorrector(opts Options) (*PDRCorrector, error) {
	if opts.SamplingPeriod <= 0 {
		return nil, fmt.Errorf("pdr: sampling period must be positive, got %v", opts.SamplingPeriod)
	}
	if opts.StepLength <= 0 {
		return nil, fmt.Errorf("pdr: step length must be positive, got %v", opts.StepLength)
	}
	if err := opts.Mounting.Validate(); err != nil {
		return nil, fmt.Errorf("pdr: %w", err)
	}

	distance := max(int(math.Round(opts.MinStepPeriod/opts.SamplingPeriod)), 1)
	smooth := max(opts.SmoothWindow, 1)
	peaks := dsp.NewPeakDetector(dsp.PeakOptions{
		Height:     math.Inf(-1),
		Prominence: opts.PeakProminence,
		Distance:   distance,
		// bases are searched one stride (two steps) either side
		Window: 2 * distance,
	})

	return &PDRCorrector{
		dt:         opts.SamplingPeriod,
		stepLength: opts.StepLength,
		maxPending: opts.MaxPending,
		mount:      opts.Mounting,
		smooth:     dsp.NewCentered(smooth),
		peaks:      peaks,
		delay:      smooth/2 + peaks.Delay(),
		heading:    opts.InitialHeading,
		lastStep:   -1,
	}, nil
}

func (p *PDRCorrector) Coord() CoordFrame { return Local }

// Steps returns the number of step events confirmed so far.
func (p *PDRCorrector) Steps() int { return p.steps }

// Heading returns the current heading in radians.
func (p *PDRCorrector) Heading() float64 { return p.heading }

// Update feeds one frame and returns the samples whose positions are now
// known.
func (p *PDRCorrector) Update(f imu.RawFrame) ([]CorrectedSample, error) {
	if p.flushed {
		return nil, fmt.Errorf("pdr: update after flush")
	}

	p.cum = append(p.cum, p.yaw)
	p.yaw += p.mount.YawRate(f.Gyro()) * math.Pi / 180 * p.dt

	p.pending = append(p.pending, CorrectedSample{Index: p.n, Frame: f, Coord: Local})
	p.n++

	_, _, vertical := p.mount.Split(f.Accel())
	var out []CorrectedSample
	if v, ok := p.smooth.Push(vertical); ok {
		for _, s := range p.peaks.Push(v) {
			out = append(out, p.step(s)...)
		}
	}

	if p.maxPending > 0 && len(p.pending) > p.maxPending {
		drop := len(p.pending) - p.maxPending
		out = append(out, p.emitAt(drop, p.anchor)...)
	}
	p.trimCum()
	return out, nil
}

// Flush confirms the remaining steps and returns every held sample. It
// reports ErrInsufficientSteps when fewer than two steps were found; the
// samples are still returned, at the origin.
func (p *PDRCorrector) Flush() ([]CorrectedSample, error) {
	if p.flushed {
		return nil, nil
	}
	p.flushed = true

	var out []CorrectedSample
	for _, v := range p.smooth.Flush() {
		for _, s := range p.peaks.Push(v) {
			out = append(out, p.step(s)...)
		}
	}
	for _, s := range p.peaks.Flush() {
		out = append(out, p.step(s)...)
	}
	out = append(out, p.emitAt(len(p.pending), p.anchor)...)

	if p.steps < 2 {
		return out, fmt.Errorf("%w: found %d", ErrInsufficientSteps, p.steps)
	}
	return out, nil
}

// step handles a confirmed step at sample index s.
func (p *PDRCorrector) step(s int) []CorrectedSample {
	p.steps++
	yawAt := p.cumAt(s)
	if p.lastStep < 0 {
		p.lastStep = s
		p.lastCum = yawAt
		return p.emitBefore(s, func(int) Position { return p.anchor })
	}

	from := p.anchor
	p.heading += yawAt - p.lastCum
	to := Position{
		X: from.X + p.stepLength*math.Cos(p.heading),
		Y: from.Y + p.stepLength*math.Sin(p.heading),
	}

	start, span := p.lastStep, float64(s-p.lastStep)
	out := p.emitBefore(s, func(i int) Position {
		r := float64(i-start) / span
		return Position{X: from.X + (to.X-from.X)*r, Y: from.Y + (to.Y-from.Y)*r}
	})

	p.anchor = to
	p.lastStep = s
	p.lastCum = yawAt
	return out
}

func (p *PDRCorrector) emitBefore(s int, at func(int) Position) []CorrectedSample {
	k := 0
	for k < len(p.pending) && p.pending[k].Index < s {
		p.pending[k].Position = at(p.pending[k].Index)
		k++
	}
	return p.take(k)
}

func (p *PDRCorrector) emitAt(k int, pos Position) []CorrectedSample {
	for i := 0; i < k; i++ {
		p.pending[i].Position = pos
	}
	return p.take(k)
}

func (p *PDRCorrector) take(k int) []CorrectedSample {
	if k == 0 {
		return nil
	}
	out := make([]CorrectedSample, k)
	copy(out, p.pending[:k])
	p.pending = append(p.pending[:0], p.pending[k:]...)
	return out
}

func (p *PDRCorrector) cumAt(i int) float64 {
	if i-p.cumBase < 0 || i-p.cumBase >= len(p.cum) {
		return p.yaw
	}
	return p.cum[i-p.cumBase]
}

// trimCum keeps only the yaw history a not yet confirmed step can refer to.
func (p *PDRCorrector) trimCum() {
	keep := min(p.n-p.delay-1, p.peaks.Horizon())
	if drop := keep - p.cumBase; drop > 0 {
		copy(p.cum, p.cum[drop:])
		p.cum = p.cum[:len(p.cum)-drop]
		p.cumBase = keep
	}
}
