// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package position

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
)

// AxisFilter is a constant-velocity Kalman filter over one coordinate
// with unit time step:
//
//	x = [p, v]   F = [[1 1] [0 1]]   H = [1 0]
//	Q = q * [[1/4 1/2] [1/2 1]]
type AxisFilter struct {
	f *mat.Dense
	h *mat.VecDense
	q *mat.SymDense
	r float64

	x *mat.VecDense
	p *mat.Dense

	initialized bool
}

// NewAxisFilter returns an uninitialised filter with measurement noise r
// and white-noise variance q.
func NewAxisFilter(r, q float64) *AxisFilter {
	return &AxisFilter{
		f: mat.NewDense(2, 2, []float64{1, 1, 0, 1}),
		h: mat.NewVecDense(2, []float64{1, 0}),
		q: mat.NewSymDense(2, []float64{0.25 * q, 0.5 * q, 0.5 * q, q}),
		r: r,
	}
}

// Init sets the state to [z, 0] with identity covariance.
func (a *AxisFilter) Init(z float64) error {
	if a.initialized {
		return ErrAlreadyInitialized
	}
	a.x = mat.NewVecDense(2, []float64{z, 0})
	a.p = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	a.initialized = true
	return nil
}

// Initialized reports whether Init has been called.
func (a *AxisFilter) Initialized() bool { return a.initialized }

// Step runs predict then update with measurement z and returns the new
// position estimate.
func (a *AxisFilter) Step(z float64) (float64, error) {
	if !a.initialized {
		return 0, ErrNotInitialized
	}

	// predict
	var x mat.VecDense
	x.MulVec(a.f, a.x)
	var fp, p mat.Dense
	fp.Mul(a.f, a.p)
	p.Mul(&fp, a.f.T())
	p.Add(&p, a.q)

	// update
	var ph mat.VecDense
	ph.MulVec(&p, a.h)
	s := mat.Dot(a.h, &ph) + a.r
	var k mat.VecDense
	k.ScaleVec(1/s, &ph)
	x.AddScaledVec(&x, z-mat.Dot(a.h, &x), &k)

	// Joseph form keeps P symmetric positive definite
	var ikh mat.Dense
	ikh.Outer(-1, &k, a.h)
	ikh.Set(0, 0, ikh.At(0, 0)+1)
	ikh.Set(1, 1, ikh.At(1, 1)+1)
	var tmp, np, krk mat.Dense
	tmp.Mul(&ikh, &p)
	np.Mul(&tmp, ikh.T())
	krk.Outer(a.r, &k, &k)
	np.Add(&np, &krk)

	a.x = &x
	a.p = &np
	return a.x.AtVec(0), nil
}

// Estimate returns the current position and velocity.
func (a *AxisFilter) Estimate() (p, v float64, err error) {
	if !a.initialized {
		return 0, 0, ErrNotInitialized
	}
	return a.x.AtVec(0), a.x.AtVec(1), nil
}

// Variance returns the position variance P[0][0].
func (a *AxisFilter) Variance() (float64, error) {
	if !a.initialized {
		return 0, ErrNotInitialized
	}
	return a.p.At(0, 0), nil
}

// KalmanCorrector smooths GPS with two independent axis filters
// (latitude, longitude). The first frame initialises both and is passed
// through unchanged.
type KalmanCorrector struct {
	lat, lon *AxisFilter
	n        int
}

// NewKalmanCorrector returns a corrector with the given R and q.
func NewKalmanCorrector(r, q float64) *KalmanCorrector {
	return &KalmanCorrector{lat: NewAxisFilter(r, q), lon: NewAxisFilter(r, q)}
}

func (k *KalmanCorrector) Coord() CoordFrame { return Geographic }

// Update filters one frame. Frames without a coordinate are refused; the
// validator drops them before they get here.
func (k *KalmanCorrector) Update(f imu.RawFrame) ([]CorrectedSample, error) {
	if !f.HasGPS() {
		return nil, fmt.Errorf("%w: kalman update without coordinate", gps.ErrOutOfBounds)
	}

	var pos Position
	if !k.lat.Initialized() {
		if err := k.lat.Init(f.Lat); err != nil {
			return nil, err
		}
		if err := k.lon.Init(f.Lon); err != nil {
			return nil, err
		}
		pos = Position{X: f.Lat, Y: f.Lon}
	} else {
		lat, err := k.lat.Step(f.Lat)
		if err != nil {
			return nil, err
		}
		lon, err := k.lon.Step(f.Lon)
		if err != nil {
			return nil, err
		}
		pos = Position{X: lat, Y: lon}
	}

	s := CorrectedSample{Index: k.n, Frame: f, Position: pos, Coord: Geographic}
	k.n++
	return []CorrectedSample{s}, nil
}

// Estimate returns the current filtered coordinate.
func (k *KalmanCorrector) Estimate() (Position, error) {
	lat, _, err := k.lat.Estimate()
	if err != nil {
		return Position{}, err
	}
	lon, _, err := k.lon.Estimate()
	if err != nil {
		return Position{}, err
	}
	return Position{X: lat, Y: lon}, nil
}

// Flush has nothing to return; every frame is emitted on Update.
func (k *KalmanCorrector) Flush() ([]CorrectedSample, error) { return nil, nil }
