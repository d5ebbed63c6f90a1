// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/mobility_mapper/internal/dsp"
	"github.com/relabs-tech/mobility_mapper/internal/orientation"
	"github.com/relabs-tech/mobility_mapper/internal/position"
)

// ErrEmptyWindow means smoothing left no samples in a window. The window
// is skipped.
var ErrEmptyWindow = errors.New("empty feature window")

// smoothKernel is the moving average applied to the acceleration axes
// inside each window to suppress single-sample spikes.
const smoothKernel = 2

// FeatureWindow holds the motion statistics of one window.
type FeatureWindow struct {
	Index       int `json:"index"`
	StartSample int `json:"start_sample"`
	EndSample   int `json:"end_sample"` // exclusive

	VerticalVariance float64           `json:"vertical_variance"`
	MeanAbsPitch     float64           `json:"mean_abs_pitch"` // radians
	Position         position.Position `json:"position"`
}

// ComputeWindow derives the statistics of one window of samples.
func ComputeWindow(samples []position.CorrectedSample, mount orientation.Mounting) (FeatureWindow, error) {
	n := len(samples)
	ax := make([]float64, n)
	ay := make([]float64, n)
	az := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range samples {
		ax[i], ay[i], az[i] = s.Frame.Ax, s.Frame.Ay, s.Frame.Az
		xs[i], ys[i] = s.Position.X, s.Position.Y
	}

	sx := dsp.Rolling(ax, smoothKernel)
	sy := dsp.Rolling(ay, smoothKernel)
	sz := dsp.Rolling(az, smoothKernel)
	if len(sz) == 0 {
		return FeatureWindow{}, fmt.Errorf("%w: %d samples, kernel %d", ErrEmptyWindow, n, smoothKernel)
	}

	var pitchSum float64
	vert := make([]float64, len(sz))
	for i := range sz {
		a := [3]float64{sx[i], sy[i], sz[i]}
		_, _, vert[i] = mount.Split(a)
		pitchSum += math.Abs(mount.PitchRad(a))
	}

	return FeatureWindow{
		StartSample:      samples[0].Index,
		EndSample:        samples[n-1].Index + 1,
		VerticalVariance: dsp.Variance(vert),
		MeanAbsPitch:     pitchSum / float64(len(sz)),
		Position:         position.Position{X: dsp.Median(xs), Y: dsp.Median(ys)},
	}, nil
}

// Extractor turns a sample stream into feature windows of Size samples
// every Step samples. It keeps at most Size+Step samples.
type Extractor struct {
	size, step int
	mount      orientation.Mounting

	ring    *Ring[position.CorrectedSample]
	seen    int
	emitted int
	skipped int
}

// NewExtractor returns an extractor for the given window geometry.
func NewExtractor(size, step int, mount orientation.Mounting) (*Extractor, error) {
	if size < 1 || step < 1 {
		return nil, fmt.Errorf("features: window size and step must be positive (size=%d step=%d)", size, step)
	}
	if err := mount.Validate(); err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	return &Extractor{
		size:  size,
		step:  step,
		mount: mount,
		ring:  NewRing[position.CorrectedSample](size + step),
	}, nil
}

// Push adds one sample. When it completes a window the window is returned
// with ok set. ErrEmptyWindow is returned for a window that had to be
// skipped; the stream continues.
func (e *Extractor) Push(s position.CorrectedSample) (fw FeatureWindow, ok bool, err error) {
	e.ring.Push(s)
	e.seen++
	if e.seen < e.size || (e.seen-e.size)%e.step != 0 {
		return FeatureWindow{}, false, nil
	}

	fw, err = ComputeWindow(e.ring.Last(e.size), e.mount)
	if err != nil {
		e.skipped++
		return FeatureWindow{}, false, err
	}
	fw.Index = e.emitted
	e.emitted++
	return fw, true, nil
}

// Windows returns the number of windows emitted.
func (e *Extractor) Windows() int { return e.emitted }

// Skipped returns the number of windows dropped as empty.
func (e *Extractor) Skipped() int { return e.skipped }

// Reset discards buffered samples and counters.
func (e *Extractor) Reset() {
	e.ring.Reset()
	e.seen, e.emitted, e.skipped = 0, 0, 0
}

// Extract runs an extractor over a complete sample slice. Empty windows
// are skipped.
func Extract(samples []position.CorrectedSample, size, step int, mount orientation.Mounting) ([]FeatureWindow, error) {
	e, err := NewExtractor(size, step, mount)
	if err != nil {
		return nil, err
	}
	var out []FeatureWindow
	for _, s := range samples {
		fw, ok, err := e.Push(s)
		if err != nil && !errors.Is(err, ErrEmptyWindow) {
			return nil, err
		}
		if ok {
			out = append(out, fw)
		}
	}
	return out, nil
}
