// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolling(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, Rolling([]float64{1, 2, 3, 4}, 2))
	assert.Empty(t, Rolling([]float64{1}, 2))
	assert.Empty(t, Rolling(nil, 2))
}

func TestTrailingWarmsUp(t *testing.T) {
	tr := NewTrailing(3)
	var got []float64
	for _, v := range []float64{3, 6, 9, 12} {
		got = append(got, tr.Push(v))
	}
	assert.InDeltaSlice(t, []float64{3, 4.5, 6, 9}, got, 1e-12)
}

func TestSmoothShrinksAtEdges(t *testing.T) {
	got := Smooth([]float64{1, 2, 3, 4, 5}, 3)
	assert.InDeltaSlice(t, []float64{1.5, 2, 3, 4, 4.5}, got, 1e-12)
}

func TestCenteredLag(t *testing.T) {
	c := NewCentered(5)
	emitted := 0
	for i := 0; i < 10; i++ {
		if _, ok := c.Push(float64(i)); ok {
			emitted++
		}
	}
	assert.Equal(t, 8, emitted)
	assert.Len(t, c.Flush(), 2)
	assert.Empty(t, c.Flush())
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))

	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestVariance(t *testing.T) {
	assert.InDelta(t, 1.0, Variance([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 0.0, Variance([]float64{0.98, 0.98, 0.98, 0.98}))
	assert.Equal(t, 0.0, Variance([]float64{7}))
	assert.True(t, math.IsNaN(Variance(nil)))
}

func TestFindPeaksBasic(t *testing.T) {
	got := FindPeaks([]float64{0, 1, 0, 0, 2, 0}, PeakOptions{Height: math.Inf(-1), Distance: 1})
	assert.Equal(t, []int{1, 4}, got)
}

func TestFindPeaksProminence(t *testing.T) {
	x := []float64{0, 1, 0.8, 1.2, 0}
	opts := PeakOptions{Height: math.Inf(-1), Prominence: 0.5, Distance: 1, Window: 4}
	assert.Equal(t, []int{3}, FindPeaks(x, opts))

	opts.Prominence = 0
	assert.Equal(t, []int{1, 3}, FindPeaks(x, opts))
}

func TestFindPeaksHeight(t *testing.T) {
	x := []float64{0, 0.5, 0, 2, 0}
	assert.Equal(t, []int{3}, FindPeaks(x, PeakOptions{Height: 1, Distance: 1}))
}

func TestFindPeaksDistanceKeepsHigher(t *testing.T) {
	x := []float64{0, 0, 1, 0.95, 1, 0, 0}
	assert.Equal(t, []int{2}, FindPeaks(x, PeakOptions{Height: math.Inf(-1), Distance: 3}))

	// the later, taller peak wins when it falls inside the distance
	x = []float64{0, 1, 0, 2, 0, 0}
	assert.Equal(t, []int{3}, FindPeaks(x, PeakOptions{Height: math.Inf(-1), Distance: 3}))
}

func TestFindPeaksDroppedPeakDoesNotSuppress(t *testing.T) {
	x := make([]float64, 60)
	x[5], x[20], x[35] = 1.0, 1.5, 2.0
	opts := PeakOptions{Height: 0.5, Distance: 20}

	// 20 loses to 35, so nothing kept is within reach of 5
	assert.Equal(t, []int{5, 35}, FindPeaks(x, opts))

	d := NewPeakDetector(opts)
	var got []int
	for i, v := range x {
		if i == 30 {
			assert.Equal(t, 5, d.Horizon(), "5 waits on 20, which waits on 35")
		}
		got = append(got, d.Push(v)...)
	}
	got = append(got, d.Flush()...)
	assert.Equal(t, []int{5, 35}, got)
}

func TestFindPeaksLowerPeakBetweenTallerOnes(t *testing.T) {
	x := make([]float64, 60)
	x[5], x[20], x[40] = 2, 1, 2
	assert.Equal(t, []int{5, 40}, FindPeaks(x, PeakOptions{Height: 0.5, Distance: 20}))
}

func TestFindPeaksPlateau(t *testing.T) {
	x := []float64{0, 1, 1, 1, 0}
	assert.Equal(t, []int{1}, FindPeaks(x, PeakOptions{Height: math.Inf(-1), Distance: 1, Window: 4}))
}

func TestPeakDetectorStreamsSameAsBatch(t *testing.T) {
	x := make([]float64, 500)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * float64(i) / 50)
	}
	opts := PeakOptions{Height: math.Inf(-1), Prominence: 0.15, Distance: 20}

	want := []int{50, 100, 150, 200, 250, 300, 350, 400, 450}
	require.Equal(t, want, FindPeaks(x, opts))

	d := NewPeakDetector(opts)
	var got []int
	for i, v := range x {
		for _, p := range d.Push(v) {
			assert.Equal(t, d.Delay(), i-p, "peak %d reported late", p)
			got = append(got, p)
		}
	}
	got = append(got, d.Flush()...)
	assert.Equal(t, want, got)
}
