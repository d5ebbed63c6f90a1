// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import "gonum.org/v1/gonum/floats"

// Rolling returns the trailing moving average of x with window k. Only
// full windows are produced, so the result has len(x)-k+1 values (none
// when len(x) < k).
func Rolling(x []float64, k int) []float64 {
	if k < 1 || len(x) < k {
		return nil
	}
	out := make([]float64, 0, len(x)-k+1)
	sum := floats.Sum(x[:k])
	out = append(out, sum/float64(k))
	for i := k; i < len(x); i++ {
		sum += x[i] - x[i-k]
		out = append(out, sum/float64(k))
	}
	return out
}

// Trailing is a streaming trailing moving average. Until k samples have
// been seen it averages whatever is available.
type Trailing struct {
	k    int
	ring []float64
	pos  int
	n    int
	sum  float64
}

// NewTrailing returns a trailing average over k samples (k < 1 is treated as 1).
func NewTrailing(k int) *Trailing {
	if k < 1 {
		k = 1
	}
	return &Trailing{k: k, ring: make([]float64, k)}
}

// Push adds v and returns the current average.
func (t *Trailing) Push(v float64) float64 {
	if t.n == t.k {
		t.sum -= t.ring[t.pos]
	} else {
		t.n++
	}
	t.ring[t.pos] = v
	t.sum += v
	t.pos = (t.pos + 1) % t.k
	return t.sum / float64(t.n)
}

// Centered is a streaming centered moving average over 2*half+1 samples.
// Output lags input by half samples; at the stream edges the window
// shrinks to the samples that exist, so every input yields one output.
type Centered struct {
	half int
	buf  []float64 // values from absolute index base
	base int
	n    int // samples pushed
	out  int // samples emitted
}

// NewCentered returns a centered average with the given odd window length.
// Even lengths are rounded up.
func NewCentered(window int) *Centered {
	if window < 1 {
		window = 1
	}
	return &Centered{half: window / 2}
}

// Push adds v and returns the smoothed value for the sample half
// positions back, once it is available.
func (c *Centered) Push(v float64) (float64, bool) {
	c.buf = append(c.buf, v)
	c.n++
	if c.out+c.half >= c.n {
		return 0, false
	}
	val := c.emit(c.out)
	c.out++
	c.trim()
	return val, true
}

// Flush returns the smoothed values still held back at stream end.
func (c *Centered) Flush() []float64 {
	var rest []float64
	for c.out < c.n {
		rest = append(rest, c.emit(c.out))
		c.out++
	}
	c.buf = c.buf[:0]
	c.base = c.n
	return rest
}

func (c *Centered) emit(i int) float64 {
	lo := max(i-c.half, 0)
	hi := min(i+c.half, c.n-1)
	return floats.Sum(c.buf[lo-c.base:hi-c.base+1]) / float64(hi-lo+1)
}

func (c *Centered) trim() {
	keep := c.out - c.half
	if drop := keep - c.base; drop > 0 {
		copy(c.buf, c.buf[drop:])
		c.buf = c.buf[:len(c.buf)-drop]
		c.base = keep
	}
}

// Smooth runs a centered average over a whole series.
func Smooth(x []float64, window int) []float64 {
	c := NewCentered(window)
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if s, ok := c.Push(v); ok {
			out = append(out, s)
		}
	}
	return append(out, c.Flush()...)
}
