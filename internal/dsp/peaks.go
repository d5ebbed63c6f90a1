// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dsp

import "math"

// PeakOptions configures peak detection.
type PeakOptions struct {
	// Height is the minimum peak value. Use math.Inf(-1) to disable.
	Height float64
	// Prominence is the minimum height of a peak above the higher of its
	// two surrounding bases. 0 disables the check.
	Prominence float64
	// Distance is the minimum number of samples between accepted peaks.
	// Within that distance the higher peak wins; a peak removed this way
	// does not suppress its own neighbours.
	Distance int
	// Window is how many samples either side of a candidate are searched
	// for its bases. 0 means Distance. This bounds both memory and the
	// detection delay.
	Window int
}

// PeakDetector finds local maxima in a stream. A sample qualifies as a
// candidate once the look-ahead window after it has been seen. Candidates
// closer than Distance are then settled tallest first: a candidate is
// dropped only when a kept, taller candidate lies within Distance of it.
// An isolated peak is reported Delay samples after it occurred; a peak
// with taller neighbours waits until they are settled.
type PeakDetector struct {
	opts PeakOptions
	half int

	buf   []float64 // values from absolute index base
	base  int
	n     int // samples pushed
	next  int // next sample to qualify
	cands []candidate
	last  int // last reported peak, -1 if none
}

type candidate struct {
	at    int
	v     float64
	state int8
}

const (
	undecided int8 = iota
	kept
	dropped
)

// outranks reports whether a takes precedence over b. Equal heights go to
// the earlier sample.
func (a candidate) outranks(b candidate) bool {
	return a.v > b.v || (a.v == b.v && a.at < b.at)
}

// NewPeakDetector returns a detector for opts.
func NewPeakDetector(opts PeakOptions) *PeakDetector {
	if opts.Distance < 1 {
		opts.Distance = 1
	}
	half := opts.Window
	if half < opts.Distance {
		half = opts.Distance
	}
	return &PeakDetector{opts: opts, half: half, last: -1}
}

// Delay is the number of samples an isolated peak is reported after it
// occurred.
func (d *PeakDetector) Delay() int { return d.half + d.opts.Distance - 1 }

// Horizon is the lowest index a peak not yet reported can have.
func (d *PeakDetector) Horizon() int {
	if len(d.cands) > 0 {
		return d.cands[0].at
	}
	return d.next
}

// Push adds one sample and returns the indices (0-based, in push order)
// of any peaks decided by it.
func (d *PeakDetector) Push(v float64) []int {
	d.buf = append(d.buf, v)
	d.n++

	for d.next+d.half < d.n {
		d.qualify(d.next)
		d.next++
	}
	peaks := d.settle(false)
	d.trim()
	return peaks
}

// Flush decides the candidates still inside the look-ahead window, using
// whatever samples exist after them.
func (d *PeakDetector) Flush() []int {
	for d.next < d.n {
		d.qualify(d.next)
		d.next++
	}
	return d.settle(true)
}

func (d *PeakDetector) at(i int) float64 { return d.buf[i-d.base] }

// qualify records c as a candidate when it is a local maximum that passes
// the height and prominence checks.
func (d *PeakDetector) qualify(c int) {
	hi := min(c+d.half, d.n-1)
	lo := max(c-d.half, d.base)
	if c-1 < lo || c+1 > hi {
		return
	}

	x := d.at(c)
	if !(d.at(c-1) < x) {
		return
	}

	// plateau: the first sample after the flat top must drop
	j := c + 1
	for j <= hi && d.at(j) == x {
		j++
	}
	if j > hi || d.at(j) > x {
		return
	}

	if x < d.opts.Height {
		return
	}

	if d.opts.Prominence > 0 {
		leftMin := x
		for i := c - 1; i >= lo; i-- {
			if d.at(i) > x {
				break
			}
			leftMin = math.Min(leftMin, d.at(i))
		}
		rightMin := x
		for i := c + 1; i <= hi; i++ {
			if d.at(i) > x {
				break
			}
			rightMin = math.Min(rightMin, d.at(i))
		}
		if x-math.Max(leftMin, rightMin) < d.opts.Prominence {
			return
		}
	}

	d.cands = append(d.cands, candidate{at: c, v: x})
}

// settle decides every candidate whose outranking neighbours are decided,
// then reports the decided prefix in order. With final set, candidates no
// longer wait for samples that will never arrive.
func (d *PeakDetector) settle(final bool) []int {
	for changed := true; changed; {
		changed = false
		for i := range d.cands {
			if d.cands[i].state != undecided {
				continue
			}
			if st := d.decide(i, final); st != undecided {
				d.cands[i].state = st
				changed = true
			}
		}
	}

	var peaks []int
	k := 0
	for ; k < len(d.cands) && d.cands[k].state != undecided; k++ {
		if d.cands[k].state == kept {
			d.last = d.cands[k].at
			peaks = append(peaks, d.last)
		}
	}
	d.cands = append(d.cands[:0], d.cands[k:]...)
	return peaks
}

func (d *PeakDetector) decide(i int, final bool) int8 {
	c := d.cands[i]
	dist := d.opts.Distance
	// every sample that could compete with c must have been qualified
	if !final && d.next < c.at+dist {
		return undecided
	}
	// a reported peak this close always outranked c
	if d.last >= 0 && c.at-d.last < dist {
		return dropped
	}

	wait := false
	for j, o := range d.cands {
		if j == i || o.at <= c.at-dist || o.at >= c.at+dist || !o.outranks(c) {
			continue
		}
		switch o.state {
		case kept:
			return dropped
		case undecided:
			wait = true
		}
	}
	if wait {
		return undecided
	}
	return kept
}

func (d *PeakDetector) trim() {
	keep := d.next - d.half
	if drop := keep - d.base; drop > 0 {
		copy(d.buf, d.buf[drop:])
		d.buf = d.buf[:len(d.buf)-drop]
		d.base = keep
	}
}

// FindPeaks runs a detector over a complete series.
func FindPeaks(x []float64, opts PeakOptions) []int {
	d := NewPeakDetector(opts)
	var peaks []int
	for _, v := range x {
		peaks = append(peaks, d.Push(v)...)
	}
	return append(peaks, d.Flush()...)
}
