// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package zones

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/position"
)

// Kind classifies a zone.
type Kind int

const (
	Stair Kind = iota
	Ramp
)

func (k Kind) String() string {
	switch k {
	case Stair:
		return "stair"
	case Ramp:
		return "ramp"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Label is the name used in exported tables.
func (k Kind) Label() string {
	if k == Ramp {
		return "Ramp Zone"
	}
	return "Stair/Bump Zone"
}

// ParseKind accepts the String form of a kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "stair":
		return Stair, nil
	case "ramp":
		return Ramp, nil
	}
	return 0, fmt.Errorf("unknown zone kind %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Zone is one classified terrain event.
type Zone struct {
	Kind        Kind              `json:"kind"`
	Center      position.Position `json:"center"`
	MemberCount int               `json:"member_count"`
	MaxVariance float64           `json:"max_variance"`
	MeanPitch   float64           `json:"mean_pitch"`

	// sample span covered by the member windows
	FirstSample  int `json:"first_sample"`
	LastSample   int `json:"last_sample"`
	CenterSample int `json:"center_sample"`
}

// Radius is the display radius: max(minRadius, members * scale).
func (z Zone) Radius(scale, minRadius float64) float64 {
	return math.Max(minRadius, float64(z.MemberCount)*scale)
}

// Params tunes the classifier.
type Params struct {
	VarThreshold   float64
	PitchThreshold float64
	MinPoints      int
}

// DefaultParams returns the chest-mount thresholds.
func DefaultParams() Params {
	return Params{VarThreshold: 0.03, PitchThreshold: 0.2, MinPoints: 3}
}

// Validate rejects negative thresholds and empty clusters.
func (p Params) Validate() error {
	if p.VarThreshold < 0 || p.PitchThreshold < 0 {
		return fmt.Errorf("zones: thresholds must not be negative (var=%v pitch=%v)", p.VarThreshold, p.PitchThreshold)
	}
	if p.MinPoints < 1 {
		return fmt.Errorf("zones: minimum cluster size must be at least 1, got %d", p.MinPoints)
	}
	return nil
}

// run accumulates one maximal run of tagged windows without keeping the
// windows themselves.
type run struct {
	id     int
	tag    bool
	active bool

	count       int
	sumX, sumY  float64
	sumVar      float64
	maxVar      float64
	sumPitch    float64
	sumMid      float64
	first, last int
}

func (r *run) add(fw features.FeatureWindow) {
	if r.count == 0 {
		r.first = fw.StartSample
		r.maxVar = fw.VerticalVariance
	}
	r.count++
	r.sumX += fw.Position.X
	r.sumY += fw.Position.Y
	r.sumVar += fw.VerticalVariance
	r.maxVar = math.Max(r.maxVar, fw.VerticalVariance)
	r.sumPitch += fw.MeanAbsPitch
	r.sumMid += float64(fw.StartSample+fw.EndSample-1) / 2
	r.last = fw.EndSample - 1
}

func (r *run) zone(kind Kind) Zone {
	n := float64(r.count)
	return Zone{
		Kind:         kind,
		Center:       position.Position{X: r.sumX / n, Y: r.sumY / n},
		MemberCount:  r.count,
		MaxVariance:  r.maxVar,
		MeanPitch:    r.sumPitch / n,
		FirstSample:  r.first,
		LastSample:   r.last,
		CenterSample: int(math.Round(r.sumMid / n)),
	}
}

// scanner run-length encodes one boolean tag series in a single pass.
// A new run id starts whenever the tag differs from the previous window.
type scanner struct {
	cur run
}

// push adds a tagged window and returns the run it closed, if any.
func (s *scanner) push(tag bool, fw features.FeatureWindow) (run, bool) {
	var closed run
	ok := false
	if !s.cur.active {
		s.cur = run{id: 0, tag: tag, active: true}
	} else if s.cur.tag != tag {
		closed, ok = s.cur, true
		s.cur = run{id: closed.id + 1, tag: tag, active: true}
	}
	s.cur.add(fw)
	return closed, ok
}

func (s *scanner) flush() (run, bool) {
	if !s.cur.active {
		return run{}, false
	}
	closed := s.cur
	s.cur = run{id: closed.id + 1}
	return closed, true
}

// Classifier tags feature windows as stair (variance above threshold)
// and ramp (pitch above threshold) and turns long enough runs into zones.
//
// A ramp run whose mean variance is also above the variance threshold is
// dropped: stairs take priority. Stair and ramp runs are scanned
// independently so their boundaries need not line up, which makes the
// rule an approximation rather than an exact set difference.
type Classifier struct {
	p     Params
	stair scanner
	ramp  scanner

	windows    int
	suppressed int
}

// NewClassifier returns a classifier for p.
func NewClassifier(p Params) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{p: p}, nil
}

// Add feeds one window and returns any zones whose runs it closed.
func (c *Classifier) Add(fw features.FeatureWindow) []Zone {
	c.windows++
	var out []Zone
	if r, ok := c.stair.push(fw.VerticalVariance > c.p.VarThreshold, fw); ok {
		out = c.emit(out, Stair, r)
	}
	if r, ok := c.ramp.push(fw.MeanAbsPitch > c.p.PitchThreshold, fw); ok {
		out = c.emit(out, Ramp, r)
	}
	return out
}

// Flush closes the open runs at stream end.
func (c *Classifier) Flush() []Zone {
	var out []Zone
	if r, ok := c.stair.flush(); ok {
		out = c.emit(out, Stair, r)
	}
	if r, ok := c.ramp.flush(); ok {
		out = c.emit(out, Ramp, r)
	}
	return out
}

// Suppressed returns how many ramp runs were dropped in favour of stairs.
func (c *Classifier) Suppressed() int { return c.suppressed }

func (c *Classifier) emit(out []Zone, kind Kind, r run) []Zone {
	if !r.tag || r.count < c.p.MinPoints {
		return out
	}
	if kind == Ramp && r.sumVar/float64(r.count) > c.p.VarThreshold {
		c.suppressed++
		return out
	}
	return append(out, r.zone(kind))
}

// Classify runs a classifier over a complete window sequence. Stair zones
// are listed before ramp zones, each in stream order.
func Classify(windows []features.FeatureWindow, p Params) ([]Zone, error) {
	c, err := NewClassifier(p)
	if err != nil {
		return nil, err
	}
	var out []Zone
	for _, fw := range windows {
		out = append(out, c.Add(fw)...)
	}
	out = append(out, c.Flush()...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}
