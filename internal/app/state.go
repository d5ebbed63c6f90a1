// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/render"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// Event types shared by the websocket stream and the MQTT topics.
const (
	EventSample  = "sample"
	EventFeature = "feature"
	EventZone    = "zone"
	EventGait    = "gait"
	EventSummary = "summary"
)

// Event is the envelope pushed to websocket clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	traceHistory   = 20000
	featureHistory = 2000
)

// LiveState keeps what the web server and status panel show about the
// running session. Sink callbacks come from the session goroutine; the
// getters are safe from any goroutine.
type LiveState struct {
	mu sync.RWMutex

	mode  position.Mode
	coord position.CoordFrame

	summary     pipeline.Summary
	haveSummary bool

	trace    *features.Ring[position.CorrectedSample]
	features *features.Ring[features.FeatureWindow]
	zones    []zones.Zone
	gait     *gait.Result
}

func NewLiveState() *LiveState {
	return &LiveState{
		trace:    features.NewRing[position.CorrectedSample](traceHistory),
		features: features.NewRing[features.FeatureWindow](featureHistory),
	}
}

// Start records the mode of a new session and clears the previous one.
func (s *LiveState) Start(mode position.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.coord = position.Geographic
	if mode == position.ModePDR {
		s.coord = position.Local
	}
	s.haveSummary = false
	s.trace.Reset()
	s.features.Reset()
	s.zones = nil
	s.gait = nil
}

func (s *LiveState) OnSample(cs position.CorrectedSample) {
	s.mu.Lock()
	s.trace.Push(cs)
	s.mu.Unlock()
}

func (s *LiveState) OnFeature(fw features.FeatureWindow) {
	s.mu.Lock()
	s.features.Push(fw)
	s.mu.Unlock()
}

func (s *LiveState) OnZone(z zones.Zone) {
	s.mu.Lock()
	s.zones = append(s.zones, z)
	s.mu.Unlock()
}

func (s *LiveState) OnSummary(sum pipeline.Summary) {
	s.SetSummary(sum)
}

// SetSummary stores a running or final session summary.
func (s *LiveState) SetSummary(sum pipeline.Summary) {
	s.mu.Lock()
	s.summary = sum
	s.haveSummary = true
	if sum.Gait != nil {
		g := *sum.Gait
		s.gait = &g
	}
	s.mu.Unlock()
}

// Summary returns the latest summary, if any.
func (s *LiveState) Summary() (pipeline.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.haveSummary
}

// Zones returns a copy of the zones emitted so far.
func (s *LiveState) Zones() []zones.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]zones.Zone{}, s.zones...)
}

// Features returns the most recent feature windows, oldest first.
func (s *LiveState) Features() []features.FeatureWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Last(s.features.Len())
}

// Trace returns the retained corrected samples and their coordinate frame.
func (s *LiveState) Trace() ([]position.CorrectedSample, position.CoordFrame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trace.Last(s.trace.Len()), s.coord
}

// Status condenses the state for the status panel.
func (s *LiveState) Status() render.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := render.Status{Mode: s.mode, Coord: s.coord}
	if s.haveSummary {
		st.Samples = s.summary.Samples
	}
	for _, z := range s.zones {
		if z.Kind == zones.Stair {
			st.Stairs++
		} else {
			st.Ramps++
		}
	}
	if s.gait != nil {
		st.Cadence, st.HaveCadence = s.gait.Cadence, true
	}
	if n := s.trace.Len(); n > 0 {
		st.Position, st.HavePosition = s.trace.At(n-1).Position, true
		st.Samples = max(st.Samples, s.trace.At(n-1).Index+1)
	}
	return st
}
