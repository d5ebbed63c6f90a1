// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"sync"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// Sink receives everything a session produces, in stream order. Calls
// come from the goroutine driving the session and must not block for
// long.
type Sink interface {
	OnSample(s position.CorrectedSample)
	OnFeature(fw features.FeatureWindow)
	OnZone(z zones.Zone)
	OnSummary(sum Summary)
}

// NopSink ignores everything; embed it to implement part of Sink.
type NopSink struct{}

func (NopSink) OnSample(position.CorrectedSample) {}
func (NopSink) OnFeature(features.FeatureWindow)  {}
func (NopSink) OnZone(zones.Zone)                 {}
func (NopSink) OnSummary(Summary)                 {}

// Collector keeps every event in memory. Meant for offline runs and tests.
type Collector struct {
	mu       sync.Mutex
	Samples  []position.CorrectedSample
	Features []features.FeatureWindow
	Zones    []zones.Zone
	Summary  *Summary
}

func (c *Collector) OnSample(s position.CorrectedSample) {
	c.mu.Lock()
	c.Samples = append(c.Samples, s)
	c.mu.Unlock()
}

func (c *Collector) OnFeature(fw features.FeatureWindow) {
	c.mu.Lock()
	c.Features = append(c.Features, fw)
	c.mu.Unlock()
}

func (c *Collector) OnZone(z zones.Zone) {
	c.mu.Lock()
	c.Zones = append(c.Zones, z)
	c.mu.Unlock()
}

func (c *Collector) OnSummary(sum Summary) {
	c.mu.Lock()
	c.Summary = &sum
	c.mu.Unlock()
}

type multiSink []Sink

// MultiSink fans every event out to each sink in order.
func MultiSink(sinks ...Sink) Sink { return multiSink(sinks) }

func (m multiSink) OnSample(s position.CorrectedSample) {
	for _, k := range m {
		k.OnSample(s)
	}
}

func (m multiSink) OnFeature(fw features.FeatureWindow) {
	for _, k := range m {
		k.OnFeature(fw)
	}
}

func (m multiSink) OnZone(z zones.Zone) {
	for _, k := range m {
		k.OnZone(z)
	}
}

func (m multiSink) OnSummary(sum Summary) {
	for _, k := range m {
		k.OnSummary(sum)
	}
}
