package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/render"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

func TestLiveStateStatus(t *testing.T) {
	s := NewLiveState()
	assert.False(t, s.Status().HavePosition)
	_, ok := s.Summary()
	assert.False(t, ok)

	s.Start(position.ModePDR)
	s.OnSample(position.CorrectedSample{Index: 0, Position: position.Position{X: 1, Y: 2}, Coord: position.Local})
	s.OnSample(position.CorrectedSample{Index: 1, Position: position.Position{X: 1.5, Y: 2.5}, Coord: position.Local})
	s.OnFeature(features.FeatureWindow{Index: 0, VerticalVariance: 0.1})
	s.OnZone(zones.Zone{Kind: zones.Stair})
	s.OnZone(zones.Zone{Kind: zones.Ramp})
	s.OnZone(zones.Zone{Kind: zones.Stair})
	s.SetSummary(pipeline.Summary{ID: "a", Samples: 1, Gait: &gait.Result{Cadence: 110}})

	assert.Equal(t, render.Status{
		Mode:         position.ModePDR,
		Samples:      2,
		Stairs:       2,
		Ramps:        1,
		Cadence:      110,
		HaveCadence:  true,
		Coord:        position.Local,
		Position:     position.Position{X: 1.5, Y: 2.5},
		HavePosition: true,
	}, s.Status())

	samples, coord := s.Trace()
	assert.Len(t, samples, 2)
	assert.Equal(t, position.Local, coord)
	assert.Len(t, s.Zones(), 3)
	assert.Len(t, s.Features(), 1)
	sum, ok := s.Summary()
	assert.True(t, ok)
	assert.Equal(t, "a", sum.ID)

	s.Start(position.ModeGPS)
	assert.Equal(t, render.Status{Mode: position.ModeGPS, Coord: position.Geographic}, s.Status())
	assert.Empty(t, s.Zones())
	_, ok = s.Summary()
	assert.False(t, ok)
}

func TestLiveStateZonesAreCopied(t *testing.T) {
	s := NewLiveState()
	s.OnZone(zones.Zone{Kind: zones.Stair, MemberCount: 3})

	zs := s.Zones()
	zs[0].MemberCount = 99
	assert.Equal(t, 3, s.Zones()[0].MemberCount)
}
