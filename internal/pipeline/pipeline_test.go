// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

func testOptions(mode position.Mode) Options {
	return Options{
		Mode:       mode,
		Position:   position.DefaultOptions(),
		Bounds:     gps.DefaultBounds(),
		WindowSize: 10,
		StepSize:   5,
		Zones:      zones.Params{VarThreshold: 0.05, PitchThreshold: 0.2, MinPoints: 3},
		Gait:       gait.MethodOff,
	}
}

// bumpyWalk is flat for samples 0-99 and spikes to 2.5 g every 10 samples
// from 100 to 199, moving slowly north-east through Seoul.
func bumpyWalk() []imu.RawFrame {
	frames := make([]imu.RawFrame, 200)
	for i := range frames {
		az := 1 + 0.001*float64(i%3)
		if i >= 100 && (i-100)%10 == 0 {
			az = 2.5
		}
		frames[i] = imu.RawFrame{
			Lat: 37.5665 + float64(i)*1e-5,
			Lon: 126.978 + float64(i)*1e-5,
			Ax:  0.01,
			Az:  az,
		}
	}
	return frames
}

func TestStairsFoundOnlyInBumpySection(t *testing.T) {
	res, err := Analyze(bumpyWalk(), testOptions(position.ModeGPS))
	require.NoError(t, err)

	assert.Equal(t, position.Geographic, res.Coord)
	assert.Equal(t, 200, res.Summary.Frames.Accepted)
	assert.Equal(t, 200, res.Summary.Samples)
	assert.Len(t, res.Features, 39)

	require.NotEmpty(t, res.Zones)
	stairs := 0
	for _, z := range res.Zones {
		assert.GreaterOrEqual(t, z.CenterSample, 100, "zone centred in the flat section: %+v", z)
		assert.LessOrEqual(t, z.CenterSample, 199)
		assert.True(t, gps.DefaultBounds().Contains(z.Center.X, z.Center.Y))
		if z.Kind == zones.Stair {
			stairs++
		}
	}
	assert.GreaterOrEqual(t, stairs, 1)
	assert.Equal(t, 147, res.Zones[0].CenterSample)
	assert.Equal(t, 20, res.Zones[0].MemberCount)
}

func TestAutoModeFallsBackToPDR(t *testing.T) {
	frames := make([]imu.RawFrame, 300)
	for i := range frames {
		frames[i] = imu.RawFrame{Az: 1 + 0.4*math.Cos(2*math.Pi*float64(i)/30)}
	}

	res, err := Analyze(frames, testOptions(position.ModeAuto))
	require.NoError(t, err)

	assert.Equal(t, position.ModePDR, res.Summary.Mode)
	assert.Equal(t, position.Local, res.Coord)
	assert.Equal(t, 9, res.Summary.Steps)
	assert.Empty(t, res.Summary.PositionError)
	require.Len(t, res.Samples, 300)
	assert.InDelta(t, 8*0.65, res.Samples[299].Position.X, 1e-9)
}

func TestPDRWithoutStepsDegrades(t *testing.T) {
	frames := make([]imu.RawFrame, 50)
	for i := range frames {
		frames[i] = imu.RawFrame{Az: 1}
	}
	res, err := Analyze(frames, testOptions(position.ModePDR))
	require.NoError(t, err)
	assert.Contains(t, res.Summary.PositionError, position.ErrInsufficientSteps.Error())
	assert.Len(t, res.Samples, 50)
}

func TestSessionDropsBadFrames(t *testing.T) {
	c := &Collector{}
	s, err := NewSession(testOptions(position.ModeGPS), c)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())

	assert.NoError(t, s.ProcessLine("37.5,127.0,0,0,1,0,0,0,0,0,0"))
	assert.ErrorIs(t, s.ProcessLine("37.5,127.0,0,0,1"), imu.ErrMalformedFrame)
	assert.ErrorIs(t, s.ProcessLine("0,0,0,0,1,0,0,0,0,0,0"), gps.ErrOutOfBounds)
	assert.ErrorIs(t, s.Process(imu.RawFrame{Lat: 48.85, Lon: 2.35, Az: 1}), gps.ErrOutOfBounds)
	assert.NoError(t, s.ProcessLine("37.5001,127.0001,0,0,1,0,0,0,0,0,0"))

	sum, err := s.Close()
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Frames.Accepted)
	assert.Equal(t, 1, sum.Frames.Malformed)
	assert.Equal(t, 2, sum.Frames.OutOfBounds)
	assert.Len(t, c.Samples, 2)
	require.NotNil(t, c.Summary)
	assert.Equal(t, sum.ID, c.Summary.ID)

	_, err = s.Close()
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.ProcessLine("37.5,127.0,0,0,1,0,0,0,0,0,0"), ErrSessionClosed)
}

func TestSessionRejectsAutoMode(t *testing.T) {
	_, err := NewSession(testOptions(position.ModeAuto))
	assert.Error(t, err)
}

func TestGaitReportedInSummary(t *testing.T) {
	opts := testOptions(position.ModeGPS)
	opts.Gait = gait.MethodZUPT
	opts.GaitOptions = gait.DefaultOptions()

	res, err := Analyze(bumpyWalk(), opts)
	require.NoError(t, err)
	// the gyro never moves, so there is no stance boundary
	assert.Nil(t, res.Summary.Gait)
	assert.Contains(t, res.Summary.GaitError, gait.ErrCannotSegment.Error())
}

type countingSink struct {
	NopSink
	zones int
}

func (c *countingSink) OnZone(zones.Zone) { c.zones++ }

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &Collector{}, &countingSink{}
	s, err := NewSession(testOptions(position.ModeGPS), a, b)
	require.NoError(t, err)
	for _, f := range bumpyWalk() {
		require.NoError(t, s.Process(f))
	}
	_, err = s.Close()
	require.NoError(t, err)

	assert.Equal(t, len(a.Zones), b.zones)
	assert.Len(t, a.Features, 39)
}

func TestWriteTraceCSV(t *testing.T) {
	samples := []position.CorrectedSample{
		{Index: 0, Frame: imu.RawFrame{Lat: 37.5, Lon: 127, Az: 1}, Position: position.Position{X: 37.5, Y: 127}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTraceCSV(&buf, samples, position.Geographic))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "index,lat_filtered,lon_filtered,lat,lon,ax,ay,az,gx,gy,gz,mx,my,mz", lines[0])
	assert.Equal(t, "0,37.5,127,37.5,127,0,0,1,0,0,0,0,0,0", lines[1])

	buf.Reset()
	require.NoError(t, WriteTraceCSV(&buf, nil, position.Local))
	assert.True(t, strings.HasPrefix(buf.String(), "index,pos_x,pos_y,"))
}
