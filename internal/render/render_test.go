package render

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

func square() []position.CorrectedSample {
	var out []position.CorrectedSample
	for i := 0; i < 40; i++ {
		p := position.Position{X: float64(min(i, 20)), Y: float64(max(i-20, 0))}
		out = append(out, position.CorrectedSample{Index: i, Position: p})
	}
	return out
}

var sampleZones = []zones.Zone{
	{Kind: zones.Stair, Center: position.Position{X: 5, Y: 0}, MemberCount: 4, MaxVariance: 0.2, CenterSample: 5},
	{Kind: zones.Ramp, Center: position.Position{X: 20, Y: 10}, MemberCount: 3, MaxVariance: 0.01, CenterSample: 30},
}

func TestPlanarSwapsGeographic(t *testing.T) {
	p := position.Position{X: 37.5, Y: 127}
	xy := planar(p, position.Geographic)
	assert.Equal(t, 127.0, xy.X)
	assert.Equal(t, 37.5, xy.Y)

	xy = planar(p, position.Local)
	assert.Equal(t, 37.5, xy.X)
}

func TestTracePlot(t *testing.T) {
	p, err := TracePlot(square(), sampleZones, position.Local, ZoneRadius{})
	require.NoError(t, err)
	assert.Equal(t, "X (m)", p.X.Label.Text)
	// no circles: the axes cover only the path
	assert.Equal(t, 20.0, p.X.Max)
	assert.Equal(t, 0.0, p.Y.Min)

	_, err = TracePlot(nil, nil, position.Local, ZoneRadius{})
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestTracePlotZoneRadius(t *testing.T) {
	// stair: 4 members * 3 = 12 m around (5, 0); ramp: 3 * 3 = 9 m around (20, 10)
	p, err := TracePlot(square(), sampleZones, position.Local, ZoneRadius{Scale: 3, Min: 5})
	require.NoError(t, err)
	assert.InDelta(t, 29, p.X.Max, 1e-9)
	assert.InDelta(t, -7, p.X.Min, 1e-9)
	assert.InDelta(t, -12, p.Y.Min, 1e-9)

	// the minimum wins for small zones
	p, err = TracePlot(square(), sampleZones, position.Local, ZoneRadius{Scale: 0.1, Min: 5})
	require.NoError(t, err)
	assert.InDelta(t, 25, p.X.Max, 1e-9)
	assert.InDelta(t, -5, p.Y.Min, 1e-9)
}

func TestZoneOutlineGeographic(t *testing.T) {
	pts := zoneOutline(position.Position{X: 60, Y: 10}, metresPerDegree/1000, position.Geographic)
	require.Len(t, pts, 48)
	// one millidegree of latitude, two of longitude at 60 degrees north
	assert.InDelta(t, 10.002, pts[0].X, 1e-9)
	assert.InDelta(t, 60, pts[0].Y, 1e-9)
	assert.InDelta(t, 10, pts[12].X, 1e-9)
	assert.InDelta(t, 60.001, pts[12].Y, 1e-9)
}

func TestWriteTracePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTracePNG(&buf, square(), sampleZones, position.Local, ZoneRadius{Scale: 1, Min: 5}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestSaveTracePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, SaveTracePNG(path, square(), nil, position.Geographic, ZoneRadius{Scale: 1, Min: 5}))
	assert.FileExists(t, path)
}

func TestWriteTimelineHTML(t *testing.T) {
	fws := []features.FeatureWindow{
		{Index: 0, StartSample: 0, EndSample: 20, VerticalVariance: 0.01, MeanAbsPitch: 0.02},
		{Index: 1, StartSample: 10, EndSample: 30, VerticalVariance: 0.09, MeanAbsPitch: 0.05},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTimelineHTML(&buf, fws, sampleZones, TimelineOptions{Title: "walk-42", VarThreshold: 0.03, PitchThreshold: 0.2}))

	html := buf.String()
	assert.True(t, strings.Contains(html, "walk-42"))
	assert.Contains(t, html, "vertical variance")
	assert.Contains(t, html, "Ramp Zone")
}

func TestStatusLines(t *testing.T) {
	s := Status{Mode: position.ModePDR, Samples: 4500, Stairs: 2, Ramps: 1}
	lines := s.Lines()
	assert.Equal(t, "pdr  n=4500", lines[0])
	assert.Equal(t, "Stair:2 Ramp:1", lines[1])
	assert.Equal(t, "Cad: --", lines[2])
	assert.Equal(t, "Pos: waiting...", lines[3])

	s.Cadence, s.HaveCadence = 106.66, true
	s.Position, s.HavePosition = position.Position{X: 12.5, Y: -3}, true
	lines = s.Lines()
	assert.Equal(t, "Cad: 106.7 spm", lines[2])
	assert.Equal(t, "X  12.5 Y  -3.0", lines[3])

	s.Coord = position.Geographic
	s.Position = position.Position{X: 37.566123, Y: 126.978}
	assert.Equal(t, "37.56612,126.9780", s.Lines()[3])

	for _, l := range s.Lines() {
		assert.LessOrEqual(t, len(l)*7, PanelWidth, "%q too wide", l)
	}
}

func TestDrawPanelInk(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, PanelWidth, PanelHeight))
	DrawPanel(img, image.White, Status{Samples: 1})

	lit := 0
	for _, v := range img.Pix {
		if v > 0 {
			lit++
		}
	}
	assert.Greater(t, lit, 0)

	var buf bytes.Buffer
	require.NoError(t, WritePanelPNG(&buf, Status{}))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, PanelWidth, cfg.Width)
}
