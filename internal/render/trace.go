// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render draws session results: the corrected trace with its
// zones, the feature timeline and the small status panel.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// ErrNoSamples is returned when there is no trace to draw.
var ErrNoSamples = errors.New("no samples to plot")

var (
	pathColor  = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 255}
	startColor = color.RGBA{G: 0x99, A: 255}
	endColor   = color.RGBA{A: 255}
	stairColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}
	rampColor  = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255}
)

// metresPerDegree is the length of one degree of latitude.
const metresPerDegree = 111320.0

// ZoneRadius sizes zone circles: max(Min, members*Scale) metres.
type ZoneRadius struct {
	Scale float64
	Min   float64
}

// Of returns the radius of z in metres.
func (r ZoneRadius) Of(z zones.Zone) float64 { return z.Radius(r.Scale, r.Min) }

// planar maps a position to plot axes: pos_x/pos_y as is, lat/lon as
// (lon, lat) so north is up.
func planar(p position.Position, coord position.CoordFrame) plotter.XY {
	if coord == position.Geographic {
		return plotter.XY{X: p.Y, Y: p.X}
	}
	return plotter.XY{X: p.X, Y: p.Y}
}

// zoneOutline approximates a circle of radius metres around center in
// plot coordinates. Geographic radii are converted to degrees at the
// center's latitude.
func zoneOutline(center position.Position, radius float64, coord position.CoordFrame) plotter.XYs {
	const segments = 48
	c := planar(center, coord)
	rx, ry := radius, radius
	if coord == position.Geographic {
		ry = radius / metresPerDegree
		rx = ry / math.Max(math.Cos(center.X*math.Pi/180), 1e-6)
	}
	pts := make(plotter.XYs, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / segments
		pts[i] = plotter.XY{X: c.X + rx*math.Cos(a), Y: c.Y + ry*math.Sin(a)}
	}
	return pts
}

// TracePlot builds the path plot with start, end and zone markers. Each
// zone is also drawn as a translucent circle sized by zr.
func TracePlot(samples []position.CorrectedSample, zs []zones.Zone, coord position.CoordFrame, zr ZoneRadius) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	if coord == position.Geographic {
		p.Title.Text = "GPS trace (Kalman filtered)"
		p.X.Label.Text = "Longitude"
		p.Y.Label.Text = "Latitude"
	} else {
		p.Title.Text = fmt.Sprintf("Indoor trace (%d samples)", len(samples))
		p.X.Label.Text = "X (m)"
		p.Y.Label.Text = "Y (m)"
	}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = planar(s.Position, coord)
	}
	path, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("path line: %w", err)
	}
	path.Color = pathColor
	path.Width = vg.Points(1.5)
	p.Add(path)
	p.Legend.Add("path", path)

	if err := addMarkers(p, "start", pts[:1], draw.TriangleGlyph{}, startColor, 6); err != nil {
		return nil, err
	}
	if err := addMarkers(p, "end", pts[len(pts)-1:], draw.BoxGlyph{}, endColor, 5); err != nil {
		return nil, err
	}

	var stairs, ramps plotter.XYs
	for _, z := range zs {
		if r := zr.Of(z); r > 0 {
			if err := addZoneCircle(p, z, r, coord); err != nil {
				return nil, err
			}
		}
		xy := planar(z.Center, coord)
		if z.Kind == zones.Stair {
			stairs = append(stairs, xy)
		} else {
			ramps = append(ramps, xy)
		}
	}
	if len(stairs) > 0 {
		if err := addMarkers(p, zones.Stair.Label(), stairs, draw.CircleGlyph{}, stairColor, 6); err != nil {
			return nil, err
		}
	}
	if len(ramps) > 0 {
		if err := addMarkers(p, zones.Ramp.Label(), ramps, draw.PyramidGlyph{}, rampColor, 6); err != nil {
			return nil, err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func addZoneCircle(p *plot.Plot, z zones.Zone, radius float64, coord position.CoordFrame) error {
	c := rampColor
	if z.Kind == zones.Stair {
		c = stairColor
	}
	poly, err := plotter.NewPolygon(zoneOutline(z.Center, radius, coord))
	if err != nil {
		return fmt.Errorf("zone circle: %w", err)
	}
	poly.Color = color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0x4c}
	poly.LineStyle.Color = c
	poly.LineStyle.Width = vg.Points(1)
	p.Add(poly)
	return nil
}

func addMarkers(p *plot.Plot, name string, pts plotter.XYs, shape draw.GlyphDrawer, c color.Color, radius float64) error {
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("%s markers: %w", name, err)
	}
	sc.GlyphStyle.Shape = shape
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(radius)
	p.Add(sc)
	p.Legend.Add(name, sc)
	return nil
}

// WriteTracePNG renders the trace plot as a 10x8 inch PNG.
func WriteTracePNG(w io.Writer, samples []position.CorrectedSample, zs []zones.Zone, coord position.CoordFrame, zr ZoneRadius) error {
	p, err := TracePlot(samples, zs, coord, zr)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveTracePNG writes the trace plot to path.
func SaveTracePNG(path string, samples []position.CorrectedSample, zs []zones.Zone, coord position.CoordFrame, zr ZoneRadius) error {
	p, err := TracePlot(samples, zs, coord, zr)
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 8*vg.Inch, path)
}
