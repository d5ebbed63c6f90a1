package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/mobility_mapper/internal/position"
)

// PanelWidth and PanelHeight match a 128x64 SSD1306.
const (
	PanelWidth  = 128
	PanelHeight = 64
	lineHeight  = 13
)

// Status is what the panel shows.
type Status struct {
	Mode    position.Mode
	Samples int
	Stairs  int
	Ramps   int

	Cadence     float64
	HaveCadence bool

	Coord        position.CoordFrame
	Position     position.Position
	HavePosition bool
}

// Lines formats the status as the four panel rows.
func (s Status) Lines() [4]string {
	var out [4]string
	mode := "----"
	if s.Mode != "" {
		mode = string(s.Mode)
	}
	out[0] = fmt.Sprintf("%-4s n=%d", mode, s.Samples)
	out[1] = fmt.Sprintf("Stair:%d Ramp:%d", s.Stairs, s.Ramps)
	if s.HaveCadence {
		out[2] = fmt.Sprintf("Cad: %.1f spm", s.Cadence)
	} else {
		out[2] = "Cad: --"
	}
	switch {
	case !s.HavePosition:
		out[3] = "Pos: waiting..."
	case s.Coord == position.Geographic:
		out[3] = fmt.Sprintf("%.5f,%.4f", s.Position.X, s.Position.Y)
	default:
		out[3] = fmt.Sprintf("X%6.1f Y%6.1f", s.Position.X, s.Position.Y)
	}
	return out
}

// DrawPanel blanks dst and writes the status rows in src.
func DrawPanel(dst draw.Image, src image.Image, s Status) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: basicfont.Face7x13,
	}
	for i, line := range s.Lines() {
		drawer.Dot = fixed.P(0, (i+1)*lineHeight+2)
		drawer.DrawString(line)
	}
}

// WritePanelPNG renders the panel white on black as PNG.
func WritePanelPNG(w io.Writer, s Status) error {
	img := image.NewGray(image.Rect(0, 0, PanelWidth, PanelHeight))
	DrawPanel(img, image.White, s)
	return png.Encode(w, img)
}
