// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package zones

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/relabs-tech/mobility_mapper/internal/position"
)

// WriteCSV writes one row per zone:
//
//	type,lat,lon,points_count,max_variance,avg_pitch
//
// with pos_x,pos_y instead of lat,lon for local coordinates.
func WriteCSV(w io.Writer, zs []Zone, coord position.CoordFrame) error {
	xName, yName := coord.ColumnNames()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"type", xName, yName, "points_count", "max_variance", "avg_pitch"}); err != nil {
		return fmt.Errorf("write zone header: %w", err)
	}
	for _, z := range zs {
		rec := []string{
			z.Kind.Label(),
			strconv.FormatFloat(z.Center.X, 'f', -1, 64),
			strconv.FormatFloat(z.Center.Y, 'f', -1, 64),
			strconv.Itoa(z.MemberCount),
			strconv.FormatFloat(z.MaxVariance, 'f', -1, 64),
			strconv.FormatFloat(z.MeanPitch, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write zone row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
