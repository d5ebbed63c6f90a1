// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// Result is everything an offline run produced.
type Result struct {
	Summary  Summary
	Coord    position.CoordFrame
	Samples  []position.CorrectedSample
	Features []features.FeatureWindow
	Zones    []zones.Zone
}

// Analyze runs a session over recorded frames. An auto mode is resolved
// from the frames before the first one is processed. Frames the validator
// drops are counted in the summary.
func Analyze(frames []imu.RawFrame, opts Options) (*Result, error) {
	opts.Mode = position.ResolveMode(opts.Mode, frames)

	c := &Collector{}
	s, err := NewSession(opts, c)
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		err := s.Process(f)
		if err == nil || errors.Is(err, imu.ErrMalformedFrame) || errors.Is(err, gps.ErrOutOfBounds) {
			continue
		}
		return nil, err
	}
	sum, err := s.Close()
	if err != nil {
		return nil, err
	}

	zs := append([]zones.Zone(nil), c.Zones...)
	sort.SliceStable(zs, func(i, j int) bool { return zs[i].Kind < zs[j].Kind })

	coord := position.Geographic
	if s.Mode() == position.ModePDR {
		coord = position.Local
	}
	return &Result{
		Summary:  sum,
		Coord:    coord,
		Samples:  c.Samples,
		Features: c.Features,
		Zones:    zs,
	}, nil
}

// WriteTraceCSV writes the corrected trace: the sample index, the
// corrected position and the raw frame.
func WriteTraceCSV(w io.Writer, samples []position.CorrectedSample, coord position.CoordFrame) error {
	xName, yName := "lat_filtered", "lon_filtered"
	if coord == position.Local {
		xName, yName = coord.ColumnNames()
	}

	cw := csv.NewWriter(w)
	header := append([]string{"index", xName, yName}, imu.Header...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write trace header: %w", err)
	}
	for _, s := range samples {
		rec := append([]string{
			strconv.Itoa(s.Index),
			strconv.FormatFloat(s.Position.X, 'f', -1, 64),
			strconv.FormatFloat(s.Position.Y, 'f', -1, 64),
		}, s.Frame.Record()...)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write trace row %d: %w", s.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
