// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/render"
	"github.com/relabs-tech/mobility_mapper/internal/store"
	"github.com/relabs-tech/mobility_mapper/internal/transport"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// AnalyzeOutputs lists the files an offline run wrote. TracePNG is empty
// when there was nothing to plot.
type AnalyzeOutputs struct {
	ZonesCSV     string
	TraceCSV     string
	TracePNG     string
	TimelineHTML string
}

// RunAnalyze processes a recorded log file and writes the zone table, the
// corrected trace, the trace plot and the feature timeline to OUTPUT_DIR.
func RunAnalyze(path string) error {
	cfg := config.Get()

	frames, stats, err := transport.ReadLogFile(path)
	if err != nil {
		return err
	}
	log.Infof("analyze: read %d frames from %s (%d malformed lines skipped)", len(frames), path, stats.Malformed)

	res, err := pipeline.Analyze(frames, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	res.Summary.Frames.Malformed += stats.Malformed
	log.Infof("analyze: %s mode, %d samples, %d feature windows", res.Summary.Mode, res.Summary.Samples, res.Summary.Windows)

	out, err := writeAnalysis(cfg.OutputDir, outputBase(path), res, render.TimelineOptions{
		Title:          filepath.Base(path),
		VarThreshold:   cfg.VarThreshold,
		PitchThreshold: cfg.PitchThreshold,
	}, render.ZoneRadius{Scale: cfg.ZoneRadiusScale, Min: cfg.ZoneMinRadius})
	if err != nil {
		return err
	}

	if cfg.DatabasePath != "" {
		st, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveSession(context.Background(), res.Summary, res.Zones); err != nil {
			return err
		}
		log.Infof("analyze: session %s saved to %s", res.Summary.ID, cfg.DatabasePath)
	}

	printAnalysis(os.Stdout, res, out)
	return nil
}

// outputBase strips directory and extension: logs/walk.csv -> walk.
func outputBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeAnalysis(dir, base string, res *pipeline.Result, tl render.TimelineOptions, zr render.ZoneRadius) (AnalyzeOutputs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return AnalyzeOutputs{}, fmt.Errorf("output dir: %w", err)
	}
	out := AnalyzeOutputs{
		ZonesCSV:     filepath.Join(dir, base+"_zones.csv"),
		TraceCSV:     filepath.Join(dir, base+"_trace.csv"),
		TimelineHTML: filepath.Join(dir, base+"_features.html"),
	}

	if err := writeFile(out.ZonesCSV, func(w io.Writer) error {
		return zones.WriteCSV(w, res.Zones, res.Coord)
	}); err != nil {
		return out, err
	}
	if err := writeFile(out.TraceCSV, func(w io.Writer) error {
		return pipeline.WriteTraceCSV(w, res.Samples, res.Coord)
	}); err != nil {
		return out, err
	}
	if err := writeFile(out.TimelineHTML, func(w io.Writer) error {
		return render.WriteTimelineHTML(w, res.Features, res.Zones, tl)
	}); err != nil {
		return out, err
	}

	png := filepath.Join(dir, base+"_trace.png")
	switch err := render.SaveTracePNG(png, res.Samples, res.Zones, res.Coord, zr); {
	case errors.Is(err, render.ErrNoSamples):
		log.Warnf("analyze: no corrected samples, skipping %s", png)
	case err != nil:
		return out, fmt.Errorf("trace plot: %w", err)
	default:
		out.TracePNG = png
	}
	return out, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printAnalysis(w io.Writer, res *pipeline.Result, out AnalyzeOutputs) {
	sum := res.Summary
	xName, yName := res.Coord.ColumnNames()

	fmt.Fprintf(w, "session %s (%s)\n", sum.ID, sum.Mode)
	fmt.Fprintf(w, "  frames: %d accepted, %d malformed, %d out of bounds\n",
		sum.Frames.Accepted, sum.Frames.Malformed, sum.Frames.OutOfBounds)
	fmt.Fprintf(w, "  samples: %d  windows: %d\n", sum.Samples, sum.Windows)
	if sum.Steps > 0 {
		fmt.Fprintf(w, "  steps: %d\n", sum.Steps)
	}
	if sum.PositionError != "" {
		fmt.Fprintf(w, "  position: %s\n", sum.PositionError)
	}

	fmt.Fprintf(w, "  zones: %d stair/bump, %d ramp (%d ramp runs suppressed)\n",
		sum.StairZones, sum.RampZones, sum.SuppressedRamps)
	for _, z := range res.Zones {
		fmt.Fprintf(w, "    %-15s %s=%.6f %s=%.6f points=%d max_var=%.4f avg_pitch=%.4f\n",
			z.Kind.Label(), xName, z.Center.X, yName, z.Center.Y, z.MemberCount, z.MaxVariance, z.MeanPitch)
	}

	switch {
	case sum.Gait != nil:
		g := sum.Gait
		fmt.Fprintf(w, "  gait (%s): %d steps, cadence %.1f steps/min", g.Method, g.Steps, g.Cadence)
		if g.MeanContact > 0 {
			fmt.Fprintf(w, ", contact %.3f ± %.3f s", g.MeanContact, g.StdContact)
		}
		fmt.Fprintln(w)
	case sum.GaitError != "":
		fmt.Fprintf(w, "  gait: %s\n", sum.GaitError)
	}

	for _, p := range []string{out.ZonesCSV, out.TraceCSV, out.TracePNG, out.TimelineHTML} {
		if p != "" {
			fmt.Fprintf(w, "  wrote %s\n", p)
		}
	}
}
