// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline wires the validator, position corrector, feature
// extractor, zone classifier and gait analyzer into one session.
//
//	line -> validate -> position -> features -> zones
//	                            \-> gait
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/validate"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("session closed")

// Options configures a session.
type Options struct {
	Mode     position.Mode // gps or pdr
	Position position.Options
	Bounds   gps.Bounds

	WindowSize int
	StepSize   int
	Zones      zones.Params

	Gait        gait.Method
	GaitOptions gait.Options
}

// OptionsFromConfig maps the config file onto session options. The mode
// is copied as is and may still be auto.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:        cfg.PositionMode,
		Position:    cfg.PositionOptions(),
		Bounds:      cfg.Bounds,
		WindowSize:  cfg.WindowSize,
		StepSize:    cfg.StepSize,
		Zones:       cfg.ZoneParams(),
		Gait:        cfg.GaitMode,
		GaitOptions: cfg.GaitOptions(),
	}
}

// Summary describes a finished (or running) session.
type Summary struct {
	ID      string        `json:"id"`
	Mode    position.Mode `json:"mode"`
	Started time.Time     `json:"started"`
	Ended   time.Time     `json:"ended"`

	Frames          validate.Stats `json:"frames"`
	Samples         int            `json:"samples"`
	Windows         int            `json:"windows"`
	SkippedWindows  int            `json:"skipped_windows"`
	StairZones      int            `json:"stair_zones"`
	RampZones       int            `json:"ramp_zones"`
	SuppressedRamps int            `json:"suppressed_ramps"`

	Steps         int          `json:"steps,omitempty"` // PDR only
	PositionError string       `json:"position_error,omitempty"`
	Gait          *gait.Result `json:"gait,omitempty"`
	GaitError     string       `json:"gait_error,omitempty"`
}

// Session is one pass over a frame stream. It is not safe for concurrent
// use; feed it from a single goroutine.
type Session struct {
	id      uuid.UUID
	mode    position.Mode
	started time.Time

	validator  *validate.Validator
	corrector  position.Corrector
	extractor  *features.Extractor
	classifier *zones.Classifier
	gait       gait.Analyzer
	sink       Sink

	samples    int
	stairZones int
	rampZones  int
	closed     bool
	summary    Summary
}

// NewSession builds a session. The mode must be gps or pdr.
func NewSession(opts Options, sinks ...Sink) (*Session, error) {
	corrector, err := position.New(opts.Mode, opts.Position)
	if err != nil {
		return nil, err
	}
	extractor, err := features.NewExtractor(opts.WindowSize, opts.StepSize, opts.Position.Mounting)
	if err != nil {
		return nil, err
	}
	classifier, err := zones.NewClassifier(opts.Zones)
	if err != nil {
		return nil, err
	}
	method := opts.Gait
	if method == "" {
		method = gait.MethodOff
	}
	analyzer, err := gait.New(method, opts.GaitOptions)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:         uuid.New(),
		mode:       opts.Mode,
		started:    time.Now(),
		validator:  validate.New(opts.Bounds, opts.Mode == position.ModeGPS),
		corrector:  corrector,
		extractor:  extractor,
		classifier: classifier,
		gait:       analyzer,
		sink:       MultiSink(sinks...),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id.String() }

// Mode returns the active position strategy.
func (s *Session) Mode() position.Mode { return s.mode }

// ProcessLine validates and processes one wire line. Validation errors
// wrap imu.ErrMalformedFrame or gps.ErrOutOfBounds; the frame is dropped
// and the session stays usable.
func (s *Session) ProcessLine(line string) error {
	if s.closed {
		return ErrSessionClosed
	}
	f, err := s.validator.ParseLine(line)
	if err != nil {
		return err
	}
	return s.process(f)
}

// Parse parses a wire line without processing it, so callers can record
// the raw frame first. Malformed lines are counted.
func (s *Session) Parse(line string) (imu.RawFrame, error) {
	if s.closed {
		return imu.RawFrame{}, ErrSessionClosed
	}
	return s.validator.Parse(line)
}

// Process validates and processes an already parsed frame.
func (s *Session) Process(f imu.RawFrame) error {
	if s.closed {
		return ErrSessionClosed
	}
	f, err := s.validator.Check(f)
	if err != nil {
		return err
	}
	return s.process(f)
}

func (s *Session) process(f imu.RawFrame) error {
	out, err := s.corrector.Update(f)
	if err != nil {
		return fmt.Errorf("position update: %w", err)
	}
	s.handle(out)
	return nil
}

func (s *Session) handle(samples []position.CorrectedSample) {
	for _, cs := range samples {
		s.samples++
		s.sink.OnSample(cs)
		if s.gait != nil {
			s.gait.Push(cs)
		}

		fw, ok, err := s.extractor.Push(cs)
		if err != nil || !ok {
			// empty windows are counted by the extractor
			continue
		}
		s.sink.OnFeature(fw)
		s.emitZones(s.classifier.Add(fw))
	}
}

func (s *Session) emitZones(zs []zones.Zone) {
	for _, z := range zs {
		if z.Kind == zones.Stair {
			s.stairZones++
		} else {
			s.rampZones++
		}
		s.sink.OnZone(z)
	}
}

// Stats returns the validator counters so far.
func (s *Session) Stats() validate.Stats { return s.validator.Stats() }

// Snapshot returns the summary of the session so far.
func (s *Session) Snapshot() Summary {
	if s.closed {
		return s.summary
	}
	return Summary{
		ID:              s.ID(),
		Mode:            s.mode,
		Started:         s.started,
		Frames:          s.validator.Stats(),
		Samples:         s.samples,
		Windows:         s.extractor.Windows(),
		SkippedWindows:  s.extractor.Skipped(),
		StairZones:      s.stairZones,
		RampZones:       s.rampZones,
		SuppressedRamps: s.classifier.Suppressed(),
	}
}

// Close flushes held samples and open zone runs, computes the gait result
// and publishes the summary. Degraded results (too few steps, no gait
// segmentation) are reported in the summary, not as errors.
func (s *Session) Close() (Summary, error) {
	if s.closed {
		return s.summary, ErrSessionClosed
	}

	rest, perr := s.corrector.Flush()
	s.handle(rest)
	s.emitZones(s.classifier.Flush())

	sum := s.Snapshot()
	sum.Ended = time.Now()
	if perr != nil {
		sum.PositionError = perr.Error()
	}
	if p, ok := s.corrector.(*position.PDRCorrector); ok {
		sum.Steps = p.Steps()
	}
	if s.gait != nil {
		res, err := s.gait.Result()
		if err != nil {
			sum.GaitError = err.Error()
		} else {
			sum.Gait = &res
		}
	}

	s.closed = true
	s.summary = sum
	s.sink.OnSummary(sum)
	return sum, nil
}
