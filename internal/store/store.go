// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store persists finished sessions, their zones and gait results
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

const timeLayout = time.RFC3339Nano

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it to the
// latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one connection keeps the per-connection pragmas in force
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveSession writes a session with its zones and gait result. Saving an
// id again replaces the earlier record.
func (s *Store) SaveSession(ctx context.Context, sum pipeline.Summary, zs []zones.Zone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM gait WHERE session_id = ?`,
		`DELETE FROM zones WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, sum.ID); err != nil {
			return fmt.Errorf("replace session %s: %w", sum.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, mode, started, ended,
			frames_accepted, frames_malformed, frames_out_of_bounds,
			samples, windows, skipped_windows,
			stair_zones, ramp_zones, suppressed_ramps,
			steps, position_error, gait_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, string(sum.Mode), sum.Started.UTC().Format(timeLayout), sum.Ended.UTC().Format(timeLayout),
		sum.Frames.Accepted, sum.Frames.Malformed, sum.Frames.OutOfBounds,
		sum.Samples, sum.Windows, sum.SkippedWindows,
		sum.StairZones, sum.RampZones, sum.SuppressedRamps,
		sum.Steps, sum.PositionError, sum.GaitError,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sum.ID, err)
	}

	for i, z := range zs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO zones (
				session_id, seq, kind, center_x, center_y, member_count,
				max_variance, mean_pitch, first_sample, last_sample, center_sample
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.ID, i, z.Kind.String(), z.Center.X, z.Center.Y, z.MemberCount,
			z.MaxVariance, z.MeanPitch, z.FirstSample, z.LastSample, z.CenterSample,
		)
		if err != nil {
			return fmt.Errorf("insert zone %d: %w", i, err)
		}
	}

	if g := sum.Gait; g != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gait (session_id, method, steps, cadence, elapsed, mean_contact, std_contact)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sum.ID, string(g.Method), g.Steps, g.Cadence, g.Elapsed, g.MeanContact, g.StdContact,
		)
		if err != nil {
			return fmt.Errorf("insert gait: %w", err)
		}
	}

	return tx.Commit()
}

const selectSummary = `
	SELECT s.id, s.mode, s.started, s.ended,
		s.frames_accepted, s.frames_malformed, s.frames_out_of_bounds,
		s.samples, s.windows, s.skipped_windows,
		s.stair_zones, s.ramp_zones, s.suppressed_ramps,
		s.steps, s.position_error, s.gait_error,
		g.method, g.steps, g.cadence, g.elapsed, g.mean_contact, g.std_contact
	FROM sessions s LEFT JOIN gait g ON g.session_id = s.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(r rowScanner) (pipeline.Summary, error) {
	var (
		sum            pipeline.Summary
		mode           string
		started, ended string

		gMethod                                    sql.NullString
		gSteps                                     sql.NullInt64
		gCadence, gElapsed, gMeanContact, gStdCont sql.NullFloat64
	)
	err := r.Scan(
		&sum.ID, &mode, &started, &ended,
		&sum.Frames.Accepted, &sum.Frames.Malformed, &sum.Frames.OutOfBounds,
		&sum.Samples, &sum.Windows, &sum.SkippedWindows,
		&sum.StairZones, &sum.RampZones, &sum.SuppressedRamps,
		&sum.Steps, &sum.PositionError, &sum.GaitError,
		&gMethod, &gSteps, &gCadence, &gElapsed, &gMeanContact, &gStdCont,
	)
	if err != nil {
		return pipeline.Summary{}, err
	}

	sum.Mode = position.Mode(mode)
	if sum.Started, err = time.Parse(timeLayout, started); err != nil {
		return pipeline.Summary{}, fmt.Errorf("session %s started: %w", sum.ID, err)
	}
	if sum.Ended, err = time.Parse(timeLayout, ended); err != nil {
		return pipeline.Summary{}, fmt.Errorf("session %s ended: %w", sum.ID, err)
	}

	if gMethod.Valid {
		sum.Gait = &gait.Result{
			Method:      gait.Method(gMethod.String),
			Steps:       int(gSteps.Int64),
			Cadence:     gCadence.Float64,
			Elapsed:     gElapsed.Float64,
			MeanContact: gMeanContact.Float64,
			StdContact:  gStdCont.Float64,
		}
	}
	return sum, nil
}

// Session loads one session summary.
func (s *Store) Session(ctx context.Context, id string) (pipeline.Summary, error) {
	row := s.db.QueryRowContext(ctx, selectSummary+` WHERE s.id = ?`, id)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return sum, nil
}

// Sessions lists up to limit sessions, newest first. limit <= 0 lists all.
func (s *Store) Sessions(ctx context.Context, limit int) ([]pipeline.Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectSummary+` ORDER BY s.started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Zones loads the zones of a session in emission order.
func (s *Store) Zones(ctx context.Context, id string) ([]zones.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, center_x, center_y, member_count, max_variance, mean_pitch,
			first_sample, last_sample, center_sample
		FROM zones WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load zones %s: %w", id, err)
	}
	defer rows.Close()

	var out []zones.Zone
	for rows.Next() {
		var z zones.Zone
		var kind string
		if err := rows.Scan(&kind, &z.Center.X, &z.Center.Y, &z.MemberCount, &z.MaxVariance, &z.MeanPitch,
			&z.FirstSample, &z.LastSample, &z.CenterSample); err != nil {
			return nil, fmt.Errorf("load zones %s: %w", id, err)
		}
		if z.Kind, err = zones.ParseKind(kind); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
