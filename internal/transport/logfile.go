// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/mobility_mapper/internal/imu"
)

// LogStats counts what ReadLog skipped.
type LogStats struct {
	Lines     int
	Header    bool
	Malformed int
}

// NormalizeLogLine turns a recorded line into a wire line: a trailing
// timestamp column (the 12th field) is dropped.
func NormalizeLogLine(line string) string {
	if !strings.Contains(line, ",") {
		return line
	}
	fields := strings.Split(line, ",")
	if len(fields) == imu.FieldCount+1 {
		return strings.Join(fields[:imu.FieldCount], ",")
	}
	return line
}

func isHeader(line string) bool {
	first, _, _ := strings.Cut(line, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return false
	}
	_, err := strconv.ParseFloat(first, 64)
	return err != nil
}

// ReadLog reads a recorded session: an optional header row, then one
// frame per line with an optional timestamp column. Malformed lines are
// skipped and counted.
func ReadLog(r io.Reader) ([]imu.RawFrame, LogStats, error) {
	var (
		frames []imu.RawFrame
		stats  LogStats
	)
	lr := NewReader(r)
	for {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			return frames, stats, nil
		}
		if err != nil {
			return frames, stats, fmt.Errorf("read log line %d: %w", stats.Lines+1, err)
		}
		stats.Lines++

		if stats.Lines == 1 && isHeader(line) {
			stats.Header = true
			continue
		}

		f, err := imu.ParseFrame(NormalizeLogLine(line))
		if err != nil {
			stats.Malformed++
			continue
		}
		frames = append(frames, f)
	}
}

// ReadLogFile opens path and reads it with ReadLog.
func ReadLogFile(path string) ([]imu.RawFrame, LogStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LogStats{}, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	return ReadLog(f)
}
