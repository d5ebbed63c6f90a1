// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relabs-tech/mobility_mapper/internal/imu"
)

// TimestampLayout is the timestamp column format of recorded logs.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Recorder appends raw frames to a CSV log with a header row and a
// trailing timestamp column. Rows are flushed as they are written so a
// crash loses at most the current row.
type Recorder struct {
	mu sync.Mutex
	w  *csv.Writer
	c  io.Closer
}

// NewRecorder writes the header to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	r := &Recorder{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		r.c = c
	}
	header := append(append([]string{}, imu.Header...), "timestamp")
	if err := r.w.Write(header); err != nil {
		return nil, fmt.Errorf("write log header: %w", err)
	}
	r.w.Flush()
	return r, r.w.Error()
}

// CreateLogFile creates sensor_log_<time>.csv in dir and returns a
// recorder writing to it.
func CreateLogFile(dir string, now time.Time) (*Recorder, string, error) {
	path := filepath.Join(dir, "sensor_log_"+now.Format("2006-01-02_15-04-05")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create log file: %w", err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	return r, path, nil
}

// Write appends one frame stamped with t.
func (r *Recorder) Write(f imu.RawFrame, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Write(append(f.Record(), t.Format(TimestampLayout))); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying file, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	if r.c != nil {
		return r.c.Close()
	}
	return r.w.Error()
}
