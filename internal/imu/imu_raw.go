// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldCount is the number of values in one wire frame.
const FieldCount = 11

// Header lists the wire order of a frame.
var Header = []string{"lat", "lon", "ax", "ay", "az", "gx", "gy", "gz", "mx", "my", "mz"}

// ErrMalformedFrame is returned when a line does not hold exactly
// FieldCount numeric values.
var ErrMalformedFrame = errors.New("malformed frame")

// RawFrame represents a single wearable sample: GPS position plus
// accelerometer, gyroscope and magnetometer readings.
type RawFrame struct {
	Lat float64 `json:"lat"` // decimal degrees, 0 when no fix
	Lon float64 `json:"lon"`

	Ax float64 `json:"ax"` // accel, g
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro, deg/s
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	Mx float64 `json:"mx"` // magnetometer, µT
	My float64 `json:"my"`
	Mz float64 `json:"mz"`
}

// FrameSource is anything that can provide raw frames over time:
// a serial line, a socket, a log file or the IMU itself.
type FrameSource interface {
	Next() (RawFrame, error)
}

// HasGPS reports whether the frame carries a usable-looking coordinate
// (non-zero, not missing). Range checks live in the gps package.
func (f RawFrame) HasGPS() bool {
	if math.IsNaN(f.Lat) || math.IsNaN(f.Lon) {
		return false
	}
	return f.Lat != 0 && f.Lon != 0
}

// Accel returns the accelerometer vector as [x, y, z].
func (f RawFrame) Accel() [3]float64 { return [3]float64{f.Ax, f.Ay, f.Az} }

// Gyro returns the gyroscope vector as [x, y, z].
func (f RawFrame) Gyro() [3]float64 { return [3]float64{f.Gx, f.Gy, f.Gz} }

// Values returns the frame in wire order.
func (f RawFrame) Values() []float64 {
	return []float64{f.Lat, f.Lon, f.Ax, f.Ay, f.Az, f.Gx, f.Gy, f.Gz, f.Mx, f.My, f.Mz}
}

// Record formats the frame as string fields in wire order.
func (f RawFrame) Record() []string {
	vals := f.Values()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// FrameFromValues builds a frame from values in wire order.
func FrameFromValues(vals []float64) (RawFrame, error) {
	if len(vals) != FieldCount {
		return RawFrame{}, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedFrame, len(vals), FieldCount)
	}
	return RawFrame{
		Lat: vals[0], Lon: vals[1],
		Ax: vals[2], Ay: vals[3], Az: vals[4],
		Gx: vals[5], Gy: vals[6], Gz: vals[7],
		Mx: vals[8], My: vals[9], Mz: vals[10],
	}, nil
}

// ParseFrame parses one wire line. Fields are separated by commas or
// whitespace. An empty lat/lon field is read as a missing coordinate
// (NaN); every other field must be a finite number.
func ParseFrame(line string) (RawFrame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return RawFrame{}, fmt.Errorf("%w: empty line", ErrMalformedFrame)
	}

	var fields []string
	if strings.Contains(line, ",") {
		fields = strings.Split(line, ",")
	} else {
		fields = strings.Fields(line)
	}
	if len(fields) != FieldCount {
		return RawFrame{}, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedFrame, len(fields), FieldCount)
	}

	vals := make([]float64, FieldCount)
	for i, raw := range fields {
		raw = strings.TrimSpace(raw)
		if raw == "" && i < 2 {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return RawFrame{}, fmt.Errorf("%w: field %s: %q", ErrMalformedFrame, Header[i], raw)
		}
		if i >= 2 && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return RawFrame{}, fmt.Errorf("%w: field %s is not finite", ErrMalformedFrame, Header[i])
		}
		vals[i] = v
	}
	return FrameFromValues(vals)
}
