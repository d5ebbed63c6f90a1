// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
	"strings"
)

// Pose is the canonical representation of orientation for your app.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Axis names one sensor axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis accepts "x", "y" or "z" (any case).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q (want x, y or z)", s)
}

// Mounting maps body directions onto sensor axes. It depends on where the
// device is worn: a chest mount has the sensor X axis pointing forward and
// Z pointing up.
type Mounting struct {
	Forward  Axis
	Lateral  Axis
	Vertical Axis
}

// ChestMount is the default mounting: X forward, Y lateral, Z vertical.
func ChestMount() Mounting {
	return Mounting{Forward: AxisX, Lateral: AxisY, Vertical: AxisZ}
}

// Validate checks that the three directions use distinct axes.
func (m Mounting) Validate() error {
	if m.Forward == m.Lateral || m.Forward == m.Vertical || m.Lateral == m.Vertical {
		return fmt.Errorf("mounting axes must be distinct (forward=%s lateral=%s vertical=%s)", m.Forward, m.Lateral, m.Vertical)
	}
	for _, a := range []Axis{m.Forward, m.Lateral, m.Vertical} {
		if a < AxisX || a > AxisZ {
			return fmt.Errorf("invalid mounting axis %s", a)
		}
	}
	return nil
}

// Split returns the (forward, lateral, vertical) components of v.
func (m Mounting) Split(v [3]float64) (forward, lateral, vertical float64) {
	return v[m.Forward], v[m.Lateral], v[m.Vertical]
}

// PitchRad returns the forward tilt in radians from an accelerometer vector:
//
//	pitch = atan2(forward, sqrt(lateral² + vertical²))
func (m Mounting) PitchRad(accel [3]float64) float64 {
	f, l, v := m.Split(accel)
	return math.Atan2(f, math.Sqrt(l*l+v*v))
}

// YawRate returns the rotation rate about the vertical axis (deg/s).
func (m Mounting) YawRate(gyro [3]float64) float64 {
	return gyro[m.Vertical]
}

// ComputePose computes roll and pitch (degrees) from accelerometer data
// only. Yaw is left at 0; it is integrated from the gyro by callers that
// need it.
//
//	roll  = atan2(lateral, vertical)
//	pitch = atan2(forward, sqrt(lateral² + vertical²))
func (m Mounting) ComputePose(accel [3]float64) Pose {
	_, l, v := m.Split(accel)
	rollRad := math.Atan2(l, v)
	pitchRad := m.PitchRad(accel)

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
		Yaw:   0,
	}
}
