// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Full-scale sensitivities at the power-on ranges (±2 g, ±250 deg/s).
const (
	AccelLSBPerG  = 16384.0
	GyroLSBPerDPS = 131.0
)

// Counts is one raw accelerometer and gyroscope reading.
type Counts struct {
	Ax, Ay, Az int16
	Gx, Gy, Gz int16
}

// Frame converts counts to g and deg/s. A GPS receiver fills lat/lon
// downstream. Mx/My/Mz stay zero: the upstream mpu9250 driver does not
// expose the AK8963 magnetometer, and nothing in the pipeline reads them.
func (c Counts) Frame() imu.RawFrame {
	return imu.RawFrame{
		Ax: float64(c.Ax) / AccelLSBPerG,
		Ay: float64(c.Ay) / AccelLSBPerG,
		Az: float64(c.Az) / AccelLSBPerG,
		Gx: float64(c.Gx) / GyroLSBPerDPS,
		Gy: float64(c.Gy) / GyroLSBPerDPS,
		Gz: float64(c.Gz) / GyroLSBPerDPS,
	}
}

// motionReader is the part of the MPU-9250 driver the wearable reads.
type motionReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// Wearable is the chest-mounted MPU-9250 as an imu.FrameSource. Next
// blocks until the next sample is due.
type Wearable struct {
	dev   motionReader
	pace  *pacer
	reads int
}

// NewWearable initializes the MPU-9250 on spiDev with chip select csPin
// and samples it every interval.
func NewWearable(spiDev, csPin string, interval time.Duration) (*Wearable, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("wearable IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("wearable IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("wearable IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("wearable IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("wearable IMU: initialization: %w", err)
	}

	if _, err := dev.SelfTest(); err != nil {
		log.Warnf("wearable IMU: self-test failed: %v", err)
	}
	if err := dev.Calibrate(); err != nil {
		log.Warnf("wearable IMU: calibration failed: %v", err)
	} else {
		log.Infof("wearable IMU: calibration complete")
	}

	log.Infof("wearable IMU: reading %s every %s", spiDev, interval)
	return newWearable(dev, interval), nil
}

func newWearable(dev motionReader, interval time.Duration) *Wearable {
	return &Wearable{dev: dev, pace: newPacer(interval)}
}

// ReadCounts reads one set of raw counts without pacing.
func (w *Wearable) ReadCounts() (Counts, error) {
	var c Counts
	var err error
	if c.Ax, err = w.dev.GetAccelerationX(); err != nil {
		return Counts{}, fmt.Errorf("wearable IMU accel X: %w", err)
	}
	if c.Ay, err = w.dev.GetAccelerationY(); err != nil {
		return Counts{}, fmt.Errorf("wearable IMU accel Y: %w", err)
	}
	if c.Az, err = w.dev.GetAccelerationZ(); err != nil {
		return Counts{}, fmt.Errorf("wearable IMU accel Z: %w", err)
	}
	if c.Gx, err = w.dev.GetRotationX(); err != nil {
		return Counts{}, fmt.Errorf("wearable IMU gyro X: %w", err)
	}
	if c.Gy, err = w.dev.GetRotationY(); err != nil {
		return Counts{}, fmt.Errorf("wearable IMU gyro Y: %w", err)
	}
	if c.Gz, err = w.dev.GetRotationZ(); err != nil {
		return Counts{}, fmt.Errorf("wearable IMU gyro Z: %w", err)
	}
	return c, nil
}

// Next waits for the next sample slot and returns the converted frame.
func (w *Wearable) Next() (imu.RawFrame, error) {
	w.pace.wait()
	c, err := w.ReadCounts()
	if err != nil {
		return imu.RawFrame{}, err
	}
	w.reads++
	return c.Frame(), nil
}

// Reads is the number of frames returned so far.
func (w *Wearable) Reads() int { return w.reads }
