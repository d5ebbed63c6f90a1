// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"errors"
	"io"

	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
)

// GPSMerge fills the coordinate of frames that have none from the latest
// fix of an NMEA receiver.
type GPSMerge struct {
	Source   imu.FrameSource
	Receiver *gps.Receiver
}

func (g GPSMerge) Next() (imu.RawFrame, error) {
	f, err := g.Source.Next()
	if err != nil {
		return f, err
	}
	return MergeFix(f, g.Receiver), nil
}

// MergeFix copies the latest fix of rx into f when f has no coordinate.
// A nil receiver leaves f unchanged.
func MergeFix(f imu.RawFrame, rx *gps.Receiver) imu.RawFrame {
	if f.HasGPS() || rx == nil {
		return f
	}
	if fix, ok := rx.Latest(); ok {
		f.Lat, f.Lon = fix.Latitude, fix.Longitude
	}
	return f
}

// FeedNMEA reads sentences from src into rx until src fails. It returns
// nil at EOF.
func FeedNMEA(src LineSource, rx *gps.Receiver) error {
	for {
		line, err := src.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rx.Feed(line)
	}
}
