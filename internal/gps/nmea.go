// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrNoFix is returned by ParseNMEA for sentences that carry no position.
var ErrNoFix = errors.New("sentence carries no position")

// ParseNMEA parses one NMEA sentence into a Fix. RMC sentences fill the
// whole fix; GGA sentences fill time and position only and are marked
// valid when the fix quality is non-zero.
func ParseNMEA(line string) (Fix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, ErrNoFix
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, err
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		return Fix{
			Time:       m.Time.String(),
			Date:       m.Date.String(),
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			SpeedKnots: m.Speed,
			CourseDeg:  m.Course,
			Validity:   string(m.Validity),
		}, nil
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		validity := "V"
		if m.FixQuality != nmea.Invalid && m.FixQuality != "" {
			validity = "A"
		}
		return Fix{
			Time:      m.Time.String(),
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			Validity:  validity,
		}, nil
	default:
		return Fix{}, ErrNoFix
	}
}

// Receiver keeps the most recent valid fix from an NMEA stream. It is
// fed from the GPS reader goroutine and read by the frame loop.
type Receiver struct {
	mu      sync.RWMutex
	last    Fix
	haveFix bool
}

// NewReceiver returns an empty receiver.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Feed parses a sentence and, if it carries a valid fix, stores it.
// It reports whether the stored fix changed.
func (r *Receiver) Feed(line string) bool {
	fix, err := ParseNMEA(line)
	if err != nil || !fix.Valid() {
		return false
	}
	r.mu.Lock()
	r.last = fix
	r.haveFix = true
	r.mu.Unlock()
	return true
}

// Latest returns the last valid fix, if any.
func (r *Receiver) Latest() (Fix, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.haveFix
}
