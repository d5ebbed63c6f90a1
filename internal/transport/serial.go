// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a port 8N1 at baud.
// NOTE: typical names are /dev/serial0, /dev/ttyAMA0, /dev/ttyUSB0, /dev/ttyACM0.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rw, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return rw, nil
}

// OpenSerialSource opens a serial port carrying one frame per line.
func OpenSerialSource(port string, baud int) (*Reader, error) {
	rw, err := OpenSerial(port, baud)
	if err != nil {
		return nil, err
	}
	return NewReader(rw), nil
}
