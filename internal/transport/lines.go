// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport moves wire frames between the wearable and the
// analysis session: sockets, serial ports, log files and recorders.
package transport

import (
	"bufio"
	"io"
	"strings"
)

// LineSource yields one wire line per call. Close unblocks a pending
// ReadLine.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

// Reader reads newline-terminated lines from any io.Reader.
type Reader struct {
	sc     *bufio.Scanner
	closer io.Closer
}

// NewReader wraps r. If r is also an io.Closer, Close closes it.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), 64*1024)
	rd := &Reader{sc: sc}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

// ReadLine returns the next non-empty line, or io.EOF.
func (r *Reader) ReadLine() (string, error) {
	for r.sc.Scan() {
		line := strings.TrimSpace(r.sc.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
