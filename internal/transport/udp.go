// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"fmt"
	"net"
	"strings"
)

const maxDatagram = 2048

// UDPSource receives frames as datagrams. A datagram may carry several
// newline-separated lines.
type UDPSource struct {
	conn    net.PacketConn
	buf     []byte
	pending []string
}

// ListenUDP binds addr (e.g. ":9000").
func ListenUDP(addr string) (*UDPSource, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	return &UDPSource{conn: conn, buf: make([]byte, maxDatagram)}, nil
}

// Addr is the bound local address.
func (u *UDPSource) Addr() net.Addr { return u.conn.LocalAddr() }

func (u *UDPSource) ReadLine() (string, error) {
	for len(u.pending) == 0 {
		n, _, err := u.conn.ReadFrom(u.buf)
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(string(u.buf[:n]), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				u.pending = append(u.pending, line)
			}
		}
	}
	line := u.pending[0]
	u.pending = u.pending[1:]
	return line, nil
}

func (u *UDPSource) Close() error { return u.conn.Close() }
