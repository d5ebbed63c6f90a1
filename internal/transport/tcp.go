// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// TCPSource accepts one device connection at a time and reads lines from
// it. When the device disconnects the next connection is accepted.
type TCPSource struct {
	ln net.Listener

	mu     sync.Mutex
	conn   net.Conn
	reader *Reader
	closed bool

	// OnConnect, if set, is called with each accepted remote address.
	OnConnect func(remote net.Addr)
}

// ListenTCP binds addr (e.g. ":9001").
func ListenTCP(addr string) (*TCPSource, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	return &TCPSource{ln: ln}, nil
}

// Addr is the bound local address.
func (t *TCPSource) Addr() net.Addr { return t.ln.Addr() }

func (t *TCPSource) ReadLine() (string, error) {
	for {
		if t.reader == nil {
			conn, err := t.ln.Accept()
			if err != nil {
				return "", err
			}
			t.mu.Lock()
			if t.closed {
				t.mu.Unlock()
				conn.Close()
				return "", net.ErrClosed
			}
			t.conn = conn
			t.reader = NewReader(conn)
			t.mu.Unlock()
			if t.OnConnect != nil {
				t.OnConnect(conn.RemoteAddr())
			}
		}

		line, err := t.reader.ReadLine()
		if err == nil {
			return line, nil
		}
		t.mu.Lock()
		closed := t.closed
		t.conn.Close()
		t.conn, t.reader = nil, nil
		t.mu.Unlock()
		if closed {
			return "", net.ErrClosed
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			return "", err
		}
	}
}

// Close stops accepting and drops the current connection.
func (t *TCPSource) Close() error {
	t.mu.Lock()
	t.closed = true
	if t.conn != nil {
		t.conn.Close()
	}
	t.mu.Unlock()
	return t.ln.Close()
}
