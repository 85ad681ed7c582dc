// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport is the thin seam between streamcache and the framed
// message connection it rides on. Everything above this package talks in
// terms of Conn; only this file knows the connection is a websocket.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// FrameType distinguishes a text control frame from a binary data frame.
type FrameType int

const (
	TextFrame   FrameType = FrameType(websocket.TextMessage)
	BinaryFrame FrameType = FrameType(websocket.BinaryMessage)
)

// Conn is a duplex, message-framed connection. Reads and writes operate
// on whole frames; callers distinguish control traffic from data traffic
// by FrameType rather than by parsing a byte stream themselves.
type Conn interface {
	ReadMessage() (FrameType, []byte, error)
	WriteMessage(FrameType, []byte) error
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
	Close() error
	RemoteAddr() string
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) ReadMessage() (FrameType, []byte, error) {
	typ, data, err := w.c.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	return FrameType(typ), data, nil
}

func (w *wsConn) WriteMessage(t FrameType, data []byte) error {
	return w.c.WriteMessage(int(t), data)
}

func (w *wsConn) SetReadDeadline(t time.Time) error  { return w.c.SetReadDeadline(t) }
func (w *wsConn) SetWriteDeadline(t time.Time) error { return w.c.SetWriteDeadline(t) }
func (w *wsConn) Close() error                       { return w.c.Close() }
func (w *wsConn) RemoteAddr() string                 { return w.c.RemoteAddr().String() }

// Upgrader upgrades incoming HTTP requests to a Conn. MaxMessageSize caps
// the size of any single frame the server will accept.
type Upgrader struct {
	MaxMessageSize int64
	upgrader       websocket.Upgrader
}

// NewUpgrader builds an Upgrader that accepts any origin, matching the
// server's role as a private cache backend rather than a browser-facing
// endpoint.
func NewUpgrader(maxMessageSize int64) *Upgrader {
	return &Upgrader{
		MaxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// Upgrade promotes an HTTP request to a framed Conn.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	c, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrading connection: %w", err)
	}
	if u.MaxMessageSize > 0 {
		c.SetReadLimit(u.MaxMessageSize)
	}
	return &wsConn{c: c}, nil
}

// Dial opens a client-side Conn to a server URI of the form
// ws://host:port/path.
func Dial(ctx context.Context, uri string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	c, _, err := dialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", uri, err)
	}
	return &wsConn{c: c}, nil
}
