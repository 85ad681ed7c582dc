// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client implements the streamcache client side: a framed
// connection facade plus the upload and download engines that drive it.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/arcflow-dev/streamcache/internal/apperr"
	"github.com/arcflow-dev/streamcache/internal/protocol"
	"github.com/arcflow-dev/streamcache/internal/transport"
)

// Frame is one inbound message, tagged with its wire type.
type Frame struct {
	Type transport.FrameType
	Data []byte
}

// Connection wraps a framed transport.Conn and demultiplexes inbound
// frames into a single FIFO queue, fed by a background reader goroutine.
// All receives are cancellable via the context passed to Receive.
type Connection struct {
	conn    transport.Conn
	recvCh  chan Frame
	done    chan struct{}
	closeSt sync.Once
}

// Connect dials uri and starts the background read loop.
func Connect(ctx context.Context, uri string) (*Connection, error) {
	conn, err := transport.Dial(ctx, uri)
	if err != nil {
		return nil, apperr.Connection("connect", err)
	}

	c := &Connection{
		conn:   conn,
		recvCh: make(chan Frame, 16),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Connection) readLoop() {
	defer close(c.recvCh)
	greeted := false
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// The server greets every accepted connection with a CONNECTED
		// frame before any request/response traffic. Swallow it here so
		// the engines only ever see replies to messages they sent.
		if !greeted && typ == transport.TextFrame {
			greeted = true
			if msg, derr := protocol.Decode(data); derr == nil && msg.Type == protocol.TypeConnected {
				continue
			}
		}

		select {
		case c.recvCh <- Frame{Type: typ, Data: data}:
		case <-c.done:
			return
		}
	}
}

// Close stops the read loop and closes the underlying transport.
func (c *Connection) Close() error {
	c.closeSt.Do(func() { close(c.done) })
	return c.conn.Close()
}

// SendText writes a raw text frame.
func (c *Connection) SendText(data []byte) error {
	if err := c.conn.WriteMessage(transport.TextFrame, data); err != nil {
		return apperr.Connection("send_text", err)
	}
	return nil
}

// SendBinary writes a raw binary frame.
func (c *Connection) SendBinary(data []byte) error {
	if err := c.conn.WriteMessage(transport.BinaryFrame, data); err != nil {
		return apperr.Connection("send_binary", err)
	}
	return nil
}

// SendControl encodes and sends a control message as a text frame.
func (c *Connection) SendControl(msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return apperr.Protocol("encoding control message", err)
	}
	return c.SendText(data)
}

// Receive waits for the next frame of either type, honoring ctx's
// deadline. A closed connection surfaces as a CONNECTION error.
func (c *Connection) Receive(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-c.recvCh:
		if !ok {
			return Frame{}, apperr.Connection("receive", fmt.Errorf("connection closed"))
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, apperr.Timeout("receive", ctx.Err())
	}
}

// ReceiveText waits for the next frame and requires it to be text,
// decoding it as a control message.
func (c *Connection) ReceiveText(ctx context.Context) (*protocol.Message, error) {
	f, err := c.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if f.Type != transport.TextFrame {
		return nil, apperr.Protocol("receive_text", fmt.Errorf("expected text frame, got binary"))
	}
	msg, err := protocol.Decode(f.Data)
	if err != nil {
		return nil, apperr.Protocol("receive_text", err)
	}
	return msg, nil
}

// ReceiveControl is an alias for ReceiveText; control messages are always
// carried by text frames.
func (c *Connection) ReceiveControl(ctx context.Context) (*protocol.Message, error) {
	return c.ReceiveText(ctx)
}

// ReceiveBinary waits for the next frame, tolerating a preceding ERROR
// text frame by translating it into (nil, false, nil): a legitimate
// not-data (end-of-stream) signal rather than a failure. Any other text
// frame, or a decode failure, is a PROTOCOL error.
func (c *Connection) ReceiveBinary(ctx context.Context) (data []byte, ok bool, err error) {
	f, err := c.Receive(ctx)
	if err != nil {
		return nil, false, err
	}

	if f.Type == transport.TextFrame {
		msg, derr := protocol.Decode(f.Data)
		if derr != nil {
			return nil, false, apperr.Protocol("receive_binary", derr)
		}
		if msg.IsError() {
			return nil, false, nil
		}
		return nil, false, apperr.Protocol("receive_binary", fmt.Errorf("unexpected control message %s", msg.Type))
	}

	return f.Data, true, nil
}
