// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/arcflow-dev/streamcache/internal/apperr"
	"github.com/arcflow-dev/streamcache/internal/bufferpool"
	"github.com/arcflow-dev/streamcache/internal/protocol"
	"github.com/arcflow-dev/streamcache/internal/store"
	"github.com/arcflow-dev/streamcache/internal/transport"
)

// Handler dispatches parsed control messages and raw binary frames
// against a Manager. It is explicitly constructed with its dependencies
// rather than reached through a package-level accessor, so tests can run
// several isolated handlers side by side.
type Handler struct {
	manager *store.Manager
	pool    *bufferpool.Pool
	logger  *slog.Logger

	activeConns atomic.Int32
}

// NewHandler builds a Handler bound to manager. pool may be nil, in which
// case GET responses are written straight from the manager's own
// allocation without the scratch-buffer indirection.
func NewHandler(manager *store.Manager, pool *bufferpool.Pool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: manager, pool: pool, logger: logger}
}

// ActiveConnections reports how many connections this handler is
// currently serving.
func (h *Handler) ActiveConnections() int32 { return h.activeConns.Load() }

// HandleConnection serially reads frames from conn and dispatches them
// until the transport errors, the connection closes, or ctx is done. A
// bound stream is left in the registry on disconnect; cleanup is the
// manager's cleanup job's job.
func (h *Handler) HandleConnection(ctx context.Context, conn transport.Conn) {
	h.activeConns.Add(1)
	defer h.activeConns.Add(-1)
	defer conn.Close()

	session := &Session{}

	if err := h.send(conn, protocol.NewConnected()); err != nil {
		h.logger.Warn("sending greeting", "remote", conn.RemoteAddr(), "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frameType, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("connection closed", "remote", conn.RemoteAddr(), "error", err)
			return
		}

		switch frameType {
		case transport.TextFrame:
			h.handleText(conn, session, data)
		case transport.BinaryFrame:
			h.handleBinary(conn, session, data)
		}
	}
}

func (h *Handler) handleText(conn transport.Conn, session *Session, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		h.replyError(conn, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeStart:
		h.handleStart(conn, session, msg)
	case protocol.TypeStop:
		h.handleStop(conn, session, msg)
	case protocol.TypeGet:
		h.handleGet(conn, msg)
	default:
		h.replyError(conn, "unhandled message type: "+string(msg.Type))
	}
}

func (h *Handler) handleStart(conn transport.Conn, session *Session, msg *protocol.Message) {
	if msg.StreamID == "" {
		h.replyError(conn, "streamId is required")
		return
	}

	if err := h.manager.CreateStream(msg.StreamID); err != nil {
		h.replyError(conn, err.Error())
		return
	}

	// A second START on an already-bound connection only overwrites the
	// binding once the new stream is actually created.
	session.Bind(msg.StreamID)
	h.send(conn, protocol.NewStarted(msg.StreamID))
}

func (h *Handler) handleStop(conn transport.Conn, session *Session, msg *protocol.Message) {
	if msg.StreamID == "" {
		h.replyError(conn, "streamId is required")
		return
	}

	if err := h.manager.FinalizeStream(msg.StreamID); err != nil {
		h.replyError(conn, err.Error())
		return
	}

	session.Clear()
	h.send(conn, protocol.NewStopped(msg.StreamID))
}

func (h *Handler) handleGet(conn transport.Conn, msg *protocol.Message) {
	if msg.StreamID == "" {
		h.replyError(conn, "streamId is required")
		return
	}

	offset := int64(msg.GetOffset())
	length := int64(msg.GetLength())

	data, err := h.manager.ReadChunk(msg.StreamID, offset, length)
	if err != nil {
		h.replyError(conn, err.Error())
		return
	}
	if len(data) == 0 {
		h.replyError(conn, "no data")
		return
	}

	// Route the response through the shared scratch buffer when it fits,
	// so steady-state GETs at the default chunk size don't churn the
	// allocator on every range read.
	if h.pool != nil && len(data) <= h.pool.BufferSize() {
		buf := h.pool.Acquire()
		n := copy(buf, data)
		err = conn.WriteMessage(transport.BinaryFrame, buf[:n])
		h.pool.Release(buf)
	} else {
		err = conn.WriteMessage(transport.BinaryFrame, data)
	}
	if err != nil {
		h.logger.Warn("writing binary frame", "remote", conn.RemoteAddr(), "error", err)
	}
}

func (h *Handler) handleBinary(conn transport.Conn, session *Session, data []byte) {
	streamID := session.Current()
	if streamID == "" {
		h.replyError(conn, "no stream bound on this connection")
		return
	}

	if err := h.manager.WriteChunk(streamID, data); err != nil {
		h.replyError(conn, err.Error())
	}
}

func (h *Handler) replyError(conn transport.Conn, text string) {
	if err := h.send(conn, protocol.NewError(text)); err != nil {
		h.logger.Warn("replying with error frame", "remote", conn.RemoteAddr(), "send_error", err, "original", text)
	}
}

func (h *Handler) send(conn transport.Conn, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return apperr.Protocol("encoding outbound message", err)
	}
	if err := conn.WriteMessage(transport.TextFrame, data); err != nil {
		return apperr.Connection("writing text frame", err)
	}
	return nil
}
