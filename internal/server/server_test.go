// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/protocol"
	"github.com/arcflow-dev/streamcache/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T) (string, context.CancelFunc) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := &config.ServerConfig{
		Listen: config.ListenInfo{Host: "127.0.0.1", Port: port, Path: "/stream"},
		Cache:  config.CacheInfo{Directory: t.TempDir()},
		Buffers: config.BufferInfo{
			SizeRaw:  64 * 1024,
			PoolSize: 4,
		},
		Limits: config.LimitsInfo{
			MaxMessageSizeRaw: 100 * 1024 * 1024,
			KeepAliveInterval: 30 * time.Second,
			CloseTimeout:      2 * time.Second,
		},
		Cleanup: config.CleanupInfo{Schedule: "@every 1h", MaxAge: time.Hour},
		Logging: config.LoggingInfo{Level: "error", Format: "json"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := RunWithListener(ctx, ln, cfg, testLogger()); err != nil {
			t.Logf("RunWithListener: %v", err)
		}
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return fmt.Sprintf("ws://127.0.0.1:%d/stream", port), cancel
}

func TestServerEndToEndUploadAndDownload(t *testing.T) {
	uri, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := transport.Dial(ctx, uri)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Drain the CONNECTED greeting.
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("reading greeting: %v", err)
	}

	send := func(msg *protocol.Message) {
		data, err := protocol.Encode(msg)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := conn.WriteMessage(transport.TextFrame, data); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	recvText := func() *protocol.Message {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if typ != transport.TextFrame {
			t.Fatalf("expected text frame, got %d", typ)
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		return msg
	}

	send(protocol.NewStart("e2e-stream"))
	if msg := recvText(); msg.Type != protocol.TypeStarted {
		t.Fatalf("expected STARTED, got %+v", msg)
	}

	payload := []byte("end to end payload bytes")
	if err := conn.WriteMessage(transport.BinaryFrame, payload); err != nil {
		t.Fatalf("WriteMessage(binary): %v", err)
	}

	send(protocol.NewStop("e2e-stream"))
	if msg := recvText(); msg.Type != protocol.TypeStopped {
		t.Fatalf("expected STOPPED, got %+v", msg)
	}

	send(protocol.NewGet("e2e-stream", 0, 64*1024))
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if typ != transport.BinaryFrame {
		t.Fatalf("expected binary frame, got %d", typ)
	}
	if string(data) != string(payload) {
		t.Fatalf("GET data = %q, want %q", data, payload)
	}

	send(protocol.NewGet("e2e-stream", uint64(len(payload)), 64*1024))
	if msg := recvText(); !msg.IsError() {
		t.Fatalf("expected ERROR marking end-of-stream, got %+v", msg)
	}
}

func TestServerConcurrentStreamsOnSeparateConnections(t *testing.T) {
	uri, _ := startTestServer(t)

	type peer struct {
		conn    transport.Conn
		id      string
		payload []byte
	}

	dial := func(id string, fill byte) *peer {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn, err := transport.Dial(ctx, uri)
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("reading greeting: %v", err)
		}
		payload := make([]byte, 3000)
		for i := range payload {
			payload[i] = fill
		}
		return &peer{conn: conn, id: id, payload: payload}
	}

	sendOn := func(p *peer, msg *protocol.Message) {
		data, err := protocol.Encode(msg)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := p.conn.WriteMessage(transport.TextFrame, data); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	recvTextOn := func(p *peer) *protocol.Message {
		typ, data, err := p.conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if typ != transport.TextFrame {
			t.Fatalf("expected text frame, got %d", typ)
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		return msg
	}

	a := dial("conc-a", 0xAA)
	b := dial("conc-b", 0xBB)

	for _, p := range []*peer{a, b} {
		sendOn(p, protocol.NewStart(p.id))
		if msg := recvTextOn(p); msg.Type != protocol.TypeStarted {
			t.Fatalf("expected STARTED for %s, got %+v", p.id, msg)
		}
	}

	// Interleave binary frames across the two connections.
	for off := 0; off < 3000; off += 1000 {
		for _, p := range []*peer{a, b} {
			if err := p.conn.WriteMessage(transport.BinaryFrame, p.payload[off:off+1000]); err != nil {
				t.Fatalf("WriteMessage(binary) on %s: %v", p.id, err)
			}
		}
	}

	for _, p := range []*peer{a, b} {
		sendOn(p, protocol.NewStop(p.id))
		if msg := recvTextOn(p); msg.Type != protocol.TypeStopped {
			t.Fatalf("expected STOPPED for %s, got %+v", p.id, msg)
		}
	}

	for _, p := range []*peer{a, b} {
		sendOn(p, protocol.NewGet(p.id, 0, 64*1024))
		typ, data, err := p.conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if typ != transport.BinaryFrame {
			t.Fatalf("expected binary frame for %s, got %d", p.id, typ)
		}
		if len(data) != len(p.payload) || data[0] != p.payload[0] || data[len(data)-1] != p.payload[len(p.payload)-1] {
			t.Fatalf("stream %s bytes do not match its own upload", p.id)
		}
	}
}
