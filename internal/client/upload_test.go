// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/protocol"
	"github.com/arcflow-dev/streamcache/internal/transport"
)

func fastUploadConfig() *config.ClientConfig {
	cfg := config.DefaultClientConfig()
	cfg.ChunkSizeRaw = 8
	cfg.UploadDelay = time.Millisecond
	cfg.InterPhasePause = time.Millisecond
	cfg.ResponseTimeout = time.Second
	return cfg
}

// runStubUploadServer reads frames from srv and records every binary
// payload received, replying STARTED/STOPPED to the matching control
// messages.
func runStubUploadServer(t *testing.T, srv *pipeConn, received *bytes.Buffer, doneCh chan<- struct{}) {
	t.Helper()
	go func() {
		defer close(doneCh)
		for {
			typ, data, err := srv.ReadMessage()
			if err != nil {
				return
			}
			switch typ {
			case transport.TextFrame:
				msg, err := protocol.Decode(data)
				if err != nil {
					return
				}
				switch msg.Type {
				case protocol.TypeStart:
					reply, _ := protocol.Encode(protocol.NewStarted(msg.StreamID))
					srv.WriteMessage(transport.TextFrame, reply)
				case protocol.TypeStop:
					reply, _ := protocol.Encode(protocol.NewStopped(msg.StreamID))
					srv.WriteMessage(transport.TextFrame, reply)
					return
				}
			case transport.BinaryFrame:
				received.Write(data)
			}
		}
	}()
}

func TestUploadSendsFileBodyInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	payload := bytes.Repeat([]byte{0x42}, 37) // not a multiple of chunk size
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, srv := newTestConnection()
	defer c.Close()

	var received bytes.Buffer
	done := make(chan struct{})
	runStubUploadServer(t, srv, &received, done)

	result, err := Upload(context.Background(), c, fastUploadConfig(), nil, path, nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	<-done

	if !bytes.Equal(received.Bytes(), payload) {
		t.Errorf("server received %d bytes, want %d matching payload", received.Len(), len(payload))
	}
	if result.BytesSent != int64(len(payload)) {
		t.Errorf("BytesSent = %d, want %d", result.BytesSent, len(payload))
	}
	if !result.StoppedClean {
		t.Errorf("expected StoppedClean = true")
	}
	if result.StreamID == "" {
		t.Errorf("expected a non-empty generated stream id")
	}
}

func TestUploadFailsOnMissingFile(t *testing.T) {
	c, srv := newTestConnection()
	defer c.Close()
	defer srv.Close()

	_, err := Upload(context.Background(), c, fastUploadConfig(), nil, "/nonexistent/path/file.bin", nil)
	if err == nil {
		t.Fatalf("expected error for missing input file")
	}
}

func TestUploadFailsOnNonStartedReply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, srv := newTestConnection()
	defer c.Close()

	go func() {
		_, data, err := srv.ReadMessage()
		if err != nil {
			return
		}
		msg, _ := protocol.Decode(data)
		reply, _ := protocol.Encode(protocol.NewError("rejected: " + msg.StreamID))
		srv.WriteMessage(transport.TextFrame, reply)
	}()

	_, err := Upload(context.Background(), c, fastUploadConfig(), nil, path, nil)
	if err == nil {
		t.Fatalf("expected error for a non-STARTED reply")
	}
}
