// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/arcflow-dev/streamcache/internal/apperr"
	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/protocol"
	"github.com/arcflow-dev/streamcache/internal/store"
)

// progressEvery controls how often Upload logs a progress line, measured
// in chunks sent.
const progressEvery = 100

// UploadResult summarizes a completed upload.
type UploadResult struct {
	StreamID     string
	BytesSent    int64
	ChunksSent   int
	StoppedClean bool // false when STOPPED timed out (a warning, not a failure)
}

// Upload drives START -> chunked binary -> STOP against conn for the file
// at path, pacing binary frames to at most one per cfg.UploadDelay, since
// the server acknowledges no frame individually. progress may be nil.
func Upload(ctx context.Context, conn *Connection, cfg *config.ClientConfig, logger *slog.Logger, path string, progress *Tracker) (*UploadResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		progress.SetLastError(err)
		return nil, apperr.FileIO("opening upload source", err)
	}
	defer f.Close()

	streamID := store.GenerateShortID("stream")

	if err := conn.SendControl(protocol.NewStart(streamID)); err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, cfg.ResponseTimeout)
	reply, err := conn.ReceiveControl(startCtx)
	cancel()
	if err != nil {
		progress.SetLastError(err)
		return nil, apperr.Timeout("waiting for STARTED", err)
	}
	if reply.Type != protocol.TypeStarted {
		err := apperr.Protocol("waiting for STARTED", fmt.Errorf("got %s: %s", reply.Type, reply.Text))
		progress.SetLastError(err)
		return nil, err
	}

	time.Sleep(cfg.InterPhasePause)

	// A token-bucket limiter stands in for the wire's lack of per-chunk
	// acks: one token per frame, refilled every cfg.UploadDelay, spaces
	// successive frames at least that far apart.
	limiter := rate.NewLimiter(rate.Every(cfg.UploadDelay), 1)

	buf := make([]byte, cfg.ChunkSizeRaw)
	var bytesSent int64
	var chunksSent int

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if chunksSent > 0 {
				if err := limiter.WaitN(ctx, 1); err != nil {
					return nil, apperr.Connection("pacing upload", err)
				}
			}
			if err := conn.SendBinary(buf[:n]); err != nil {
				return nil, err
			}
			bytesSent += int64(n)
			chunksSent++
			progress.AddBytes(int64(n))
			if chunksSent%progressEvery == 0 {
				logger.Info("upload progress", "streamId", streamID, "chunks", chunksSent, "bytes", bytesSent)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, apperr.FileIO("reading upload source", readErr)
		}
	}

	time.Sleep(cfg.InterPhasePause)

	if err := conn.SendControl(protocol.NewStop(streamID)); err != nil {
		return nil, err
	}

	stopCtx, cancel := context.WithTimeout(ctx, cfg.ResponseTimeout)
	reply, err = conn.ReceiveControl(stopCtx)
	cancel()

	result := &UploadResult{StreamID: streamID, BytesSent: bytesSent, ChunksSent: chunksSent}
	if err != nil {
		// The upload itself already completed; a timeout waiting for
		// STOPPED is a warning, not a fatal error.
		logger.Warn("timed out waiting for STOPPED", "streamId", streamID, "error", err)
		return result, nil
	}
	if reply.Type != protocol.TypeStopped {
		logger.Warn("unexpected reply waiting for STOPPED", "streamId", streamID, "type", reply.Type, "message", reply.Text)
		return result, nil
	}

	result.StoppedClean = true
	return result, nil
}
