// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arcflow-dev/streamcache/internal/apperr"
	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/protocol"
)

// DownloadResult summarizes a completed download.
type DownloadResult struct {
	BytesReceived  int64
	ChunksReceived int
}

// Download issues sequential GETs for streamID starting at offset 0,
// writing received bytes to outPath in order, until a short read or an
// ERROR reply signals end-of-stream. progress may be nil.
func Download(ctx context.Context, conn *Connection, cfg *config.ClientConfig, logger *slog.Logger, streamID, outPath string, progress *Tracker) (*DownloadResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.FileIO("creating output directory", err)
		}
	}
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, apperr.FileIO("opening output file", err)
	}
	defer out.Close()

	result := &DownloadResult{}
	var offset uint64
	chunkSize := uint64(cfg.ChunkSizeRaw)

	for {
		data, done, err := fetchRange(ctx, conn, cfg, streamID, offset, chunkSize, progress)
		if err != nil {
			progress.SetLastError(err)
			return nil, err
		}
		if done {
			break
		}

		if _, err := out.Write(data); err != nil {
			progress.SetLastError(err)
			return nil, apperr.FileIO("writing output file", err)
		}

		result.BytesReceived += int64(len(data))
		result.ChunksReceived++
		offset += uint64(len(data))
		progress.AddBytes(int64(len(data)))

		if result.ChunksReceived%progressEvery == 0 {
			logger.Info("download progress", "streamId", streamID, "chunks", result.ChunksReceived, "bytes", result.BytesReceived)
		}

		// A short read (fewer bytes than requested) marks the last chunk;
		// no further range is issued.
		if uint64(len(data)) < chunkSize {
			break
		}
	}

	return result, nil
}

// fetchRange requests one (offset, length) range, retrying on timeout up
// to cfg.MaxRetries with cfg.RetryBackoff between attempts. It returns
// done=true when the range legitimately signals end-of-stream: an ERROR
// reply in place of a binary frame, on any attempt. A binary frame, even
// an empty one, is returned with done=false; Download's short-read check
// ends the loop for it.
func fetchRange(ctx context.Context, conn *Connection, cfg *config.ClientConfig, streamID string, offset, length uint64, progress *Tracker) (data []byte, done bool, err error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := conn.SendControl(protocol.NewGet(streamID, offset, length)); err != nil {
			return nil, false, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		got, ok, recvErr := conn.ReceiveBinary(reqCtx)
		cancel()

		if recvErr == nil && !ok && got == nil {
			// ERROR reply, translated by ReceiveBinary to "no more data".
			return nil, true, nil
		}
		if recvErr == nil {
			return got, false, nil
		}

		lastErr = recvErr
		progress.SetLastError(recvErr)
		if !apperr.IsRecoverable(recvErr) {
			return nil, false, recvErr
		}
		if attempt < cfg.MaxRetries {
			progress.AddRetry()
			time.Sleep(cfg.RetryBackoff)
		}
	}

	return nil, false, apperr.Timeout("fetching range", fmt.Errorf("exhausted %d retries at offset %d: %w", cfg.MaxRetries, offset, lastErr))
}
