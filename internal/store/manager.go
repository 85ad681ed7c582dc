// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/arcflow-dev/streamcache/internal/apperr"
)

// Manager is the stream registry. It is constructed explicitly by the
// server at boot (and by tests in isolation) rather than reached through
// a package-level singleton, so each caller gets its own cache directory
// and lifecycle.
type Manager struct {
	cacheDir string
	logger   *slog.Logger

	streams sync.Map // string -> *Context

	cronMu  sync.Mutex
	cronJob *cron.Cron
}

// NewManager builds a Manager rooted at cacheDir, creating the directory
// if it does not already exist.
func NewManager(cacheDir string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", cacheDir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cacheDir: cacheDir, logger: logger}, nil
}

func (m *Manager) pathFor(id string) string {
	return filepath.Join(m.cacheDir, id+".cache")
}

// CreateStream registers a new stream context in the UPLOADING state. It
// fails if id is already present in the registry.
func (m *Manager) CreateStream(id string) error {
	ctx := newContext(id, m.pathFor(id))
	if _, loaded := m.streams.LoadOrStore(id, ctx); loaded {
		return apperr.Validation("create_stream", fmt.Errorf("stream %q already exists", id))
	}
	return nil
}

// GetStream looks up id and refreshes its last-accessed time on a hit.
func (m *Manager) GetStream(id string) (*Context, bool) {
	v, ok := m.streams.Load(id)
	if !ok {
		return nil, false
	}
	c := v.(*Context)
	c.Guard.Lock()
	c.UpdateAccessTime()
	c.Guard.Unlock()
	return c, true
}

// DeleteStream closes the stream's mapped file, removes its cache file
// from disk, and drops it from the registry.
func (m *Manager) DeleteStream(id string) error {
	v, ok := m.streams.LoadAndDelete(id)
	if !ok {
		return apperr.Validation("delete_stream", fmt.Errorf("stream %q not found", id))
	}
	c := v.(*Context)

	c.Guard.Lock()
	defer c.Guard.Unlock()

	if err := c.MappedFile.Close(); err != nil {
		m.logger.Warn("closing mapped file during delete", "streamId", id, "error", err)
	}
	if err := os.Remove(c.CachePath); err != nil && !os.IsNotExist(err) {
		return apperr.FileIO("delete_stream", err)
	}
	return nil
}

// ListActiveStreams returns a snapshot of every id currently registered.
func (m *Manager) ListActiveStreams() []string {
	ids := make([]string, 0)
	m.streams.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	return ids
}

// WriteChunk appends data at the stream's current offset. The stream must
// be in the UPLOADING state. A zero-length write is a no-op that leaves
// the cursors unchanged.
func (m *Manager) WriteChunk(id string, data []byte) error {
	v, ok := m.streams.Load(id)
	if !ok {
		return apperr.Validation("write_chunk", fmt.Errorf("stream %q not found", id))
	}
	c := v.(*Context)

	c.Guard.Lock()
	defer c.Guard.Unlock()

	if c.Status != StatusUploading {
		return apperr.Validation("write_chunk", fmt.Errorf("stream %q is not uploading (status=%s)", id, c.Status))
	}
	if len(data) == 0 {
		c.UpdateAccessTime()
		return nil
	}

	n, err := c.MappedFile.Write(c.CurrentOffset, data)
	if err != nil {
		c.Status = StatusError
		return apperr.FileIO("write_chunk", err)
	}
	if n != len(data) {
		c.Status = StatusError
		return apperr.FileIO("write_chunk", fmt.Errorf("partial write: wrote %d of %d bytes", n, len(data)))
	}

	c.CurrentOffset += int64(n)
	c.TotalSize = c.CurrentOffset
	c.UpdateAccessTime()
	return nil
}

// ReadChunk returns up to length bytes starting at offset. An empty
// result is a valid end-of-stream signal, not an error.
func (m *Manager) ReadChunk(id string, offset, length int64) ([]byte, error) {
	v, ok := m.streams.Load(id)
	if !ok {
		return nil, apperr.Validation("read_chunk", fmt.Errorf("stream %q not found", id))
	}
	c := v.(*Context)

	c.Guard.Lock()
	defer c.Guard.Unlock()

	data, err := c.MappedFile.Read(offset, length)
	if err != nil {
		c.Status = StatusError
		return nil, apperr.FileIO("read_chunk", err)
	}
	c.UpdateAccessTime()
	return data, nil
}

// FinalizeStream truncates the stream's cache file down to its total size,
// flushes it, and transitions the stream to READY.
func (m *Manager) FinalizeStream(id string) error {
	v, ok := m.streams.Load(id)
	if !ok {
		return apperr.Validation("finalize_stream", fmt.Errorf("stream %q not found", id))
	}
	c := v.(*Context)

	c.Guard.Lock()
	defer c.Guard.Unlock()

	if c.Status != StatusUploading {
		return apperr.Validation("finalize_stream", fmt.Errorf("stream %q is not uploading (status=%s)", id, c.Status))
	}

	if err := c.MappedFile.Finalize(c.TotalSize); err != nil {
		c.Status = StatusError
		return apperr.FileIO("finalize_stream", err)
	}
	c.Status = StatusReady
	c.UpdateAccessTime()
	return nil
}

// CleanupOldStreams deletes every stream whose last access time is older
// than now-maxAge. It returns the number of streams removed.
func (m *Manager) CleanupOldStreams(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []string

	m.streams.Range(func(k, v any) bool {
		c := v.(*Context)
		c.Guard.Lock()
		last := c.LastAccessed
		c.Guard.Unlock()

		if last.Before(cutoff) {
			stale = append(stale, k.(string))
		}
		return true
	})

	for _, id := range stale {
		if err := m.DeleteStream(id); err != nil {
			m.logger.Warn("cleanup failed to delete stream", "streamId", id, "error", err)
			continue
		}
		m.logger.Info("cleaned up stale stream", "streamId", id)
	}
	return len(stale)
}

// StartCleanupSchedule starts a background cron job that runs
// CleanupOldStreams(maxAge) on the given schedule expression (e.g.
// "@every 5m"). Calling it twice replaces the previous schedule.
func (m *Manager) StartCleanupSchedule(schedule string, maxAge time.Duration) error {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	if m.cronJob != nil {
		m.cronJob.Stop()
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed := m.CleanupOldStreams(maxAge)
		if removed > 0 {
			m.logger.Info("cleanup sweep removed stale streams", "count", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling cleanup job %q: %w", schedule, err)
	}

	c.Start()
	m.cronJob = c
	return nil
}

// StopCleanupSchedule stops the background cleanup job, if one is running.
func (m *Manager) StopCleanupSchedule() {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()
	if m.cronJob != nil {
		m.cronJob.Stop()
		m.cronJob = nil
	}
}
