// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store holds the stream registry: the per-stream memory-mapped
// cache files, their lifecycle, and the manager that creates, reads,
// writes, finalizes and evicts them.
package store

import (
	"sync"
	"time"

	"github.com/arcflow-dev/streamcache/internal/mapped"
)

// Status is a stream's position in its UPLOADING -> READY -> (ERROR)
// lifecycle.
type Status string

const (
	StatusUploading Status = "UPLOADING"
	StatusReady     Status = "READY"
	StatusError     Status = "ERROR"
)

// Context is the per-stream metadata the manager tracks. It carries no
// business logic of its own; it is read and mutated exclusively by
// Manager under Guard.
type Context struct {
	StreamID      string
	CachePath     string
	MappedFile    *mapped.File
	CurrentOffset int64
	TotalSize     int64
	CreatedAt     time.Time
	LastAccessed  time.Time
	Status        Status

	// Guard serializes write_chunk, read_chunk and finalize_stream calls
	// against this stream. It is never held across registry operations.
	Guard sync.Mutex
}

// newContext builds a fresh Context in the UPLOADING state.
func newContext(streamID, cachePath string) *Context {
	now := time.Now()
	return &Context{
		StreamID:     streamID,
		CachePath:    cachePath,
		MappedFile:   mapped.New(cachePath),
		CreatedAt:    now,
		LastAccessed: now,
		Status:       StatusUploading,
	}
}

// UpdateAccessTime stamps LastAccessed to now. Callers must hold Guard or
// otherwise guarantee exclusive access; Manager calls this under Guard on
// every read/write/finalize and on get_stream.
func (c *Context) UpdateAccessTime() {
	c.LastAccessed = time.Now()
}
