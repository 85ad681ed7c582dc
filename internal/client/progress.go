// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker exposes a live view of a transfer: bytes moved, fraction done
// when a total is known, and the most recent error string. All methods are
// safe on a nil receiver so engines can run without one.
type Tracker struct {
	bytesDone  atomic.Int64
	chunksDone atomic.Int64
	totalBytes atomic.Int64
	retries    atomic.Int32

	errMu     sync.Mutex
	lastError string

	startTime time.Time
}

// NewTracker builds a Tracker. totalBytes may be 0 when the final size is
// unknown up front (downloads discover it by short read).
func NewTracker(totalBytes int64) *Tracker {
	t := &Tracker{startTime: time.Now()}
	t.totalBytes.Store(totalBytes)
	return t
}

// AddBytes records n transferred bytes and one completed chunk.
func (t *Tracker) AddBytes(n int64) {
	if t == nil {
		return
	}
	t.bytesDone.Add(n)
	t.chunksDone.Add(1)
}

// AddRetry records one retry attempt.
func (t *Tracker) AddRetry() {
	if t == nil {
		return
	}
	t.retries.Add(1)
}

// SetLastError records the most recent failure for later inspection.
func (t *Tracker) SetLastError(err error) {
	if t == nil || err == nil {
		return
	}
	t.errMu.Lock()
	t.lastError = err.Error()
	t.errMu.Unlock()
}

// Bytes returns the number of bytes transferred so far.
func (t *Tracker) Bytes() int64 {
	if t == nil {
		return 0
	}
	return t.bytesDone.Load()
}

// Chunks returns the number of chunks transferred so far.
func (t *Tracker) Chunks() int64 {
	if t == nil {
		return 0
	}
	return t.chunksDone.Load()
}

// Retries returns how many retry attempts have been recorded.
func (t *Tracker) Retries() int32 {
	if t == nil {
		return 0
	}
	return t.retries.Load()
}

// Fraction returns completion in [0, 1], or 0 when no total is known.
func (t *Tracker) Fraction() float64 {
	if t == nil {
		return 0
	}
	total := t.totalBytes.Load()
	if total <= 0 {
		return 0
	}
	f := float64(t.bytesDone.Load()) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}

// LastError returns the most recently recorded error string, or "".
func (t *Tracker) LastError() string {
	if t == nil {
		return ""
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.lastError
}

// String summarizes the tracker for log lines.
func (t *Tracker) String() string {
	if t == nil {
		return "no progress"
	}
	elapsed := time.Since(t.startTime).Round(time.Second)
	if total := t.totalBytes.Load(); total > 0 {
		return fmt.Sprintf("%d/%d bytes (%.0f%%) in %s", t.Bytes(), total, t.Fraction()*100, elapsed)
	}
	return fmt.Sprintf("%d bytes in %s", t.Bytes(), elapsed)
}
