// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server hosts the connection accept loop and the message
// dispatch that binds incoming control and data frames to the stream
// store.
package server

import "sync"

// Session is per-connection state binding at most one stream id for
// ingest. It lives as a field on the connection handler, not grafted onto
// the transport connection itself.
type Session struct {
	mu              sync.Mutex
	currentStreamID string
}

// Bind sets the session's active stream id, overwriting any prior
// binding.
func (s *Session) Bind(id string) {
	s.mu.Lock()
	s.currentStreamID = id
	s.mu.Unlock()
}

// Clear drops the session's active stream id.
func (s *Session) Clear() {
	s.mu.Lock()
	s.currentStreamID = ""
	s.mu.Unlock()
}

// Current returns the session's active stream id, or "" if none is bound.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStreamID
}
