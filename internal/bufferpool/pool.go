// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bufferpool provides a bounded pool of fixed-size byte buffers,
// used by the server's GET path so steady-state downloads do not churn
// the allocator on every chunk.
package bufferpool

import "sync/atomic"

// Pool hands out buffers of a fixed size. It pre-allocates poolSize
// buffers; once those are checked out, Acquire allocates overflow buffers
// rather than blocking the caller.
type Pool struct {
	bufferSize int
	slots      chan []byte
	total      int64
}

// New builds a Pool with poolSize buffers of bufferSize bytes each,
// pre-allocated and ready to hand out.
func New(bufferSize, poolSize int) *Pool {
	p := &Pool{
		bufferSize: bufferSize,
		slots:      make(chan []byte, poolSize),
	}
	for i := 0; i < poolSize; i++ {
		p.slots <- make([]byte, bufferSize)
		atomic.AddInt64(&p.total, 1)
	}
	return p
}

// Acquire returns a buffer of exactly BufferSize() bytes. If the pool is
// drained it allocates a new one rather than blocking.
func (p *Pool) Acquire() []byte {
	select {
	case buf := <-p.slots:
		return buf
	default:
		atomic.AddInt64(&p.total, 1)
		return make([]byte, p.bufferSize)
	}
}

// Release returns buf to the pool after zeroing it. Buffers whose length
// does not match the pool's buffer size are discarded rather than
// corrupting the pool's size invariant.
func (p *Pool) Release(buf []byte) {
	if len(buf) != p.bufferSize {
		return
	}
	for i := range buf {
		buf[i] = 0
	}
	select {
	case p.slots <- buf:
	default:
		// Pool already holds its full complement; drop the overflow buffer.
	}
}

// Available reports how many buffers are currently sitting in the pool.
func (p *Pool) Available() int { return len(p.slots) }

// Total reports how many buffers have ever been allocated, including
// overflow allocations beyond the initial pool size.
func (p *Pool) Total() int64 { return atomic.LoadInt64(&p.total) }

// BufferSize returns the fixed size every pooled buffer is cut to.
func (p *Pool) BufferSize() int { return p.bufferSize }
