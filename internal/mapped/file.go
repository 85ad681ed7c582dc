// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapped owns a single on-disk file and its memory mapping. It
// grows the backing file on demand, serves reads and writes against the
// mapping, and finalizes a stream by truncating to its final size.
package mapped

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/mmap-go"
)

// File is a growable memory-mapped region backed by a single file. All
// operations are guarded by a single mutex; resize unmaps, truncates, and
// remaps in that order. Read copies out of the mapping, so no byte slice
// it returns refers to a mapping that a later resize invalidates.
type File struct {
	mu   sync.Mutex
	path string
	f    *os.File
	m    mmap.MMap
	size int64
}

// New constructs an unopened handle bound to path. No file is created
// until Create or Write is called.
func New(path string) *File {
	return &File{path: path}
}

// Create replaces any existing file at path, creates parent directories,
// truncates to initialSize, and maps it if initialSize > 0.
func (mf *File) Create(initialSize int64) error {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.createLocked(initialSize)
}

func (mf *File) createLocked(initialSize int64) error {
	if err := mf.closeLocked(); err != nil {
		return err
	}

	if dir := filepath.Dir(mf.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(mf.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating cache file %s: %w", mf.path, err)
	}
	mf.f = f

	if err := f.Truncate(initialSize); err != nil {
		return fmt.Errorf("truncating cache file %s: %w", mf.path, err)
	}
	mf.size = initialSize

	if initialSize > 0 {
		m, err := mmap.Map(f, mmap.RDWR, 0)
		if err != nil {
			return fmt.Errorf("mapping cache file %s: %w", mf.path, err)
		}
		mf.m = m
	}
	return nil
}

// Open lazily opens an existing file at path, mapping its current
// contents. It is a no-op if the file is already open.
func (mf *File) Open() error {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.openLocked()
}

func (mf *File) openLocked() error {
	if mf.f != nil {
		return nil
	}

	f, err := os.OpenFile(mf.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening cache file %s: %w", mf.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat cache file %s: %w", mf.path, err)
	}

	mf.f = f
	mf.size = info.Size()
	if mf.size > 0 {
		m, err := mmap.Map(f, mmap.RDWR, 0)
		if err != nil {
			f.Close()
			mf.f = nil
			return fmt.Errorf("mapping cache file %s: %w", mf.path, err)
		}
		mf.m = m
	}
	return nil
}

// Close unmaps and closes the underlying file. Safe to call on an
// unopened or already-closed handle.
func (mf *File) Close() error {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.closeLocked()
}

func (mf *File) closeLocked() error {
	if mf.m != nil {
		if err := mf.m.Unmap(); err != nil {
			return fmt.Errorf("unmapping cache file %s: %w", mf.path, err)
		}
		mf.m = nil
	}
	if mf.f != nil {
		if err := mf.f.Close(); err != nil {
			return fmt.Errorf("closing cache file %s: %w", mf.path, err)
		}
		mf.f = nil
	}
	return nil
}

// Size returns the file's current logical size.
func (mf *File) Size() int64 {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.size
}

// Write writes data at offset, auto-creating the file if unopened and
// auto-growing it if the write would exceed the current size. It returns
// the number of bytes written.
func (mf *File) Write(offset int64, data []byte) (int, error) {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	if mf.f == nil {
		if err := mf.createLocked(offset + int64(len(data))); err != nil {
			return 0, err
		}
	}

	needed := offset + int64(len(data))
	if needed > mf.size {
		if err := mf.resizeLocked(needed); err != nil {
			return 0, err
		}
	}

	n := copy(mf.m[offset:needed], data)
	return n, nil
}

// Read returns up to min(length, size-offset) bytes starting at offset.
// It returns an empty slice once offset reaches or passes the file's
// size, signaling end-of-stream to callers. The file is opened lazily if
// it is not already.
func (mf *File) Read(offset int64, length int64) ([]byte, error) {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	if mf.f == nil {
		if err := mf.openLocked(); err != nil {
			return nil, err
		}
	}

	if offset >= mf.size {
		return []byte{}, nil
	}

	end := offset + length
	if end > mf.size {
		end = mf.size
	}

	out := make([]byte, end-offset)
	copy(out, mf.m[offset:end])
	return out, nil
}

// Resize unmaps, truncates the backing file to newSize, and remaps it. A
// resize to the current size is a no-op.
func (mf *File) Resize(newSize int64) error {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.resizeLocked(newSize)
}

func (mf *File) resizeLocked(newSize int64) error {
	if newSize == mf.size {
		return nil
	}

	if mf.m != nil {
		if err := mf.m.Unmap(); err != nil {
			return fmt.Errorf("unmapping cache file %s: %w", mf.path, err)
		}
		mf.m = nil
	}

	if err := mf.f.Truncate(newSize); err != nil {
		return fmt.Errorf("resizing cache file %s: %w", mf.path, err)
	}
	mf.size = newSize

	if newSize > 0 {
		m, err := mmap.Map(mf.f, mmap.RDWR, 0)
		if err != nil {
			return fmt.Errorf("remapping cache file %s: %w", mf.path, err)
		}
		mf.m = m
	}
	return nil
}

// Finalize resizes the file down to finalSize and flushes the mapping to
// disk. Calling it twice with the same size is a no-op on the second call.
func (mf *File) Finalize(finalSize int64) error {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	if err := mf.resizeLocked(finalSize); err != nil {
		return err
	}
	if mf.m != nil {
		if err := mf.m.Flush(); err != nil {
			return fmt.Errorf("flushing cache file %s: %w", mf.path, err)
		}
	}
	return nil
}

// Path returns the file path this handle is bound to.
func (mf *File) Path() string { return mf.path }
