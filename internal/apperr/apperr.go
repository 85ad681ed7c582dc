// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package apperr defines the error taxonomy shared by the stream store,
// session protocol and client engines: every failure that crosses a
// component boundary is classified into one of a small set of kinds so
// callers can decide whether to retry, surface an ERROR frame, or abort.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for the purposes of retry and reporting policy.
type Kind string

const (
	KindConnection Kind = "CONNECTION"
	KindFileIO     Kind = "FILE_IO"
	KindProtocol   Kind = "PROTOCOL"
	KindTimeout    Kind = "TIMEOUT"
	KindValidation Kind = "VALIDATION"
)

// Error is the concrete error type carried across the system. It wraps an
// underlying cause with a kind, a free-form context string describing where
// the failure happened, a timestamp, and a hint about whether retrying the
// operation is expected to help.
type Error struct {
	Kind        Kind
	Context     string
	Err         error
	At          time.Time
	Recoverable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind, wrapping err with context.
func New(kind Kind, context string, err error, recoverable bool) *Error {
	return &Error{
		Kind:        kind,
		Context:     context,
		Err:         err,
		At:          time.Now(),
		Recoverable: recoverable,
	}
}

// Connection wraps a transport failure. Recoverable — the caller may retry
// on a fresh connection.
func Connection(context string, err error) *Error {
	return New(KindConnection, context, err, true)
}

// FileIO wraps an on-disk I/O failure. Not recoverable by simple retry —
// the stream that hit it is marked ERROR by the store.
func FileIO(context string, err error) *Error {
	return New(KindFileIO, context, err, false)
}

// Protocol wraps a malformed or out-of-contract wire exchange. Not
// recoverable without the peer changing behavior.
func Protocol(context string, err error) *Error {
	return New(KindProtocol, context, err, false)
}

// Timeout wraps an expired deadline. Recoverable — the caller may retry.
func Timeout(context string, err error) *Error {
	return New(KindTimeout, context, err, true)
}

// Validation wraps a rejected input. Not recoverable without the caller
// fixing the input.
func Validation(context string, err error) *Error {
	return New(KindValidation, context, err, false)
}

// As reports whether err (or one it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	e, ok := As(err)
	if !ok {
		return "", false
	}
	return e.Kind, true
}

// IsRecoverable reports whether err is an *Error marked recoverable.
// Errors that aren't *Error at all are treated as non-recoverable.
func IsRecoverable(err error) bool {
	e, ok := As(err)
	return ok && e.Recoverable
}

// RetryDelay returns the exponential backoff for the given 1-based retry
// attempt: 2^(attempt-1) seconds. Callers that need a fixed spacing (the
// per-range download retry) skip this and supply their own interval.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}
