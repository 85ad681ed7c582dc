// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := FileIO("writing chunk", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}

	got, ok := As(err)
	if !ok {
		t.Fatalf("expected As to recognize *Error")
	}
	if got.Kind != KindFileIO {
		t.Errorf("kind: want %s, got %s", KindFileIO, got.Kind)
	}
	if got.Recoverable {
		t.Errorf("FILE_IO errors should not be recoverable")
	}
}

func TestKindOf(t *testing.T) {
	err := Timeout("waiting for STARTED", errors.New("deadline exceeded"))
	kind, ok := KindOf(err)
	if !ok || kind != KindTimeout {
		t.Fatalf("expected KindTimeout, got %v ok=%v", kind, ok)
	}

	plain := errors.New("not wrapped")
	if _, ok := KindOf(plain); ok {
		t.Errorf("expected ok=false for a plain error")
	}
}

func TestIsRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Connection("dial", errors.New("refused")), true},
		{Timeout("get", errors.New("expired")), true},
		{FileIO("write", errors.New("eio")), false},
		{Protocol("decode", errors.New("bad json")), false},
		{Validation("streamId", errors.New("empty")), false},
		{errors.New("unrelated"), false},
	}
	for _, c := range cases {
		if got := IsRecoverable(c.err); got != c.want {
			t.Errorf("IsRecoverable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRetryDelayDoublesPerAttempt(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{0, 1 * time.Second},
	}
	for _, c := range cases {
		if got := RetryDelay(c.attempt); got != c.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Protocol("unknown type", fmt.Errorf("type %q", "FOO"))
	want := `PROTOCOL: unknown type: type "FOO"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
