// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultPrefix is used by GenerateID and GenerateShortID when no custom
// prefix is supplied.
const DefaultPrefix = "stream"

var (
	longIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	shortIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+-[0-9a-f]{8}$`)
)

// GenerateID returns a canonical long-form id: "<prefix>-<uuid>".
func GenerateID(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "-" + uuid.NewString()
}

// GenerateShortID returns a short-form id: "<prefix>-<8 hex chars>",
// derived from the leading bytes of a freshly generated UUID.
func GenerateShortID(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	full := uuid.New()
	hex := strings.ReplaceAll(full.String(), "-", "")
	return prefix + "-" + hex[:8]
}

// IsValidLongID reports whether id matches the canonical long-form
// grammar "<prefix>-<uuid>".
func IsValidLongID(id string) bool {
	return longIDPattern.MatchString(id)
}

// IsValidShortID reports whether id matches the short-form grammar
// "<prefix>-<8 hex chars>".
func IsValidShortID(id string) bool {
	return shortIDPattern.MatchString(id)
}

// IsValidID reports whether id is either a valid long or short form.
func IsValidID(id string) bool {
	return IsValidLongID(id) || IsValidShortID(id)
}
