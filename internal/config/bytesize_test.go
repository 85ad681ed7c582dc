// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import "testing"

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1b", 1},
		{"64kb", 64 * 1024},
		{"256mb", 256 * 1024 * 1024},
		{"1gb", 1024 * 1024 * 1024},
		{"100", 100},
		{"  64KB  ", 64 * 1024},
	}
	for _, c := range cases {
		got, err := ParseByteSize(c.in)
		if err != nil {
			t.Fatalf("ParseByteSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseByteSizeInvalid(t *testing.T) {
	cases := []string{"", "kb", "xmb", "-"}
	for _, in := range cases {
		if _, err := ParseByteSize(in); err == nil {
			t.Errorf("ParseByteSize(%q): expected error, got nil", in)
		}
	}
}
