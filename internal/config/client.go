// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig tunes the upload/download engines. All fields have sane
// defaults; the file is optional — cmd/streamcache-client works with none
// of it set, driven purely by its -input/-server/-output flags.
type ClientConfig struct {
	ChunkSize       string        `yaml:"chunk_size"` // default: "64kb"
	ChunkSizeRaw    int64         `yaml:"-"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`  // default: 5s
	UploadDelay     time.Duration `yaml:"upload_delay"`      // default: 10ms
	InterPhasePause time.Duration `yaml:"inter_phase_pause"` // default: 500ms
	RequestTimeout  time.Duration `yaml:"request_timeout"`   // default: 5s
	MaxRetries      int           `yaml:"max_retries"`       // default: 3
	RetryBackoff    time.Duration `yaml:"retry_backoff"`     // default: 100ms
	Logging         LoggingInfo   `yaml:"logging"`
}

// DefaultClientConfig returns a ClientConfig with every field set to the
// values spec.md's Upload/Download Engine sections name as defaults.
func DefaultClientConfig() *ClientConfig {
	c := &ClientConfig{
		ChunkSize:       "64kb",
		ResponseTimeout: 5 * time.Second,
		UploadDelay:     10 * time.Millisecond,
		InterPhasePause: 500 * time.Millisecond,
		RequestTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    100 * time.Millisecond,
		Logging:         LoggingInfo{Level: "info", Format: "json"},
	}
	c.ChunkSizeRaw = 64 * 1024
	return c
}

// LoadClientConfig reads and validates an optional client configuration
// file, layering it over DefaultClientConfig.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}
	return cfg, nil
}

func (c *ClientConfig) validate() error {
	if c.ChunkSize == "" {
		c.ChunkSize = "64kb"
	}
	size, err := ParseByteSize(c.ChunkSize)
	if err != nil {
		return fmt.Errorf("chunk_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("chunk_size must be > 0, got %s", c.ChunkSize)
	}
	c.ChunkSizeRaw = size

	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 5 * time.Second
	}
	if c.UploadDelay < 0 {
		c.UploadDelay = 10 * time.Millisecond
	}
	if c.InterPhasePause < 0 {
		c.InterPhasePause = 500 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}
