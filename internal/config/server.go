// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads and validates the YAML configuration for the
// streamcache server and client binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the full configuration for the streamcache server.
type ServerConfig struct {
	Listen  ListenInfo  `yaml:"listen"`
	Cache   CacheInfo   `yaml:"cache"`
	Buffers BufferInfo  `yaml:"buffers"`
	Limits  LimitsInfo  `yaml:"limits"`
	Cleanup CleanupInfo `yaml:"cleanup"`
	Logging LoggingInfo `yaml:"logging"`
	Verbose bool        `yaml:"verbose"`
}

// ListenInfo contains the address and endpoint path the server accepts
// connections on.
type ListenInfo struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // required
	Path string `yaml:"path"` // default: "/stream"
}

// Addr returns the host:port pair suitable for net.Listen.
func (l ListenInfo) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// CacheInfo configures where stream cache files are stored on disk.
type CacheInfo struct {
	Directory string `yaml:"directory"` // required
}

// BufferInfo configures the shared buffer pool.
type BufferInfo struct {
	Size     string `yaml:"size"` // default: "64kb"
	SizeRaw  int64  `yaml:"-"`
	PoolSize int    `yaml:"pool_size"` // default: 32
}

// LimitsInfo configures connection-level limits.
type LimitsInfo struct {
	MaxMessageSize    string        `yaml:"max_message_size"` // default: "100mb"
	MaxMessageSizeRaw int64         `yaml:"-"`
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"` // default: 30s
	CloseTimeout      time.Duration `yaml:"close_timeout"`       // default: 5s
}

// CleanupInfo configures the periodic sweep of stale streams.
type CleanupInfo struct {
	Schedule string        `yaml:"schedule"` // cron expression, default: "@every 5m"
	MaxAge   time.Duration `yaml:"max_age"`  // default: 1h
}

// LoggingInfo contains logging configuration.
type LoggingInfo struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // default: "json"
	File   string `yaml:"file"`   // default: "" (stdout only)
}

// LoadServerConfig reads and validates the server configuration file.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating server config: %w", err)
	}

	return &cfg, nil
}

// Validate re-applies defaulting and validation, for callers (such as
// cmd/streamcache-server) that mutate a loaded config with flag
// overrides afterward.
func (c *ServerConfig) Validate() error {
	return c.validate()
}

func (c *ServerConfig) validate() error {
	if c.Listen.Port == 0 {
		return fmt.Errorf("listen.port is required")
	}
	if c.Listen.Host == "" {
		c.Listen.Host = "0.0.0.0"
	}
	if c.Listen.Path == "" {
		c.Listen.Path = "/stream"
	}

	if c.Cache.Directory == "" {
		return fmt.Errorf("cache.directory is required")
	}

	if c.Buffers.Size == "" {
		c.Buffers.Size = "64kb"
	}
	size, err := ParseByteSize(c.Buffers.Size)
	if err != nil {
		return fmt.Errorf("buffers.size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("buffers.size must be > 0, got %s", c.Buffers.Size)
	}
	c.Buffers.SizeRaw = size
	if c.Buffers.PoolSize <= 0 {
		c.Buffers.PoolSize = 32
	}

	if c.Limits.MaxMessageSize == "" {
		c.Limits.MaxMessageSize = "100mb"
	}
	maxMsg, err := ParseByteSize(c.Limits.MaxMessageSize)
	if err != nil {
		return fmt.Errorf("limits.max_message_size: %w", err)
	}
	c.Limits.MaxMessageSizeRaw = maxMsg
	if c.Limits.KeepAliveInterval <= 0 {
		c.Limits.KeepAliveInterval = 30 * time.Second
	}
	if c.Limits.CloseTimeout <= 0 {
		c.Limits.CloseTimeout = 5 * time.Second
	}

	if c.Cleanup.Schedule == "" {
		c.Cleanup.Schedule = "@every 5m"
	}
	if c.Cleanup.MaxAge <= 0 {
		c.Cleanup.MaxAge = 1 * time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}
