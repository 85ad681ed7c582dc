// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/logging"
	"github.com/arcflow-dev/streamcache/internal/server"
)

func main() {
	configPath := flag.String("config", "/etc/streamcache/server.yaml", "path to server config file")
	host := flag.String("host", "", "override listen.host")
	port := flag.Int("port", 0, "override listen.port")
	path := flag.String("path", "", "override listen.path")
	cacheDir := flag.String("cache-dir", "", "override cache.directory")
	bufferSize := flag.String("buffer-size", "", "override buffers.size")
	poolSize := flag.Int("pool-size", 0, "override buffers.pool_size")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	applyServerOverrides(cfg, *host, *port, *path, *cacheDir, *bufferSize, *poolSize, *verbose)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error validating config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func applyServerOverrides(cfg *config.ServerConfig, host string, port int, path, cacheDir, bufferSize string, poolSize int, verbose bool) {
	if host != "" {
		cfg.Listen.Host = host
	}
	if port != 0 {
		cfg.Listen.Port = port
	}
	if path != "" {
		cfg.Listen.Path = path
	}
	if cacheDir != "" {
		cfg.Cache.Directory = cacheDir
	}
	if bufferSize != "" {
		cfg.Buffers.Size = bufferSize
	}
	if poolSize != 0 {
		cfg.Buffers.PoolSize = poolSize
	}
	if verbose {
		cfg.Verbose = true
		cfg.Logging.Level = "debug"
	}
}
