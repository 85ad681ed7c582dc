// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/arcflow-dev/streamcache/internal/bufferpool"
	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/store"
	"github.com/arcflow-dev/streamcache/internal/transport"
)

// Run builds the stream manager, starts its cleanup schedule, and blocks
// serving connections until ctx is canceled.
func Run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Listen.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Listen.Addr(), err)
	}
	defer ln.Close()

	logger.Info("server listening", "address", cfg.Listen.Addr(), "path", cfg.Listen.Path)
	return RunWithListener(ctx, ln, cfg, logger)
}

// RunWithListener runs the server against an already-open listener,
// primarily so tests can bind to an ephemeral port.
func RunWithListener(ctx context.Context, ln net.Listener, cfg *config.ServerConfig, logger *slog.Logger) error {
	manager, err := store.NewManager(cfg.Cache.Directory, logger)
	if err != nil {
		return fmt.Errorf("initializing stream manager: %w", err)
	}

	if err := manager.StartCleanupSchedule(cfg.Cleanup.Schedule, cfg.Cleanup.MaxAge); err != nil {
		return fmt.Errorf("starting cleanup schedule: %w", err)
	}
	defer manager.StopCleanupSchedule()

	pool := bufferpool.New(int(cfg.Buffers.SizeRaw), cfg.Buffers.PoolSize)
	handler := NewHandler(manager, pool, logger)
	upgrader := transport.NewUpgrader(cfg.Limits.MaxMessageSizeRaw)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Listen.Path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r)
		if err != nil {
			logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		handler.HandleConnection(ctx, conn)
	})

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       cfg.Limits.KeepAliveInterval,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Limits.CloseTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown error", "error", err)
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	}
}
