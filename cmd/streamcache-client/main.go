// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command streamcache-client drives a deterministic upload -> download ->
// verify cycle against a streamcache server: it uploads a local file,
// downloads the resulting stream back to a second path, and checks the
// two are byte-identical via a SHA-256 checksum.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arcflow-dev/streamcache/internal/client"
	"github.com/arcflow-dev/streamcache/internal/config"
	"github.com/arcflow-dev/streamcache/internal/logging"
)

func main() {
	inputPath := flag.String("input", "", "path to the file to upload (required)")
	serverURI := flag.String("server", "", "server URI, e.g. ws://host:port/stream (required)")
	outputPath := flag.String("output", "", "path to write the downloaded file (default: auto-generated)")
	configPath := flag.String("config", "", "path to optional client config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *inputPath == "" || *serverURI == "" {
		fmt.Fprintln(os.Stderr, "usage: streamcache-client -input <file> -server <uri> [-output <file>]")
		os.Exit(1)
	}

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	out := *outputPath
	if out == "" {
		out = defaultOutputPath(*inputPath)
	}

	if err := run(context.Background(), cfg, logger, *serverURI, *inputPath, out); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger, serverURI, inputPath, outputPath string) error {
	conn, err := client.Connect(ctx, serverURI)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", serverURI, err)
	}
	defer conn.Close()

	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", inputPath, err)
	}

	upProgress := client.NewTracker(inputInfo.Size())
	uploadResult, err := client.Upload(ctx, conn, cfg, logger, inputPath, upProgress)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", inputPath, err)
	}
	logger.Info("upload complete", "streamId", uploadResult.StreamID, "progress", upProgress.String())

	downProgress := client.NewTracker(uploadResult.BytesSent)
	downloadResult, err := client.Download(ctx, conn, cfg, logger, uploadResult.StreamID, outputPath, downProgress)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", uploadResult.StreamID, err)
	}
	logger.Info("download complete", "streamId", uploadResult.StreamID, "bytes", downloadResult.BytesReceived, "chunks", downloadResult.ChunksReceived, "progress", downProgress.String())

	match, err := filesMatch(inputPath, outputPath)
	if err != nil {
		return fmt.Errorf("verifying checksum: %w", err)
	}
	if !match {
		return fmt.Errorf("checksum mismatch between %s and %s", inputPath, outputPath)
	}

	logger.Info("checksum verified", "input", inputPath, "output", outputPath)
	return nil
}

// filesMatch reports whether the two files have identical SHA-256
// checksums. Checksum verification is a test/CLI concern, not part of the
// client library itself.
func filesMatch(a, b string) (bool, error) {
	sumA, err := sha256Of(a)
	if err != nil {
		return false, err
	}
	sumB, err := sha256Of(b)
	if err != nil {
		return false, err
	}
	return hex.EncodeToString(sumA) == hex.EncodeToString(sumB), nil
}

func sha256Of(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// defaultOutputPath mirrors the input file's base name with a timestamp
// suffix, written alongside the input when no -output flag is given.
func defaultOutputPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	ext := filepath.Ext(inputPath)
	base := filepath.Base(inputPath)
	base = base[:len(base)-len(ext)]
	stamp := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s.download-%s%s", base, stamp, ext))
}
