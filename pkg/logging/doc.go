// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides context-based structured logging utilities using Go's standard slog package.
//
// Loggers are stored in and retrieved from [context.Context] values so they
// propagate through the ingestion and retrieval pipelines without explicit
// plumbing:
//
//	logger := logging.NewLogger(slog.LevelInfo)
//	ctx = logging.NewContext(ctx, logger)
//
//	logger = logging.FromContext(ctx)
//	logger.Info("document ingested", "filename", name, "chunks", n)
//
// When no logger is found in the context, FromContext returns a default JSON
// logger writing to stdout at INFO level, so logging always works even when
// no explicit logger is configured.
package logging
