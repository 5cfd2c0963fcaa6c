// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	logger := slog.Default()
	ctx := NewContext(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Errorf("FromContext() = %p, want the logger carried by the context", got)
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext() = nil for bare context, want a fallback logger")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	logger := NewLogger(slog.LevelWarn)

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled on a warn-level logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled on a warn-level logger")
	}
}
