// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

func fastBackoff() gax.Backoff {
	return gax.Backoff{
		Initial:    time.Microsecond,
		Max:        time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, fastBackoff(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("persistent")
	attempts := 0
	err := Retry(context.Background(), 3, fastBackoff(), func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Retry() error = %v, want the last call error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_FirstTrySuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, fastBackoff(), func(context.Context) error {
		attempts++
		return nil
	})
	if err != nil || attempts != 1 {
		t.Fatalf("Retry() = %v after %d attempts, want nil after 1", err, attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, fastBackoff(), func(context.Context) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want context.Canceled", err)
	}
}

func TestRetry_DefaultAttempts(t *testing.T) {
	attempts := 0
	_ = Retry(context.Background(), 0, fastBackoff(), func(context.Context) error {
		attempts++
		return errors.New("always")
	})
	if attempts != DefaultAttempts {
		t.Errorf("attempts = %d, want %d", attempts, DefaultAttempts)
	}
}
