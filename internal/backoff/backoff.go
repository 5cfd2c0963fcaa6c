// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package backoff provides bounded retry policies for calls to external
// managed services. Idempotent operations (search, read, embed) retry with
// exponential backoff; non-idempotent operations retry only when provably
// safe to repeat, which the caller decides.
package backoff

import (
	"context"
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

// DefaultAttempts bounds how many times an idempotent call is tried.
const DefaultAttempts = 3

// New returns the standard backoff for rate-limited remote services.
func New() gax.Backoff {
	return gax.Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2.0,
	}
}

// Retry runs call up to attempts times, pausing with b between failures.
// It returns the last error, or the context error when the context is
// cancelled during a pause.
func Retry(ctx context.Context, attempts int, b gax.Backoff, call func(context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = call(ctx); err == nil {
			return nil
		}
		if i+1 == attempts {
			break
		}
		if serr := gax.Sleep(ctx, b.Pause()); serr != nil {
			return serr
		}
	}
	return err
}
