// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
)

// ValidationError reports malformed or disallowed client input. It is never
// retried and maps to a client error at the transport boundary.
type ValidationError struct {
	// Field is the offending input field, when known.
	Field string

	// Message is the human-readable description of the problem.
	Message string

	// Suggestion, when set, tells the caller how to fix the request
	// (for example "use replace_existing=true").
	Suggestion string
}

// Error returns a string representation of the [ValidationError].
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// UnsupportedFormatError reports a content type or file extension outside the
// configured allow-list.
type UnsupportedFormatError struct {
	// ContentType is the declared or inferred MIME type.
	ContentType string

	// Extension is the file extension of the rejected upload.
	Extension string

	// Supported lists the extensions the deployment accepts.
	Supported []string
}

// Error returns a string representation of the [UnsupportedFormatError].
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: content type %q with extension %q", e.ContentType, e.Extension)
}

// SizeExceededError reports an upload larger than the configured maximum.
type SizeExceededError struct {
	// Size is the size of the rejected upload in bytes.
	Size int64

	// Limit is the configured maximum in bytes.
	Limit int64
}

// Error returns a string representation of the [SizeExceededError].
func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("file size %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}

// ExternalServiceError wraps a failure from one of the external collaborators
// (embedding, vector index, reranker, generative model, blob store).
type ExternalServiceError struct {
	// Service names the collaborator that failed, e.g. "vector_index".
	Service string

	// Op is the operation that failed, e.g. "upsert".
	Op string

	// Err is the underlying transport or service error.
	Err error
}

// Error returns a string representation of the [ExternalServiceError].
func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ConsistencyGapError signals a detected mismatch between blob metadata and
// vector index state, such as a delete that found fewer datapoints than the
// metadata recorded. The primary operation still succeeded; callers surface
// the gap as a warning, not a hard failure.
type ConsistencyGapError struct {
	// Filename is the document identity the gap was detected for.
	Filename string

	// Expected is the number of datapoints the durable record listed.
	Expected int

	// Actual is the number of datapoints the index operation touched.
	Actual int

	// Detail describes the gap for operators.
	Detail string
}

// Error returns a string representation of the [ConsistencyGapError].
func (e *ConsistencyGapError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("consistency gap for %q: %s", e.Filename, e.Detail)
	}
	return fmt.Sprintf("consistency gap for %q: expected %d datapoints, touched %d", e.Filename, e.Expected, e.Actual)
}
