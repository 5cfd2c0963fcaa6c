// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package types provides the shared data model and service contracts for the
// Cymbal RAG API.
//
// The package defines the interfaces every external collaborator is consumed
// through:
//
//   - EmbeddingService: text to fixed-length vector, tagged document or query
//   - VectorIndex: upsert/search/delete over the managed ANN index
//   - Reranker: optional semantic reordering of candidates
//   - GenerativeService: grounded answer and multimodal extraction calls
//   - BlobStore: object storage, the authority on document existence
//   - Extractor: per-format document text extraction
//
// It also defines the error taxonomy shared by the orchestrators:
// ValidationError, UnsupportedFormatError, SizeExceededError,
// ExternalServiceError, and ConsistencyGapError. Orchestration code wraps
// collaborator failures with ExternalServiceError and reserves
// ConsistencyGapError for detected blob-metadata/index mismatches, which are
// warnings rather than failures.
package types
