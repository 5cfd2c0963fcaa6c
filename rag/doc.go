// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package rag orchestrates the ingestion and retrieval pipelines.
//
// Ingestion runs extraction, chunking, embedding, index upsert, and blob
// commit strictly in that order; the blob commit carries the datapoint-ID
// record used for later deletes, so it happens only after the vectors
// exist. Retrieval runs query embedding, a widened candidate search,
// optional reranking, threshold filtering, per-file grouping, and grounded
// answer generation. The blob store owns document existence; the vector
// index is derived state.
package rag
