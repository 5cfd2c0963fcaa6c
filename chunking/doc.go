// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunking splits extracted document text into bounded, overlapping
// segments for embedding.
//
// The main [Chunker] slides a fixed-size window across the text and, before
// each cut, searches backward up to 100 characters for a sentence ending so
// chunks do not sever sentences mid-word. Consecutive chunks share a
// configured overlap of context. [MergeToCap] bounds the number of chunks a
// single document may contribute to the vector index by greedily merging the
// smallest adjacent pairs.
//
// [Paragraphs] and [Lines] are simpler strategies used by extractors whose
// content has natural unit boundaries.
package chunking
