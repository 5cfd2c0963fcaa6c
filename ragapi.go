// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package ragapi is a retrieval-augmented generation backend for Google
// Cloud: documents are extracted, chunked, embedded, and stored in Vertex
// AI Vector Search, and natural-language queries are answered with Gemini
// grounded on the retrieved chunks.
package ragapi

// Version is the version of the Cymbal RAG API.
var Version = "v0.1.0"
