// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"
)

// EmbeddingTaskType tags an embedding call with the asymmetric task it serves.
// Document and query embeddings are optimized differently by the model;
// mixing the tags silently degrades retrieval quality.
type EmbeddingTaskType string

const (
	// EmbeddingTaskDocument is used for every chunk embedded at ingestion time.
	EmbeddingTaskDocument EmbeddingTaskType = "RETRIEVAL_DOCUMENT"

	// EmbeddingTaskQuery is used for the query text at retrieval time.
	EmbeddingTaskQuery EmbeddingTaskType = "RETRIEVAL_QUERY"
)

// EmbeddingService produces fixed-dimensionality vectors for text.
type EmbeddingService interface {
	// Embed returns the embedding vector for text. title is an optional
	// hint applied to document embeddings only.
	Embed(ctx context.Context, text string, task EmbeddingTaskType, title string) ([]float32, error)

	// EmbedBatch embeds texts in order, batching where the backing service
	// allows. The result has one vector per input text.
	EmbedBatch(ctx context.Context, texts []string, task EmbeddingTaskType, title string) ([][]float32, error)

	// Dimensions returns the fixed vector dimensionality, or 0 when the
	// deployment does not enforce one.
	Dimensions() int
}

// Datapoint pairs a chunk ID with its embedding vector and facet map for
// storage in the vector index. Facets carry denormalized chunk metadata
// because the index has no join capability: everything needed to render a
// result must live here.
type Datapoint struct {
	// ID is the chunk ID.
	ID string `json:"id"`

	// Vector is the embedding.
	Vector []float32 `json:"vector"`

	// Facets are filterable key to allow-list attributes (filename, tags,
	// chunk index, title, content echo).
	Facets map[string][]string `json:"facets,omitempty"`
}

// Neighbor is one ranked hit from a vector index search.
type Neighbor struct {
	// ID is the matched datapoint ID.
	ID string `json:"id"`

	// SimilarityScore is the match score, higher is better.
	SimilarityScore float64 `json:"similarity_score"`

	// Facets are the matched datapoint's stored facets.
	Facets map[string][]string `json:"facets,omitempty"`
}

// VectorIndex wraps the external approximate nearest-neighbor index.
// Upsert is idempotent per ID.
type VectorIndex interface {
	// Upsert writes datapoints, replacing any existing datapoint with the
	// same ID.
	Upsert(ctx context.Context, datapoints []*Datapoint) error

	// Search returns up to k neighbors of vector ordered by descending
	// similarity. facets, when non-nil, is pushed down as a server-side
	// restrict.
	Search(ctx context.Context, vector []float32, k int, facets map[string][]string) ([]*Neighbor, error)

	// Delete removes datapoints by ID. It is the preferred deletion path.
	Delete(ctx context.Context, ids []string) error

	// DeleteByFacets removes datapoints whose facets match the filter by
	// probing the index with a bounded candidate search. It returns the
	// number of datapoints removed. This path is best-effort and may leave
	// orphaned vectors; a returned [*ConsistencyGapError] means the probe
	// bound was reached and the sweep may be incomplete.
	DeleteByFacets(ctx context.Context, facets map[string][]string) (int, error)
}

// RankCandidate is one candidate submitted to the reranker.
type RankCandidate struct {
	// ID identifies the candidate within this rank call.
	ID string `json:"id"`

	// Title is an optional document title hint.
	Title string `json:"title,omitempty"`

	// Content is the candidate text.
	Content string `json:"content"`
}

// RankedRecord is the reranker's verdict for one candidate.
type RankedRecord struct {
	// ID is the candidate ID from the request.
	ID string `json:"id"`

	// Score is the reranker's relevance score, higher is better.
	Score float64 `json:"score"`
}

// Reranker reorders a candidate set using a relevance model distinct from
// the initial similarity search. Implementations are optional collaborators;
// retrieval must degrade to distance ordering when the reranker is absent
// or failing.
type Reranker interface {
	// Rank scores candidates against query and returns them in descending
	// score order.
	Rank(ctx context.Context, query string, candidates []*RankCandidate) ([]*RankedRecord, error)
}

// GenerativeService wraps the external generative language model.
type GenerativeService interface {
	// Generate returns free text for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithImage returns free text for a prompt grounded on an
	// inline image.
	GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	// Path is the blob name within the bucket.
	Path string `json:"path"`

	// Size is the stored size in bytes.
	Size int64 `json:"size"`

	// ContentType is the stored MIME type.
	ContentType string `json:"content_type,omitempty"`

	// Created and Updated are the blob's lifecycle timestamps.
	Created time.Time `json:"created,omitzero"`
	Updated time.Time `json:"updated,omitzero"`

	// Metadata is the blob's custom metadata map.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BlobStore wraps the external object store. It is the source of truth for
// document existence and carries the durable datapoint-ID record in blob
// metadata.
type BlobStore interface {
	// Put writes data under path with the given content type and metadata,
	// overwriting any existing blob.
	Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error

	// Get reads the blob's bytes.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether a blob is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the blob at path. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Stat returns the blob's attributes and metadata.
	Stat(ctx context.Context, path string) (*BlobInfo, error)

	// List returns attributes for every blob under prefix.
	List(ctx context.Context, prefix string) ([]*BlobInfo, error)
}

// Extractor produces raw text sections from uploaded bytes. Each supported
// format has an adapter behind this interface.
type Extractor interface {
	// Extract converts the file's bytes into ordered text sections.
	Extract(ctx context.Context, data []byte, filename, contentType string) ([]*ExtractedSection, error)
}
