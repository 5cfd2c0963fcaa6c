// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
)

// RAGConfig holds the pipeline tuning parameters. Zero values are replaced
// with the deployment defaults by [DefaultRAGConfig] and [LoadRAGConfig].
type RAGConfig struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `json:"chunk_size"`

	// ChunkOverlap is the number of characters consecutive chunks share.
	// Must be smaller than ChunkSize.
	ChunkOverlap int `json:"chunk_overlap"`

	// MaxChunksPerDocument caps index growth per document; excess chunks
	// are merged greedily.
	MaxChunksPerDocument int `json:"max_chunks_per_document"`

	// SimilarityThreshold is the default lower bound on result scores.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// MaxResults is the default top-k for retrieval.
	MaxResults int `json:"max_results"`

	// MinQualityScore is the 1-10 content quality bar for the validation
	// gate.
	MinQualityScore int `json:"min_quality_score"`

	// MaxFileSizeMB is the upload size cap.
	MaxFileSizeMB int `json:"max_file_size_mb"`

	// DeleteProbeCandidates bounds the facet-filtered delete probe. When a
	// probe returns this many candidates the sweep may be incomplete and a
	// warning is surfaced.
	DeleteProbeCandidates int `json:"delete_probe_candidates"`
}

// DefaultRAGConfig returns the deployment defaults.
func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		ChunkSize:             1000,
		ChunkOverlap:          200,
		MaxChunksPerDocument:  50,
		SimilarityThreshold:   0.5,
		MaxResults:            10,
		MinQualityScore:       5,
		MaxFileSizeMB:         10,
		DeleteProbeCandidates: 1000,
	}
}

// LoadRAGConfig reads a RAGConfig from a JSON file, filling unset fields
// with defaults. A missing path returns the defaults.
func LoadRAGConfig(path string) (*RAGConfig, error) {
	cfg := DefaultRAGConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read rag config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse rag config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would break the pipeline, most
// importantly an overlap at or above the chunk size, which would loop the
// chunker forever.
func (c *RAGConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.MaxChunksPerDocument <= 0 {
		return fmt.Errorf("max_chunks_per_document must be positive, got %d", c.MaxChunksPerDocument)
	}
	if c.DeleteProbeCandidates <= 0 {
		return fmt.Errorf("delete_probe_candidates must be positive, got %d", c.DeleteProbeCandidates)
	}
	return nil
}
