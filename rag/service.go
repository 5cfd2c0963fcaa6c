// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"log/slog"

	"github.com/isururajakaruna/cymbal-rag-api/config"
	"github.com/isururajakaruna/cymbal-rag-api/pkg/logging"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// Service orchestrates the ingestion and retrieval pipelines over the
// external collaborators. It owns no persistent state; the blob store is
// the source of truth for document existence and the vector index is
// derived from it.
type Service struct {
	embedder   types.EmbeddingService
	index      types.VectorIndex
	generative types.GenerativeService
	store      types.BlobStore
	extractor  types.Extractor
	reranker   types.Reranker // nil when ranking is disabled

	cfg    *config.RAGConfig
	logger *slog.Logger
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithReranker enables semantic reranking of retrieval candidates. Without
// it retrieval orders results by raw index similarity.
func WithReranker(r types.Reranker) ServiceOption {
	return func(s *Service) {
		s.reranker = r
	}
}

// WithConfig overrides the pipeline tuning parameters.
func WithConfig(cfg *config.RAGConfig) ServiceOption {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// NewService creates the pipeline orchestrator from its collaborators.
func NewService(embedder types.EmbeddingService, index types.VectorIndex, generative types.GenerativeService, store types.BlobStore, extractor types.Extractor, opts ...ServiceOption) *Service {
	s := &Service{
		embedder:   embedder,
		index:      index,
		generative: generative,
		store:      store,
		extractor:  extractor,
		cfg:        config.DefaultRAGConfig(),
		logger:     logging.NewLogger(slog.LevelInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
