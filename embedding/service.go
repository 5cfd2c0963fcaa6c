// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package embedding produces dense vectors for document chunks and search
// queries using Vertex AI text embedding models.
//
// Documents and queries are embedded asymmetrically: chunks use the
// RETRIEVAL_DOCUMENT task type (optionally with a title hint), queries use
// RETRIEVAL_QUERY. Mixing the two degrades retrieval quality, so the task
// type is an explicit argument rather than a service default.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/isururajakaruna/cymbal-rag-api/internal/backoff"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// Service embeds text with a Gemini embedding model.
type Service struct {
	client     *genai.Client
	model      string
	dimensions int
	logger     *slog.Logger
}

var _ types.EmbeddingService = (*Service)(nil)

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDimensions overrides the expected vector dimensionality.
func WithDimensions(d int) ServiceOption {
	return func(s *Service) {
		s.dimensions = d
	}
}

// NewService creates an embedding service backed by Vertex AI.
func NewService(ctx context.Context, projectID, location, model string, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		model:      model,
		dimensions: 768,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	s.client = client

	return s, nil
}

// Dimensions reports the vector size this service produces.
func (s *Service) Dimensions() int {
	return s.dimensions
}

// Embed returns the vector for a single text. The title hint is only sent
// for document embeddings; the API rejects it for query task types.
func (s *Service) Embed(ctx context.Context, text string, task types.EmbeddingTaskType, title string) ([]float32, error) {
	vectors, err := s.embed(ctx, []string{text}, task, title)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in a single request, preserving input order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, task types.EmbeddingTaskType, title string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.embed(ctx, texts, task, title)
}

func (s *Service) embed(ctx context.Context, texts []string, task types.EmbeddingTaskType, title string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(s.dimensions)
	cfg := &genai.EmbedContentConfig{
		TaskType:             string(task),
		OutputDimensionality: &dim,
	}
	if task == types.EmbeddingTaskDocument && title != "" {
		cfg.Title = title
	}

	var resp *genai.EmbedContentResponse
	err := backoff.Retry(ctx, backoff.DefaultAttempts, backoff.New(), func(ctx context.Context) error {
		var err error
		resp, err = s.client.Models.EmbedContent(ctx, s.model, contents, cfg)
		return err
	})
	if err != nil {
		return nil, &types.ExternalServiceError{Service: "embedding", Op: "embed", Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors, want %d", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e.Values) != s.dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(e.Values), s.dimensions)
		}
		vectors[i] = e.Values
	}

	s.logger.DebugContext(ctx, "embedded texts",
		slog.Int("count", len(texts)),
		slog.String("task_type", string(task)),
	)
	return vectors, nil
}
