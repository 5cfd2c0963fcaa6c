// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package generative wraps the Gemini generative model behind a small text
// in, text out surface. The retrieval pipeline uses it for grounded answer
// synthesis; ingestion uses it for document analysis, title generation, and
// upload quality scoring.
package generative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/isururajakaruna/cymbal-rag-api/internal/backoff"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// Service generates text with a Gemini model on Vertex AI.
type Service struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var _ types.GenerativeService = (*Service)(nil)

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a generative service backed by Vertex AI.
func NewService(ctx context.Context, projectID, location, model string, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		model:  model,
		logger: slog.Default(),
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

// Generate returns the model's text response for a prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	return s.generate(ctx, genai.Text(prompt))
}

// GenerateWithImage returns the model's text response for a prompt paired
// with an inline image.
func (s *Service) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}, genai.RoleUser)
	return s.generate(ctx, []*genai.Content{content})
}

func (s *Service) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	var resp *genai.GenerateContentResponse
	err := backoff.Retry(ctx, backoff.DefaultAttempts, backoff.New(), func(ctx context.Context) error {
		var err error
		resp, err = s.client.Models.GenerateContent(ctx, s.model, contents, nil)
		return err
	})
	if err != nil {
		return "", &types.ExternalServiceError{Service: "generative", Op: "generate", Err: err}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("model %s returned an empty response", s.model)
	}

	s.logger.DebugContext(ctx, "generated text",
		slog.String("model", s.model),
		slog.Int("response_length", len(text)),
	)
	return text, nil
}
