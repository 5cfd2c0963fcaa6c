// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package reranker rescores retrieval candidates with the Discovery Engine
// semantic ranking API. It is an optional stage: retrieval falls back to
// vector-distance ordering when ranking is disabled or fails.
package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	discoveryengine "cloud.google.com/go/discoveryengine/apiv1"
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// DefaultModel is the semantic ranking model used when none is configured.
const DefaultModel = "semantic-ranker-512@latest"

// Service implements [types.Reranker] on the Discovery Engine rank API.
type Service struct {
	client        *discoveryengine.RankClient
	rankingConfig string
	model         string
	logger        *slog.Logger
}

var _ types.Reranker = (*Service)(nil)

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithModel overrides the ranking model.
func WithModel(model string) ServiceOption {
	return func(s *Service) {
		s.model = model
	}
}

// NewService creates a reranker bound to a ranking config resource name
// ("projects/{p}/locations/{l}/rankingConfigs/default_ranking_config").
func NewService(ctx context.Context, rankingConfig string, opts ...ServiceOption) (*Service, error) {
	if rankingConfig == "" {
		return nil, fmt.Errorf("ranking config resource name is required")
	}

	s := &Service{
		rankingConfig: rankingConfig,
		model:         DefaultModel,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	client, err := discoveryengine.NewRankClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create rank client: %w", err)
	}
	s.client = client

	return s, nil
}

// Close releases the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}

// Rank scores candidates against query and returns them highest score first.
func (s *Service) Rank(ctx context.Context, query string, candidates []*types.RankCandidate) ([]*types.RankedRecord, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	records := make([]*discoveryenginepb.RankingRecord, len(candidates))
	for i, c := range candidates {
		records[i] = &discoveryenginepb.RankingRecord{
			Id:      c.ID,
			Title:   c.Title,
			Content: c.Content,
		}
	}

	resp, err := s.client.Rank(ctx, &discoveryenginepb.RankRequest{
		RankingConfig: s.rankingConfig,
		Model:         s.model,
		Query:         query,
		Records:       records,
		TopN:          int32(len(records)),
	})
	if err != nil {
		return nil, &types.ExternalServiceError{Service: "ranking", Op: "rank", Err: err}
	}

	ranked := make([]*types.RankedRecord, 0, len(resp.GetRecords()))
	for _, r := range resp.GetRecords() {
		ranked = append(ranked, &types.RankedRecord{
			ID:    r.GetId(),
			Score: float64(r.GetScore()),
		})
	}
	// The API returns records in rank order already; sorting keeps the
	// contract independent of that behavior.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	s.logger.DebugContext(ctx, "reranked candidates",
		slog.Int("count", len(ranked)),
		slog.String("model", s.model),
	)
	return ranked, nil
}
