// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package vectorindex stores and searches chunk embeddings in Vertex AI
// Vector Search.
//
// Each datapoint carries the chunk's metadata as namespace restricts, so a
// search result is renderable without a secondary lookup. Deletion prefers
// explicit datapoint IDs recorded at ingestion time; the facet-probe sweep
// exists only for blobs whose metadata predates ID tracking.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1beta1"
	"cloud.google.com/go/aiplatform/apiv1beta1/aiplatformpb"
	"cloud.google.com/go/auth/credentials"
	"google.golang.org/api/option"

	"github.com/isururajakaruna/cymbal-rag-api/internal/backoff"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// Service implements [types.VectorIndex] on Vertex AI Vector Search.
type Service struct {
	indexClient *aiplatform.IndexClient
	matchClient *aiplatform.MatchClient

	indexName       string // projects/{p}/locations/{l}/indexes/{id}
	endpointName    string // projects/{p}/locations/{l}/indexEndpoints/{id}
	deployedIndexID string

	probeCandidates int
	logger          *slog.Logger
}

var _ types.VectorIndex = (*Service)(nil)

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProbeCandidates bounds how many candidates a facet-probe deletion
// sweep inspects.
func WithProbeCandidates(n int) ServiceOption {
	return func(s *Service) {
		s.probeCandidates = n
	}
}

// NewService creates a Vector Search service.
//
// apiEndpoint is the index endpoint's public match domain (for example
// "1234.us-central1-123.vdb.vertexai.goog"); the control-plane index client
// uses the regional endpoint derived from location.
func NewService(ctx context.Context, projectID, location, indexID, indexEndpointID, deployedIndexID, apiEndpoint string, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		indexName:       fmt.Sprintf("projects/%s/locations/%s/indexes/%s", projectID, location, indexID),
		endpointName:    fmt.Sprintf("projects/%s/locations/%s/indexEndpoints/%s", projectID, location, indexEndpointID),
		deployedIndexID: deployedIndexID,
		probeCandidates: 1000,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes: []string{
			"https://www.googleapis.com/auth/cloud-platform",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect default credentials: %w", err)
	}

	indexClient, err := aiplatform.NewIndexClient(ctx,
		option.WithAuthCredentials(creds),
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create index client: %w", err)
	}

	matchClient, err := aiplatform.NewMatchClient(ctx,
		option.WithAuthCredentials(creds),
		option.WithEndpoint(apiEndpoint+":443"),
	)
	if err != nil {
		indexClient.Close()
		return nil, fmt.Errorf("failed to create match client: %w", err)
	}

	s.indexClient = indexClient
	s.matchClient = matchClient

	s.logger.InfoContext(ctx, "vector search service initialized",
		slog.String("index", s.indexName),
		slog.String("deployed_index_id", deployedIndexID),
	)
	return s, nil
}

// Close releases the underlying gRPC clients.
func (s *Service) Close() error {
	err := s.indexClient.Close()
	if merr := s.matchClient.Close(); err == nil {
		err = merr
	}
	return err
}

// Upsert writes datapoints to the index. Existing datapoints with the same
// ID are replaced.
func (s *Service) Upsert(ctx context.Context, datapoints []*types.Datapoint) error {
	if len(datapoints) == 0 {
		return nil
	}

	points := make([]*aiplatformpb.IndexDatapoint, len(datapoints))
	for i, dp := range datapoints {
		points[i] = &aiplatformpb.IndexDatapoint{
			DatapointId:   dp.ID,
			FeatureVector: dp.Vector,
			Restricts:     toRestricts(dp.Facets),
		}
	}

	req := &aiplatformpb.UpsertDatapointsRequest{
		Index:      s.indexName,
		Datapoints: points,
	}
	if _, err := s.indexClient.UpsertDatapoints(ctx, req); err != nil {
		return &types.ExternalServiceError{Service: "vector_search", Op: "upsert", Err: err}
	}

	s.logger.InfoContext(ctx, "upserted datapoints", slog.Int("count", len(points)))
	return nil
}

// Search returns up to k nearest neighbors of vector, highest similarity
// first. A non-nil facets map is pushed down as a server-side restrict.
func (s *Service) Search(ctx context.Context, vector []float32, k int, facets map[string][]string) ([]*types.Neighbor, error) {
	query := &aiplatformpb.FindNeighborsRequest_Query{
		Datapoint: &aiplatformpb.IndexDatapoint{
			DatapointId:   "query",
			FeatureVector: vector,
			Restricts:     toRestricts(facets),
		},
		NeighborCount: int32(k),
	}
	req := &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:       s.endpointName,
		DeployedIndexId:     s.deployedIndexID,
		Queries:             []*aiplatformpb.FindNeighborsRequest_Query{query},
		ReturnFullDatapoint: true,
	}

	var resp *aiplatformpb.FindNeighborsResponse
	err := backoff.Retry(ctx, backoff.DefaultAttempts, backoff.New(), func(ctx context.Context) error {
		var err error
		resp, err = s.matchClient.FindNeighbors(ctx, req)
		return err
	})
	if err != nil {
		return nil, &types.ExternalServiceError{Service: "vector_search", Op: "search", Err: err}
	}

	if len(resp.NearestNeighbors) == 0 {
		return nil, nil
	}

	neighbors := make([]*types.Neighbor, 0, len(resp.NearestNeighbors[0].Neighbors))
	for _, n := range resp.NearestNeighbors[0].Neighbors {
		if n.Datapoint == nil {
			continue
		}
		neighbors = append(neighbors, &types.Neighbor{
			ID:              n.Datapoint.DatapointId,
			SimilarityScore: n.Distance,
			Facets:          fromRestricts(n.Datapoint.Restricts),
		})
	}
	return neighbors, nil
}

// Delete removes datapoints by ID.
func (s *Service) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	req := &aiplatformpb.RemoveDatapointsRequest{
		Index:        s.indexName,
		DatapointIds: ids,
	}
	if _, err := s.indexClient.RemoveDatapoints(ctx, req); err != nil {
		return &types.ExternalServiceError{Service: "vector_search", Op: "delete", Err: err}
	}

	s.logger.InfoContext(ctx, "removed datapoints", slog.Int("count", len(ids)))
	return nil
}

// DeleteByFacets removes every datapoint whose restricts match facets, by
// probing the index with a neutral vector and the facet restrict. The sweep
// is bounded by the probe candidate limit; when the probe returns a full
// page a [*types.ConsistencyGapError] is returned alongside the count of
// datapoints that were removed, because more matches may remain.
func (s *Service) DeleteByFacets(ctx context.Context, facets map[string][]string) (int, error) {
	if len(facets) == 0 {
		return 0, fmt.Errorf("facet filter must not be empty")
	}

	dims, err := s.dimensions(ctx)
	if err != nil {
		return 0, err
	}

	// The restrict does the matching; the vector only has to be valid.
	probe := make([]float32, dims)
	neighbors, err := s.Search(ctx, probe, s.probeCandidates, facets)
	if err != nil {
		return 0, err
	}
	if len(neighbors) == 0 {
		return 0, nil
	}

	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ID
	}
	if err := s.Delete(ctx, ids); err != nil {
		return 0, err
	}

	if len(neighbors) >= s.probeCandidates {
		s.logger.WarnContext(ctx, "facet-probe deletion hit the candidate bound, sweep may be incomplete",
			slog.Int("removed", len(ids)),
			slog.Int("bound", s.probeCandidates),
		)
		return len(ids), &types.ConsistencyGapError{
			Expected: s.probeCandidates,
			Actual:   len(ids),
			Detail:   "facet-probe deletion reached the candidate bound",
		}
	}
	return len(ids), nil
}

// IndexStats is an operational snapshot of the backing index.
type IndexStats struct {
	// DisplayName is the index's human-readable name.
	DisplayName string `json:"display_name"`

	// VectorsCount and ShardsCount are the index's size counters.
	VectorsCount int64 `json:"vectors_count"`
	ShardsCount  int32 `json:"shards_count"`

	// Created and Updated are the index's lifecycle timestamps.
	Created time.Time `json:"created,omitzero"`
	Updated time.Time `json:"updated,omitzero"`
}

// Stats reports the index's display name, size counters, and timestamps.
func (s *Service) Stats(ctx context.Context) (*IndexStats, error) {
	idx, err := s.indexClient.GetIndex(ctx, &aiplatformpb.GetIndexRequest{Name: s.indexName})
	if err != nil {
		return nil, &types.ExternalServiceError{Service: "vector_search", Op: "get_index", Err: err}
	}

	stats := &IndexStats{
		DisplayName: idx.GetDisplayName(),
		Created:     idx.GetCreateTime().AsTime(),
		Updated:     idx.GetUpdateTime().AsTime(),
	}
	if is := idx.GetIndexStats(); is != nil {
		stats.VectorsCount = is.GetVectorsCount()
		stats.ShardsCount = is.GetShardsCount()
	}
	return stats, nil
}

func (s *Service) dimensions(ctx context.Context) (int, error) {
	idx, err := s.indexClient.GetIndex(ctx, &aiplatformpb.GetIndexRequest{Name: s.indexName})
	if err != nil {
		return 0, &types.ExternalServiceError{Service: "vector_search", Op: "get_index", Err: err}
	}
	if cfg := idx.GetMetadata().GetStructValue(); cfg != nil {
		if c, ok := cfg.GetFields()["config"]; ok {
			if d, ok := c.GetStructValue().GetFields()["dimensions"]; ok {
				return int(d.GetNumberValue()), nil
			}
		}
	}
	return 0, fmt.Errorf("index %s does not expose its dimensionality", s.indexName)
}

func toRestricts(facets map[string][]string) []*aiplatformpb.IndexDatapoint_Restriction {
	if len(facets) == 0 {
		return nil
	}
	restricts := make([]*aiplatformpb.IndexDatapoint_Restriction, 0, len(facets))
	for ns, allow := range facets {
		restricts = append(restricts, &aiplatformpb.IndexDatapoint_Restriction{
			Namespace: ns,
			AllowList: allow,
		})
	}
	return restricts
}

func fromRestricts(restricts []*aiplatformpb.IndexDatapoint_Restriction) map[string][]string {
	if len(restricts) == 0 {
		return nil
	}
	facets := make(map[string][]string, len(restricts))
	for _, r := range restricts {
		facets[r.GetNamespace()] = r.GetAllowList()
	}
	return facets
}
