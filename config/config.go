// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names for the deployment settings.
const (
	EnvProjectID       = "GOOGLE_CLOUD_PROJECT_ID"
	EnvRegion          = "GOOGLE_CLOUD_REGION"
	EnvModelName       = "VERTEX_AI_MODEL_NAME"
	EnvEmbeddingModel  = "VERTEX_AI_EMBEDDING_MODEL_NAME"
	EnvIndexID         = "VECTOR_SEARCH_INDEX_ID"
	EnvIndexEndpointID = "VECTOR_SEARCH_INDEX_ENDPOINT_ID"
	EnvDeployedIndexID = "VECTOR_SEARCH_DEPLOYED_INDEX_ID"
	EnvAPIEndpoint     = "VECTOR_SEARCH_API_ENDPOINT"
	EnvStorageBucket   = "STORAGE_BUCKET_NAME"
	EnvRankingConfig   = "DISCOVERY_RANKING_CONFIG"
	EnvEmbeddingDims   = "VECTOR_EMBEDDING_DIMENSIONS"
)

// Settings holds the deployment configuration loaded from the environment.
type Settings struct {
	// ProjectID is the Google Cloud project.
	ProjectID string

	// Region is the Google Cloud region, e.g. "us-central1".
	Region string

	// ModelName is the generative model, e.g. "gemini-2.5-flash".
	ModelName string

	// EmbeddingModelName is the embedding model, e.g. "gemini-embedding-001".
	EmbeddingModelName string

	// IndexID and IndexEndpointID identify the Vector Search index and its
	// serving endpoint. DeployedIndexID is the deployment within the
	// endpoint used for queries.
	IndexID         string
	IndexEndpointID string
	DeployedIndexID string

	// APIEndpoint is the regional Vector Search API endpoint.
	APIEndpoint string

	// StorageBucketName is the GCS bucket holding uploads and staging.
	StorageBucketName string

	// RankingConfig is the Discovery Engine ranking config resource name.
	// Empty disables reranking.
	RankingConfig string

	// EmbeddingDimensions, when non-zero, enables dimensionality validation
	// before every upsert and query.
	EmbeddingDimensions int
}

// Load reads Settings from the environment, after loading an optional .env
// file from the working directory.
func Load() (*Settings, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	s := &Settings{
		ProjectID:          os.Getenv(EnvProjectID),
		Region:             getenvDefault(EnvRegion, "us-central1"),
		ModelName:          getenvDefault(EnvModelName, "gemini-2.5-flash"),
		EmbeddingModelName: getenvDefault(EnvEmbeddingModel, "gemini-embedding-001"),
		IndexID:            os.Getenv(EnvIndexID),
		IndexEndpointID:    os.Getenv(EnvIndexEndpointID),
		DeployedIndexID:    os.Getenv(EnvDeployedIndexID),
		APIEndpoint:        os.Getenv(EnvAPIEndpoint),
		StorageBucketName:  os.Getenv(EnvStorageBucket),
		RankingConfig:      os.Getenv(EnvRankingConfig),
	}

	if v := os.Getenv(EnvEmbeddingDims); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvEmbeddingDims, err)
		}
		s.EmbeddingDimensions = dims
	}

	if s.ProjectID == "" {
		return nil, fmt.Errorf("%s is required", EnvProjectID)
	}
	if s.StorageBucketName == "" {
		return nil, fmt.Errorf("%s is required", EnvStorageBucket)
	}

	return s, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
