// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	t.Setenv(EnvProjectID, "test-project")
	t.Setenv(EnvStorageBucket, "test-bucket")
	t.Setenv(EnvRegion, "")
	t.Setenv(EnvEmbeddingDims, "768")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.ProjectID != "test-project" {
		t.Errorf("ProjectID = %q, want test-project", s.ProjectID)
	}
	if s.Region != "us-central1" {
		t.Errorf("Region = %q, want the default us-central1", s.Region)
	}
	if s.ModelName != "gemini-2.5-flash" {
		t.Errorf("ModelName = %q, want the default", s.ModelName)
	}
	if s.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions = %d, want 768", s.EmbeddingDimensions)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv(EnvProjectID, "")
	t.Setenv(EnvStorageBucket, "bucket")

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil without project ID, want error")
	}

	t.Setenv(EnvProjectID, "proj")
	t.Setenv(EnvStorageBucket, "")

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil without bucket, want error")
	}
}

func TestLoad_BadDimensions(t *testing.T) {
	t.Setenv(EnvProjectID, "proj")
	t.Setenv(EnvStorageBucket, "bucket")
	t.Setenv(EnvEmbeddingDims, "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil for malformed dimensions, want error")
	}
}

func TestRAGConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*RAGConfig)
		wantErr bool
	}{
		"defaults":               {mutate: func(*RAGConfig) {}},
		"zero chunk size":        {mutate: func(c *RAGConfig) { c.ChunkSize = 0 }, wantErr: true},
		"overlap equals size":    {mutate: func(c *RAGConfig) { c.ChunkOverlap = c.ChunkSize }, wantErr: true},
		"overlap above size":     {mutate: func(c *RAGConfig) { c.ChunkOverlap = c.ChunkSize + 1 }, wantErr: true},
		"negative overlap":       {mutate: func(c *RAGConfig) { c.ChunkOverlap = -1 }, wantErr: true},
		"zero chunk cap":         {mutate: func(c *RAGConfig) { c.MaxChunksPerDocument = 0 }, wantErr: true},
		"zero probe candidates":  {mutate: func(c *RAGConfig) { c.DeleteProbeCandidates = 0 }, wantErr: true},
		"zero overlap is valid":  {mutate: func(c *RAGConfig) { c.ChunkOverlap = 0 }},
		"small but valid values": {mutate: func(c *RAGConfig) { c.ChunkSize = 10; c.ChunkOverlap = 3 }},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultRAGConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRAGConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rag.json")
	content := `{"chunk_size": 500, "chunk_overlap": 50, "max_chunks_per_document": 20, "similarity_threshold": 0.7, "max_results": 5, "min_quality_score": 6, "max_file_size_mb": 4, "delete_probe_candidates": 200}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRAGConfig(path)
	if err != nil {
		t.Fatalf("LoadRAGConfig() error = %v", err)
	}

	want := &RAGConfig{
		ChunkSize:             500,
		ChunkOverlap:          50,
		MaxChunksPerDocument:  20,
		SimilarityThreshold:   0.7,
		MaxResults:            5,
		MinQualityScore:       6,
		MaxFileSizeMB:         4,
		DeleteProbeCandidates: 200,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRAGConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadRAGConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadRAGConfig() error = %v", err)
	}
	if diff := cmp.Diff(DefaultRAGConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRAGConfig_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rag.json")
	if err := os.WriteFile(path, []byte(`{"chunk_size": 100, "chunk_overlap": 100}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRAGConfig(path); err == nil {
		t.Error("LoadRAGConfig() error = nil for overlap == chunk_size, want error")
	}
}
