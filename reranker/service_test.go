// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package reranker_test

import (
	"os"
	"testing"

	"github.com/isururajakaruna/cymbal-rag-api/reranker"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

func TestNewService_MissingRankingConfig(t *testing.T) {
	t.Parallel()

	if _, err := reranker.NewService(t.Context(), ""); err == nil {
		t.Fatal("NewService() with empty ranking config should fail")
	}
}

func TestService_Rank(t *testing.T) {
	t.Skip("requires Google Cloud credentials")

	ctx := t.Context()
	svc, err := reranker.NewService(ctx, os.Getenv("DISCOVERY_RANKING_CONFIG"))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	defer svc.Close()

	ranked, err := svc.Rank(ctx, "when is the quarterly review", []*types.RankCandidate{
		{ID: "0", Title: "Lunch menu", Content: "Today we serve pasta and salad."},
		{ID: "1", Title: "Q3 planning", Content: "The quarterly review is scheduled for October 12."},
	})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("Rank() returned %d records, want 2", len(ranked))
	}
	if ranked[0].ID != "1" {
		t.Errorf("top record = %q, want the quarterly planning candidate", ranked[0].ID)
	}
	if ranked[0].Score < ranked[1].Score {
		t.Errorf("records not ordered by descending score: %v then %v", ranked[0].Score, ranked[1].Score)
	}
}
