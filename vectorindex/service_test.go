// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"os"
	"sort"
	"testing"

	"cloud.google.com/go/aiplatform/apiv1beta1/aiplatformpb"
	"github.com/google/go-cmp/cmp"
)

func TestToRestricts(t *testing.T) {
	t.Parallel()

	if got := toRestricts(nil); got != nil {
		t.Errorf("toRestricts(nil) = %v, want nil", got)
	}

	got := toRestricts(map[string][]string{
		"filename": {"report.pdf"},
		"tags":     {"finance", "q3"},
	})
	sort.Slice(got, func(i, j int) bool { return got[i].GetNamespace() < got[j].GetNamespace() })

	want := []*aiplatformpb.IndexDatapoint_Restriction{
		{Namespace: "filename", AllowList: []string{"report.pdf"}},
		{Namespace: "tags", AllowList: []string{"finance", "q3"}},
	}
	for i := range want {
		if got[i].GetNamespace() != want[i].GetNamespace() {
			t.Errorf("restrict[%d] namespace = %q, want %q", i, got[i].GetNamespace(), want[i].GetNamespace())
		}
		if diff := cmp.Diff(want[i].GetAllowList(), got[i].GetAllowList()); diff != "" {
			t.Errorf("restrict[%d] allow list mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestFromRestricts(t *testing.T) {
	t.Parallel()

	if got := fromRestricts(nil); got != nil {
		t.Errorf("fromRestricts(nil) = %v, want nil", got)
	}

	got := fromRestricts([]*aiplatformpb.IndexDatapoint_Restriction{
		{Namespace: "filename", AllowList: []string{"report.pdf"}},
		{Namespace: "tags", AllowList: []string{"finance", "q3"}},
	})
	want := map[string][]string{
		"filename": {"report.pdf"},
		"tags":     {"finance", "q3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fromRestricts() mismatch (-want +got):\n%s", diff)
	}
}

func TestRestrictsRoundTrip(t *testing.T) {
	t.Parallel()

	facets := map[string][]string{
		"filename":    {"notes.txt"},
		"chunk_index": {"0"},
	}
	if diff := cmp.Diff(facets, fromRestricts(toRestricts(facets))); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNewService(t *testing.T) {
	t.Skip("requires Google Cloud credentials")

	ctx := t.Context()
	svc, err := NewService(ctx,
		os.Getenv("GOOGLE_CLOUD_PROJECT_ID"),
		os.Getenv("GOOGLE_CLOUD_REGION"),
		os.Getenv("VECTOR_SEARCH_INDEX_ID"),
		os.Getenv("VECTOR_SEARCH_INDEX_ENDPOINT_ID"),
		os.Getenv("VECTOR_SEARCH_DEPLOYED_INDEX_ID"),
		os.Getenv("VECTOR_SEARCH_API_ENDPOINT"),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	defer svc.Close()

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.DisplayName == "" {
		t.Error("Stats() returned an index with no display name")
	}
}
