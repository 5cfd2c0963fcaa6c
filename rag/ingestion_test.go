// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/isururajakaruna/cymbal-rag-api/blobstore"
	"github.com/isururajakaruna/cymbal-rag-api/config"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

type testEnv struct {
	svc        *Service
	embedder   *fakeEmbedder
	index      *fakeIndex
	generative *fakeGenerative
	store      *fakeStore
	extractor  *fakeExtractor
	log        *callLog
}

func newTestEnv(opts ...ServiceOption) *testEnv {
	log := &callLog{}
	env := &testEnv{
		embedder:   &fakeEmbedder{dims: 4, log: log},
		index:      &fakeIndex{log: log},
		generative: &fakeGenerative{response: "Generated Title", log: log},
		store:      newFakeStore(),
		extractor:  &fakeExtractor{log: log},
		log:        log,
	}
	env.store.log = log
	env.svc = NewService(env.embedder, env.index, env.generative, env.store, env.extractor, opts...)
	return env
}

func TestIngest_UnsupportedFormat(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     []byte("MZ"),
		Filename: "malware.exe",
	})

	var ufe *types.UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("Ingest() error = %v, want UnsupportedFormatError", err)
	}
	if env.extractor.calls != 0 {
		t.Errorf("extractor called %d times for rejected format, want 0", env.extractor.calls)
	}
	if len(env.embedder.calls) != 0 {
		t.Errorf("embedder called %d times for rejected format, want 0", len(env.embedder.calls))
	}
	if len(env.index.upserts) != 0 {
		t.Errorf("index received %d upserts for rejected format, want 0", len(env.index.upserts))
	}
}

func TestIngest_EmptyFile(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{Filename: "doc.txt"})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Ingest() error = %v, want ValidationError", err)
	}
}

func TestIngest_SizeExceeded(t *testing.T) {
	cfg := config.DefaultRAGConfig()
	cfg.MaxFileSizeMB = 1
	env := newTestEnv(WithConfig(cfg))

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     bytes.Repeat([]byte("a"), 2*1024*1024),
		Filename: "big.txt",
	})

	var se *types.SizeExceededError
	if !errors.As(err, &se) {
		t.Fatalf("Ingest() error = %v, want SizeExceededError", err)
	}
	if se.Limit != 1024*1024 {
		t.Errorf("Limit = %d, want %d", se.Limit, 1024*1024)
	}
}

func TestIngest_DocumentTaskType(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     []byte("The quarterly revenue grew by twelve percent."),
		Filename: "report.txt",
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(env.embedder.calls) != 1 {
		t.Fatalf("embedder calls = %d, want 1", len(env.embedder.calls))
	}
	if got := env.embedder.calls[0].task; got != types.EmbeddingTaskDocument {
		t.Errorf("embedding task = %q, want %q", got, types.EmbeddingTaskDocument)
	}
	if result.ChunkCount != 1 || result.EmbeddingCount != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", result.ChunkCount, result.EmbeddingCount)
	}
}

func TestIngest_CommitsBlobAfterUpsert(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:        []byte("Minutes of the planning meeting."),
		Filename:    "meeting notes.txt",
		ContentType: "text/plain",
		Tags:        []string{"meetings", "planning"},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if result.Filename != "meeting_notes.txt" {
		t.Errorf("Filename = %q, want %q", result.Filename, "meeting_notes.txt")
	}

	upsertAt := slices.Index(env.log.calls, "upsert")
	putAt := slices.Index(env.log.calls, "put")
	if upsertAt < 0 || putAt < 0 || upsertAt > putAt {
		t.Fatalf("call order = %v, want upsert before put", env.log.calls)
	}

	info, err := env.store.Stat(context.Background(), blobstore.UploadPath("meeting_notes.txt"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	wantIDs := blobstore.JoinDatapointIDs(result.DatapointIDs)
	if got := info.Metadata[blobstore.MetaDatapointIDs]; got != wantIDs {
		t.Errorf("datapoint_ids metadata = %q, want %q", got, wantIDs)
	}
	if got := info.Metadata[blobstore.MetaTags]; got != "meetings,planning" {
		t.Errorf("tags metadata = %q, want %q", got, "meetings,planning")
	}
}

func TestIngest_ExistingWithoutReplace(t *testing.T) {
	env := newTestEnv()
	env.store.blobs[blobstore.UploadPath("report.txt")] = &blobEntry{data: []byte("old")}

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     []byte("new content"),
		Filename: "report.txt",
	})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Ingest() error = %v, want ValidationError", err)
	}
	if !strings.Contains(verr.Suggestion, "replace_existing") {
		t.Errorf("Suggestion = %q, want replace_existing hint", verr.Suggestion)
	}
	if len(env.index.upserts) != 0 {
		t.Errorf("index received %d upserts, want 0", len(env.index.upserts))
	}
}

func TestIngest_ReplaceDeletesOldIDsFirst(t *testing.T) {
	env := newTestEnv()
	env.store.blobs[blobstore.UploadPath("report.txt")] = &blobEntry{
		data: []byte("old"),
		metadata: map[string]string{
			blobstore.MetaDatapointIDs: "r0,r1",
		},
	}

	result, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:            []byte("Replacement content for the report."),
		Filename:        "report.txt",
		ReplaceExisting: true,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(env.index.deletes) != 1 {
		t.Fatalf("index deletes = %d, want 1", len(env.index.deletes))
	}
	if diff := cmp.Diff([]string{"r0", "r1"}, env.index.deletes[0]); diff != "" {
		t.Errorf("deleted IDs mismatch (-want +got):\n%s", diff)
	}
	if len(env.index.facetDels) != 0 {
		t.Errorf("facet deletes = %d, want 0 when IDs are recorded", len(env.index.facetDels))
	}

	deleteAt := slices.Index(env.log.calls, "delete")
	upsertAt := slices.Index(env.log.calls, "upsert")
	if deleteAt < 0 || upsertAt < 0 || deleteAt > upsertAt {
		t.Fatalf("call order = %v, want delete before upsert", env.log.calls)
	}

	info, _ := env.store.Stat(context.Background(), blobstore.UploadPath("report.txt"))
	if got := info.Metadata[blobstore.MetaDatapointIDs]; got != blobstore.JoinDatapointIDs(result.DatapointIDs) {
		t.Errorf("datapoint_ids metadata = %q, want only the new IDs", got)
	}
	for _, id := range result.DatapointIDs {
		if id == "r0" || id == "r1" {
			t.Errorf("new datapoint ID %q collides with a replaced ID", id)
		}
	}
}

func TestIngest_ReplaceFallsBackToFacetDelete(t *testing.T) {
	env := newTestEnv()
	// A legacy document: no datapoint_ids in metadata.
	env.store.blobs[blobstore.UploadPath("legacy.txt")] = &blobEntry{data: []byte("old")}

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:            []byte("Fresh content."),
		Filename:        "legacy.txt",
		ReplaceExisting: true,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(env.index.deletes) != 0 {
		t.Errorf("ID deletes = %d, want 0 for legacy document", len(env.index.deletes))
	}
	if len(env.index.facetDels) != 1 {
		t.Fatalf("facet deletes = %d, want 1", len(env.index.facetDels))
	}
	if diff := cmp.Diff(map[string][]string{FacetFilename: {"legacy.txt"}}, env.index.facetDels[0]); diff != "" {
		t.Errorf("facet filter mismatch (-want +got):\n%s", diff)
	}
}

func TestIngest_UpsertFailureSkipsBlobCommit(t *testing.T) {
	env := newTestEnv()
	env.index.upsertErr = errors.New("index unavailable")

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     []byte("Some content."),
		Filename: "doc.txt",
	})
	if err == nil {
		t.Fatal("Ingest() error = nil, want upsert failure")
	}

	if exists, _ := env.store.Exists(context.Background(), blobstore.UploadPath("doc.txt")); exists {
		t.Error("blob committed despite upsert failure")
	}
}

func TestIngest_ParagraphSectionsChunkOnBlankLines(t *testing.T) {
	env := newTestEnv()
	env.extractor.sections = []*types.ExtractedSection{
		{
			Content: "First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
			Kind:    types.SectionKindParagraph,
		},
	}

	result, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     []byte("irrelevant, the fake extractor decides"),
		Filename: "notes.md",
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if result.ChunkCount != 3 {
		t.Fatalf("ChunkCount = %d, want one chunk per paragraph", result.ChunkCount)
	}
	var contents []string
	for _, dp := range env.index.upserts[0] {
		contents = append(contents, facetValue(dp.Facets, FacetContent))
	}
	want := []string{"First paragraph.", "Second paragraph.", "Third paragraph."}
	if diff := cmp.Diff(want, contents); diff != "" {
		t.Errorf("paragraph chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestIngest_FacetsCarryRenderableMetadata(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Ingest(context.Background(), &IngestRequest{
		Data:     []byte("Facts about the fiscal year."),
		Filename: "facts.txt",
		Tags:     []string{"finance"},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(env.index.upserts) != 1 || len(env.index.upserts[0]) != 1 {
		t.Fatalf("upserts = %v, want one batch of one datapoint", env.index.upserts)
	}
	dp := env.index.upserts[0][0]
	if got := facetValue(dp.Facets, FacetFilename); got != "facts.txt" {
		t.Errorf("filename facet = %q, want %q", got, "facts.txt")
	}
	if got := facetValue(dp.Facets, FacetContent); got != "Facts about the fiscal year." {
		t.Errorf("content facet = %q, want the chunk text", got)
	}
	if diff := cmp.Diff([]string{"finance"}, dp.Facets[FacetTags]); diff != "" {
		t.Errorf("tags facet mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(dp.ID, "facts_0_") {
		t.Errorf("datapoint ID = %q, want facts_0_ prefix", dp.ID)
	}
}
