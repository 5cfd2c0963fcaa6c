// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// callLog records cross-collaborator call ordering for pipeline tests.
type callLog struct {
	calls []string
}

func (l *callLog) record(name string) {
	l.calls = append(l.calls, name)
}

type embedCall struct {
	texts []string
	task  types.EmbeddingTaskType
	title string
}

type fakeEmbedder struct {
	dims  int
	calls []embedCall
	err   error
	log   *callLog
}

func (f *fakeEmbedder) vector() []float32 {
	v := make([]float32, f.dims)
	for i := range v {
		v[i] = 0.1
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, task types.EmbeddingTaskType, title string) ([]float32, error) {
	f.calls = append(f.calls, embedCall{texts: []string{text}, task: task, title: title})
	if f.log != nil {
		f.log.record("embed")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string, task types.EmbeddingTaskType, title string) ([][]float32, error) {
	f.calls = append(f.calls, embedCall{texts: texts, task: task, title: title})
	if f.log != nil {
		f.log.record("embed")
	}
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = f.vector()
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

type fakeIndex struct {
	neighbors []*types.Neighbor // returned by Search
	upserts   [][]*types.Datapoint
	deletes   [][]string
	facetDels []map[string][]string
	searchErr error
	upsertErr error
	deleteErr error
	log       *callLog
}

func (f *fakeIndex) Upsert(_ context.Context, datapoints []*types.Datapoint) error {
	if f.log != nil {
		f.log.record("upsert")
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, datapoints)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int, _ map[string][]string) ([]*types.Neighbor, error) {
	if f.log != nil {
		f.log.record("search")
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.neighbors) > k {
		return f.neighbors[:k], nil
	}
	return f.neighbors, nil
}

func (f *fakeIndex) Delete(_ context.Context, ids []string) error {
	if f.log != nil {
		f.log.record("delete")
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, ids)
	return nil
}

func (f *fakeIndex) DeleteByFacets(_ context.Context, facets map[string][]string) (int, error) {
	if f.log != nil {
		f.log.record("delete_by_facets")
	}
	f.facetDels = append(f.facetDels, facets)
	return 0, nil
}

type fakeGenerative struct {
	response string
	err      error
	prompts  []string
	images   int
	log      *callLog
}

func (f *fakeGenerative) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.log != nil {
		f.log.record("generate")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerative) GenerateWithImage(_ context.Context, prompt string, _ []byte, _ string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.images++
	if f.log != nil {
		f.log.record("generate_with_image")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type blobEntry struct {
	data        []byte
	contentType string
	metadata    map[string]string
	updated     time.Time
}

type fakeStore struct {
	blobs map[string]*blobEntry
	log   *callLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string]*blobEntry)}
}

func (f *fakeStore) Put(_ context.Context, path string, data []byte, contentType string, metadata map[string]string) error {
	if f.log != nil {
		f.log.record("put")
	}
	f.blobs[path] = &blobEntry{
		data:        data,
		contentType: contentType,
		metadata:    metadata,
		updated:     time.Now(),
	}
	return nil
}

func (f *fakeStore) Get(_ context.Context, path string) ([]byte, error) {
	e, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", path)
	}
	return e.data, nil
}

func (f *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	_, ok := f.blobs[path]
	return ok, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	if f.log != nil {
		f.log.record("blob_delete")
	}
	delete(f.blobs, path)
	return nil
}

func (f *fakeStore) Stat(_ context.Context, path string) (*types.BlobInfo, error) {
	e, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", path)
	}
	return f.info(path, e), nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]*types.BlobInfo, error) {
	var infos []*types.BlobInfo
	for path, e := range f.blobs {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, f.info(path, e))
		}
	}
	return infos, nil
}

func (f *fakeStore) info(path string, e *blobEntry) *types.BlobInfo {
	return &types.BlobInfo{
		Path:        path,
		Size:        int64(len(e.data)),
		ContentType: e.contentType,
		Updated:     e.updated,
		Metadata:    e.metadata,
	}
}

type fakeExtractor struct {
	sections []*types.ExtractedSection
	err      error
	calls    int
	log      *callLog
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte, _, _ string) ([]*types.ExtractedSection, error) {
	f.calls++
	if f.log != nil {
		f.log.record("extract")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.sections != nil {
		return f.sections, nil
	}
	return []*types.ExtractedSection{
		{Content: string(data), Kind: types.SectionKindPlainText},
	}, nil
}

type fakeReranker struct {
	ranked []*types.RankedRecord
	err    error
	calls  []string // queries
}

func (f *fakeReranker) Rank(_ context.Context, query string, candidates []*types.RankCandidate) ([]*types.RankedRecord, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if f.ranked != nil {
		return f.ranked, nil
	}
	// Identity ranking: keep the input order with descending scores.
	ranked := make([]*types.RankedRecord, len(candidates))
	for i, c := range candidates {
		ranked[i] = &types.RankedRecord{ID: c.ID, Score: float64(len(candidates) - i)}
	}
	return ranked, nil
}
