// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/isururajakaruna/cymbal-rag-api/blobstore"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// NoResultsMessage is returned instead of a generated answer when no
// candidate survives filtering. The generative model is never called with
// empty context.
const NoResultsMessage = "No relevant documents were found for your query."

// minCandidatePool is the floor on the widened candidate request.
const minCandidatePool = 50

// SearchRequest is one retrieval query.
type SearchRequest struct {
	// Query is the natural-language question.
	Query string

	// K caps the number of chunks surviving retrieval. Zero means the
	// configured default.
	K int

	// Threshold is the lower bound on the (possibly reranked) score. Nil
	// means the configured default.
	Threshold *float64

	// FileFilter, when non-empty, keeps only results from the named
	// documents (normalized filenames).
	FileFilter []string

	// TagFilter, when non-empty, keeps only results carrying at least one
	// of the tags.
	TagFilter []string
}

// SearchResponse is the grouped, answered result of one query.
type SearchResponse struct {
	// Files are the matched documents, each with its surviving chunks in
	// rank order.
	Files []*types.FileResult `json:"files"`

	// TotalFiles and TotalChunks count the surviving groups and chunks.
	TotalFiles  int `json:"total_files"`
	TotalChunks int `json:"total_chunks"`

	// Answer is the grounded generated answer, or [NoResultsMessage].
	Answer string `json:"answer"`

	// Elapsed is the end-to-end retrieval latency.
	Elapsed time.Duration `json:"elapsed"`
}

// Search runs the retrieval pipeline: embed the query, widen the candidate
// search, rerank when available, threshold, truncate, post-filter, group by
// file, and synthesize a grounded answer.
func (s *Service) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, &types.ValidationError{Field: "query", Message: "query must not be empty"}
	}

	k := req.K
	if k <= 0 {
		k = s.cfg.MaxResults
	}
	threshold := s.cfg.SimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	vector, err := s.embedder.Embed(ctx, req.Query, types.EmbeddingTaskQuery, "")
	if err != nil {
		return nil, err
	}

	// Widen the pool so the reranker can promote candidates a naive top-k
	// cutoff would have discarded. No threshold is applied here.
	pool := max(k*3, minCandidatePool)
	neighbors, err := s.index.Search(ctx, vector, pool, nil)
	if err != nil {
		return nil, err
	}

	results := resultsFromNeighbors(neighbors)
	results = s.rerank(ctx, req.Query, results)

	// Threshold strictly after reranking: pre-filtering on raw distance
	// would drop candidates the reranker might have promoted. Higher is
	// better throughout.
	kept := results[:0]
	for _, r := range results {
		if r.SimilarityScore >= threshold {
			kept = append(kept, r)
		}
	}
	results = kept

	if len(results) > k {
		results = results[:k]
	}

	results = applyPostFilters(results, req.FileFilter, req.TagFilter)

	if len(results) == 0 {
		s.logger.InfoContext(ctx, "no results above threshold",
			slog.Float64("threshold", threshold),
			slog.Int("pool", pool),
		)
		return &SearchResponse{
			Files:   []*types.FileResult{},
			Answer:  NoResultsMessage,
			Elapsed: time.Since(start),
		}, nil
	}

	files := s.groupByFile(ctx, results)

	answer, err := s.generative.Generate(ctx, buildGroundingPrompt(req.Query, results))
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		Files:       files,
		TotalFiles:  len(files),
		TotalChunks: len(results),
		Answer:      answer,
		Elapsed:     time.Since(start),
	}
	s.logger.InfoContext(ctx, "search completed",
		slog.Int("files", resp.TotalFiles),
		slog.Int("chunks", resp.TotalChunks),
		slog.Duration("elapsed", resp.Elapsed),
	)
	return resp, nil
}

// resultsFromNeighbors renders index hits into search results using the
// denormalized facets. Hits without a content facet cannot be rendered and
// are dropped.
func resultsFromNeighbors(neighbors []*types.Neighbor) []*types.SearchResult {
	results := make([]*types.SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		content := facetValue(n.Facets, FacetContent)
		filename := facetValue(n.Facets, FacetFilename)
		if content == "" || filename == "" {
			continue
		}

		idx, _ := strconv.Atoi(facetValue(n.Facets, FacetChunkIndex))
		meta := map[string]string{"datapoint_id": n.ID}
		if title := facetValue(n.Facets, FacetTitle); title != "" {
			meta[FacetTitle] = title
		}
		if kind := facetValue(n.Facets, FacetKind); kind != "" {
			meta[FacetKind] = kind
		}
		if tags := n.Facets[FacetTags]; len(tags) > 0 {
			meta[FacetTags] = blobstore.JoinTags(tags)
		}

		results = append(results, &types.SearchResult{
			Content:         content,
			Filename:        filename,
			ChunkIndex:      idx,
			SimilarityScore: n.SimilarityScore,
			Metadata:        meta,
		})
	}
	return results
}

func facetValue(facets map[string][]string, namespace string) string {
	if v := facets[namespace]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// rerank rescores results with the configured reranker, replacing each
// score and reordering descending. Without a reranker, or when ranking
// fails, results are ordered by the raw index score instead; retrieval
// never hard-fails here.
func (s *Service) rerank(ctx context.Context, query string, results []*types.SearchResult) []*types.SearchResult {
	sortByScore := func() {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].SimilarityScore > results[j].SimilarityScore
		})
	}

	if s.reranker == nil || len(results) == 0 {
		sortByScore()
		return results
	}

	candidates := make([]*types.RankCandidate, len(results))
	byID := make(map[string]*types.SearchResult, len(results))
	for i, r := range results {
		id := strconv.Itoa(i)
		candidates[i] = &types.RankCandidate{
			ID:      id,
			Title:   r.Metadata[FacetTitle],
			Content: r.Content,
		}
		byID[id] = r
	}

	ranked, err := s.reranker.Rank(ctx, query, candidates)
	if err != nil {
		s.logger.WarnContext(ctx, "reranking failed, falling back to index ordering",
			slog.Any("error", err),
		)
		sortByScore()
		return results
	}

	reordered := make([]*types.SearchResult, 0, len(ranked))
	for _, rec := range ranked {
		r, ok := byID[rec.ID]
		if !ok {
			continue
		}
		r.SimilarityScore = rec.Score
		reordered = append(reordered, r)
	}
	if len(reordered) != len(results) {
		// The reranker dropped or invented records; trust only what maps
		// back to a known candidate.
		s.logger.WarnContext(ctx, "reranker returned a different candidate set",
			slog.Int("sent", len(results)),
			slog.Int("mapped", len(reordered)),
		)
	}
	return reordered
}

// applyPostFilters keeps results matching the client's file and tag
// filters. These run after the k truncation, so a tight filter can reduce
// the result count below k.
func applyPostFilters(results []*types.SearchResult, fileFilter, tagFilter []string) []*types.SearchResult {
	if len(fileFilter) == 0 && len(tagFilter) == 0 {
		return results
	}

	normalized := make([]string, len(fileFilter))
	for i, f := range fileFilter {
		normalized[i] = types.NormalizeFilename(f)
	}

	kept := results[:0]
	for _, r := range results {
		if len(normalized) > 0 && !slices.Contains(normalized, r.Filename) {
			continue
		}
		if len(tagFilter) > 0 && !hasAnyTag(blobstore.SplitTags(r.Metadata[FacetTags]), tagFilter) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		if slices.Contains(tags, w) {
			return true
		}
	}
	return false
}

// groupByFile groups results by source document, preserving rank order
// within and across groups, and enriches each group with blob metadata.
// Metadata enrichment is best-effort; a stat failure leaves the group bare.
func (s *Service) groupByFile(ctx context.Context, results []*types.SearchResult) []*types.FileResult {
	var order []string
	groups := make(map[string]*types.FileResult)
	for _, r := range results {
		g, ok := groups[r.Filename]
		if !ok {
			g = &types.FileResult{
				Name: r.Filename,
				Path: blobstore.UploadPath(r.Filename),
			}
			groups[r.Filename] = g
			order = append(order, r.Filename)
		}
		g.MatchedChunks = append(g.MatchedChunks, r)
	}

	files := make([]*types.FileResult, len(order))
	var eg errgroup.Group
	for i, name := range order {
		g := groups[name]
		files[i] = g
		eg.Go(func() error {
			info, err := s.store.Stat(ctx, g.Path)
			if err != nil {
				// Enrichment is best-effort; the group still renders bare.
				s.logger.WarnContext(ctx, "file metadata unavailable",
					slog.String("filename", g.Name),
					slog.Any("error", err),
				)
				return nil
			}
			g.Size = info.Size
			g.LastUpdated = info.Updated
			g.FileType = fileType(g.Name, info.ContentType)
			g.Tags = blobstore.SplitTags(info.Metadata[blobstore.MetaTags])
			g.Title = info.Metadata[blobstore.MetaTitle]
			return nil
		})
	}
	_ = eg.Wait()
	return files
}

// fileType annotates a content type with the file extension when known.
func fileType(filename, contentType string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return contentType
	}
	if contentType == "" {
		return ext
	}
	return fmt.Sprintf("%s (%s)", contentType, ext)
}

// buildGroundingPrompt concatenates each result's content labeled by its
// source, then appends the question. The labels let the model cite sources.
func buildGroundingPrompt(query string, results []*types.SearchResult) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("Cite the source file for each fact you use. ")
	b.WriteString("If the context does not contain the answer, say so.\n\n")

	for _, r := range results {
		fmt.Fprintf(&b, "[%s, chunk %d]\n%s\n\n", r.Filename, r.ChunkIndex, r.Content)
	}

	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}
