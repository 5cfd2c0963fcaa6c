// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/isururajakaruna/cymbal-rag-api/blobstore"
	"github.com/isururajakaruna/cymbal-rag-api/chunking"
	"github.com/isururajakaruna/cymbal-rag-api/extractor"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// upsertBatchSize bounds one index upsert call.
const upsertBatchSize = 100

// Facet namespaces stored on every datapoint. The index has no join
// capability, so everything needed to render a result is denormalized here.
const (
	FacetFilename   = "filename"
	FacetChunkIndex = "chunk_index"
	FacetTags       = "tags"
	FacetTitle      = "title"
	FacetContent    = "content"
	FacetKind       = "kind"
)

// IngestRequest is one document upload.
type IngestRequest struct {
	// Data is the raw file bytes.
	Data []byte

	// Filename is the client-supplied name. Its normalized form is the
	// document identity.
	Filename string

	// ContentType is the declared MIME type. May be empty; the extension
	// then decides the format.
	ContentType string

	// Tags are free-form labels stored with the document and as facets.
	Tags []string

	// ReplaceExisting permits overwriting a document with the same
	// normalized filename, deleting its old vectors first.
	ReplaceExisting bool
}

// IngestResult reports a committed ingestion.
type IngestResult struct {
	// Filename is the normalized document identity.
	Filename string `json:"filename"`

	// Title is the generated document title.
	Title string `json:"title,omitempty"`

	// ChunkCount is the number of chunks committed to the index.
	ChunkCount int `json:"chunk_count"`

	// EmbeddingCount is the number of vectors upserted.
	EmbeddingCount int `json:"embedding_count"`

	// DatapointIDs are the committed vector IDs, also recorded in blob
	// metadata.
	DatapointIDs []string `json:"datapoint_ids"`

	// Warning carries a non-fatal consistency note, such as an incomplete
	// deletion sweep during replacement.
	Warning string `json:"warning,omitempty"`
}

// Ingest runs the full pipeline: validate, replace handling, extract,
// chunk, embed, upsert, blob commit. Steps are strictly sequential; the
// blob write comes last so that its datapoint-ID metadata only records
// vectors that provably exist.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	start := time.Now()

	if err := s.checkUpload(req.Data, req.Filename, req.ContentType); err != nil {
		return nil, err
	}

	filename := types.NormalizeFilename(req.Filename)
	blobPath := blobstore.UploadPath(filename)

	exists, err := s.store.Exists(ctx, blobPath)
	if err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	}

	var warning string
	if exists {
		if !req.ReplaceExisting {
			return nil, &types.ValidationError{
				Field:      "filename",
				Message:    fmt.Sprintf("document %q already exists", filename),
				Suggestion: "use replace_existing=true to overwrite it",
			}
		}
		warning, err = s.removeExistingEmbeddings(ctx, filename, blobPath)
		if err != nil {
			return nil, err
		}
	}

	sections, err := s.extractor.Extract(ctx, req.Data, req.Filename, req.ContentType)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, &types.ValidationError{
			Field:   "file",
			Message: "no extractable content",
		}
	}

	chunks, err := s.chunkSections(sections)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, &types.ValidationError{
			Field:   "file",
			Message: "no content survived chunking",
		}
	}
	chunks = chunking.MergeToCap(chunks, s.cfg.MaxChunksPerDocument)

	title := s.generateTitle(ctx, filename, chunks[0].Content)

	assignChunkIDs(chunks, filename)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, types.EmbeddingTaskDocument, title)
	if err != nil {
		return nil, err
	}

	datapoints := make([]*types.Datapoint, len(chunks))
	for i, ch := range chunks {
		datapoints[i] = &types.Datapoint{
			ID:     ch.ID,
			Vector: vectors[i],
			Facets: chunkFacets(ch, filename, title, req.Tags),
		}
	}

	if err := s.upsertBatches(ctx, filename, datapoints); err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	metadata := map[string]string{
		blobstore.MetaOriginalFilename: req.Filename,
		blobstore.MetaDatapointIDs:     blobstore.JoinDatapointIDs(ids),
	}
	if len(req.Tags) > 0 {
		metadata[blobstore.MetaTags] = blobstore.JoinTags(req.Tags)
	}
	if title != "" {
		metadata[blobstore.MetaTitle] = title
	}
	if err := s.store.Put(ctx, blobPath, req.Data, req.ContentType, metadata); err != nil {
		// The vectors are committed but the durable record is not: future
		// replacements fall back to the facet-probe sweep for this document.
		s.logger.ErrorContext(ctx, "blob commit failed after index upsert",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("commit document %s: %w", filename, err)
	}

	s.logger.InfoContext(ctx, "document ingested",
		slog.String("filename", filename),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &IngestResult{
		Filename:       filename,
		Title:          title,
		ChunkCount:     len(chunks),
		EmbeddingCount: len(vectors),
		DatapointIDs:   ids,
		Warning:        warning,
	}, nil
}

// checkUpload runs the cheap client-input checks before any external call.
func (s *Service) checkUpload(data []byte, filename, contentType string) error {
	if len(data) == 0 {
		return &types.ValidationError{Field: "file", Message: "file is empty"}
	}
	if filename == "" {
		return &types.ValidationError{Field: "filename", Message: "filename is required"}
	}

	limit := int64(s.cfg.MaxFileSizeMB) * 1024 * 1024
	if int64(len(data)) > limit {
		return &types.SizeExceededError{Size: int64(len(data)), Limit: limit}
	}

	if !extractor.Supported(filename, contentType) {
		return &types.UnsupportedFormatError{
			ContentType: contentType,
			Extension:   strings.ToLower(filepath.Ext(filename)),
			Supported:   extractor.SupportedList(),
		}
	}
	return nil
}

// removeExistingEmbeddings deletes the vectors of the document being
// replaced. The ID list recorded in blob metadata is the preferred path;
// the facet-probe sweep is a best-effort fallback for documents whose
// metadata predates ID tracking. A sweep that hits its candidate bound is
// reported as a warning, not a failure.
func (s *Service) removeExistingEmbeddings(ctx context.Context, filename, blobPath string) (warning string, err error) {
	info, err := s.store.Stat(ctx, blobPath)
	if err != nil {
		return "", fmt.Errorf("read existing document metadata: %w", err)
	}

	if ids := blobstore.SplitDatapointIDs(info.Metadata[blobstore.MetaDatapointIDs]); len(ids) > 0 {
		if err := s.index.Delete(ctx, ids); err != nil {
			return "", fmt.Errorf("delete existing vectors for %s: %w", filename, err)
		}
		s.logger.InfoContext(ctx, "deleted existing vectors by id",
			slog.String("filename", filename),
			slog.Int("count", len(ids)),
		)
		return "", nil
	}

	removed, err := s.index.DeleteByFacets(ctx, map[string][]string{FacetFilename: {filename}})
	if err != nil {
		var gap *types.ConsistencyGapError
		if !errors.As(err, &gap) {
			return "", fmt.Errorf("delete existing vectors for %s: %w", filename, err)
		}
		warning = fmt.Sprintf("replacement of %q may have left stale vectors: %s", filename, gap.Detail)
		s.logger.WarnContext(ctx, "facet-probe deletion incomplete",
			slog.String("filename", filename),
			slog.Int("removed", removed),
		)
	}
	return warning, nil
}

// chunkSections chunks each extracted section with the strategy fitting its
// kind: sheet sections cut on line boundaries so a row never splits,
// paragraph-structured sections cut on blank lines, everything else goes
// through the sliding window.
func (s *Service) chunkSections(sections []*types.ExtractedSection) ([]*types.Chunk, error) {
	chunker, err := chunking.New(s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	var all []*types.Chunk
	for _, sec := range sections {
		var chunks []*types.Chunk
		switch sec.Kind {
		case types.SectionKindSheet:
			chunks = chunking.Lines(sec.Content, s.cfg.ChunkSize, sec.Metadata)
		case types.SectionKindParagraph:
			for _, p := range chunking.Paragraphs(sec.Content, sec.Metadata) {
				// An oversized paragraph still has to honor the chunk
				// size bound.
				if len(p.Content) > s.cfg.ChunkSize {
					chunks = append(chunks, chunker.Chunk(p.Content, p.Metadata)...)
				} else {
					chunks = append(chunks, p)
				}
			}
		default:
			chunks = chunker.Chunk(sec.Content, sec.Metadata)
		}
		for _, ch := range chunks {
			ch.Kind = sec.Kind
			ch.Index = len(all)
			all = append(all, ch)
		}
	}
	return all, nil
}

// upsertBatches writes datapoints in bounded batches. A failure after some
// batches committed is reported as a failure with the consistency gap made
// explicit; already-committed batches are not rolled back.
func (s *Service) upsertBatches(ctx context.Context, filename string, datapoints []*types.Datapoint) error {
	for start := 0; start < len(datapoints); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(datapoints))
		if err := s.index.Upsert(ctx, datapoints[start:end]); err != nil {
			if start > 0 {
				s.logger.ErrorContext(ctx, "partial upsert failure",
					slog.String("filename", filename),
					slog.Int("committed", start),
					slog.Int("total", len(datapoints)),
				)
				return fmt.Errorf("upsert batch %d-%d for %s (first %d datapoints already committed, not rolled back): %w",
					start, end, filename, start, err)
			}
			return fmt.Errorf("upsert datapoints for %s: %w", filename, err)
		}
	}
	return nil
}

// assignChunkIDs gives every chunk a globally unique datapoint ID derived
// from the document identity, the chunk ordinal, and a random suffix.
func assignChunkIDs(chunks []*types.Chunk, filename string) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	for i, ch := range chunks {
		ch.ID = fmt.Sprintf("%s_%d_%s", base, i, uuid.NewString()[:8])
	}
}

func chunkFacets(ch *types.Chunk, filename, title string, tags []string) map[string][]string {
	facets := map[string][]string{
		FacetFilename:   {filename},
		FacetChunkIndex: {strconv.Itoa(ch.Index)},
		FacetContent:    {ch.Content},
	}
	if len(tags) > 0 {
		facets[FacetTags] = tags
	}
	if title != "" {
		facets[FacetTitle] = []string{title}
	}
	if ch.Kind != types.SectionKindUnspecified {
		facets[FacetKind] = []string{string(ch.Kind)}
	}
	return facets
}
