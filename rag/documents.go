// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/isururajakaruna/cymbal-rag-api/blobstore"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// ListDocuments returns every committed document, built from blob
// attributes and metadata.
func (s *Service) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	infos, err := s.store.List(ctx, blobstore.UploadsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]*types.Document, 0, len(infos))
	for _, info := range infos {
		docs = append(docs, documentFromBlob(info))
	}
	return docs, nil
}

// GetDocument returns one committed document by normalized filename.
func (s *Service) GetDocument(ctx context.Context, filename string) (*types.Document, error) {
	normalized := types.NormalizeFilename(filename)
	info, err := s.store.Stat(ctx, blobstore.UploadPath(normalized))
	if err != nil {
		return nil, &types.ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("document %q not found", normalized),
		}
	}
	return documentFromBlob(info), nil
}

// DeleteDocument removes a document's vectors and its blob. Vector removal
// prefers the datapoint IDs recorded in blob metadata; documents without
// the record fall back to the facet-probe sweep. The returned warning, when
// non-empty, reports a possibly incomplete sweep.
func (s *Service) DeleteDocument(ctx context.Context, filename string) (warning string, err error) {
	normalized := types.NormalizeFilename(filename)
	blobPath := blobstore.UploadPath(normalized)

	info, err := s.store.Stat(ctx, blobPath)
	if err != nil {
		return "", &types.ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("document %q not found", normalized),
		}
	}

	if ids := blobstore.SplitDatapointIDs(info.Metadata[blobstore.MetaDatapointIDs]); len(ids) > 0 {
		if err := s.index.Delete(ctx, ids); err != nil {
			return "", fmt.Errorf("delete vectors for %s: %w", normalized, err)
		}
	} else {
		removed, err := s.index.DeleteByFacets(ctx, map[string][]string{FacetFilename: {normalized}})
		if err != nil {
			var gap *types.ConsistencyGapError
			if !errors.As(err, &gap) {
				return "", fmt.Errorf("delete vectors for %s: %w", normalized, err)
			}
			warning = fmt.Sprintf("deletion of %q may have left stale vectors: %s", normalized, gap.Detail)
		}
		s.logger.InfoContext(ctx, "deleted vectors by facet probe",
			slog.String("filename", normalized),
			slog.Int("removed", removed),
		)
	}

	if err := s.store.Delete(ctx, blobPath); err != nil {
		return warning, fmt.Errorf("delete document blob %s: %w", normalized, err)
	}

	s.logger.InfoContext(ctx, "document deleted", slog.String("filename", normalized))
	return warning, nil
}

func documentFromBlob(info *types.BlobInfo) *types.Document {
	return &types.Document{
		Filename:         blobstore.TrimUploadPrefix(info.Path),
		OriginalFilename: info.Metadata[blobstore.MetaOriginalFilename],
		ContentType:      info.ContentType,
		Size:             info.Size,
		Created:          info.Created,
		Updated:          info.Updated,
		Tags:             blobstore.SplitTags(info.Metadata[blobstore.MetaTags]),
		Title:            info.Metadata[blobstore.MetaTitle],
		DatapointIDs:     blobstore.SplitDatapointIDs(info.Metadata[blobstore.MetaDatapointIDs]),
	}
}
