// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore persists uploaded documents in Google Cloud Storage.
//
// Committed documents live under the uploads/ prefix; files awaiting a
// validation verdict are staged under tmp/. A blob's custom metadata is the
// durable record tying it to the vector index: the datapoint_ids entry
// written at commit time is what makes precise deletion possible later.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// Object prefixes within the bucket.
const (
	UploadsPrefix = "uploads/"
	StagingPrefix = "tmp/"
)

// Metadata keys stored on blobs.
const (
	MetaOriginalFilename = "original_filename"
	MetaTags             = "tags"
	MetaDatapointIDs     = "datapoint_ids"
	MetaTitle            = "title"
	MetaValidationID     = "validation_id"
	MetaQualityScore     = "quality_score"
)

// GCSStore implements [types.BlobStore] on a single GCS bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	logger *slog.Logger
}

var _ types.BlobStore = (*GCSStore)(nil)

// StoreOption configures a [GCSStore].
type StoreOption func(*GCSStore)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *GCSStore) {
		s.logger = logger
	}
}

// NewGCSStore creates a store bound to bucketName.
func NewGCSStore(ctx context.Context, bucketName string, opts ...StoreOption) (*GCSStore, error) {
	s := &GCSStore{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes: []string{
			storage.ScopeFullControl,
			storage.ScopeReadWrite,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get credentials for storage: %w", err)
	}

	client, err := storage.NewGRPCClient(ctx, option.WithAuthCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.client = client
	s.bucket = client.Bucket(bucketName)

	return s, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Put writes data under path, overwriting any existing blob. Content type
// and metadata are set on the writer so the write is atomic.
func (s *GCSStore) Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error {
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("write blob %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize blob %s: %w", path, err)
	}

	s.logger.InfoContext(ctx, "stored blob",
		slog.String("path", path),
		slog.Int("size", len(data)),
	)
	return nil
}

// Get reads the blob's bytes.
func (s *GCSStore) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a blob is present at path.
func (s *GCSStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.bucket.Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", path, err)
	}
	return true, nil
}

// Delete removes the blob at path. A missing blob is not an error.
func (s *GCSStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", path, err)
	}

	s.logger.InfoContext(ctx, "deleted blob", slog.String("path", path))
	return nil
}

// Stat returns the blob's attributes and custom metadata.
func (s *GCSStore) Stat(ctx context.Context, path string) (*types.BlobInfo, error) {
	attrs, err := s.bucket.Object(path).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("stat blob %s: %w", path, err)
	}
	return infoFromAttrs(attrs), nil
}

// List returns attributes for every blob under prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]*types.BlobInfo, error) {
	var infos []*types.BlobInfo
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list blobs under %s: %w", prefix, err)
		}
		infos = append(infos, infoFromAttrs(attrs))
	}
	return infos, nil
}

func infoFromAttrs(attrs *storage.ObjectAttrs) *types.BlobInfo {
	return &types.BlobInfo{
		Path:        attrs.Name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Created:     attrs.Created,
		Updated:     attrs.Updated,
		Metadata:    attrs.Metadata,
	}
}

// UploadPath maps a normalized filename to its committed object path.
func UploadPath(filename string) string {
	return UploadsPrefix + filename
}

// StagingPath maps a normalized filename to its validation staging path.
func StagingPath(filename string) string {
	return StagingPrefix + filename
}

// TrimUploadPrefix returns the filename portion of a committed object path.
func TrimUploadPrefix(path string) string {
	return strings.TrimPrefix(path, UploadsPrefix)
}

// JoinTags serializes tags for blob metadata.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags parses the tags metadata entry back into a slice.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// JoinDatapointIDs serializes chunk datapoint IDs for blob metadata.
func JoinDatapointIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// SplitDatapointIDs parses the datapoint_ids metadata entry.
func SplitDatapointIDs(raw string) []string {
	return SplitTags(raw)
}
