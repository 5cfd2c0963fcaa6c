// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/isururajakaruna/cymbal-rag-api/blobstore"
	"github.com/isururajakaruna/cymbal-rag-api/extractor"
	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// sentinelSubstrings in a filename indicate known-empty or placeholder
// content; such uploads are rejected without spending a quality-model call.
var sentinelSubstrings = []string{"no_info", "empty", "blank", "placeholder"}

// neutralQualityScore is assumed when the quality model itself errors.
// Availability wins over strict gating.
const neutralQualityScore = 5

const qualityPrompt = `Score this document's suitability as business documentation for a knowledge base, from 1 (useless: empty, placeholder, or noise) to 10 (complete, well-structured documentation).

Respond with JSON only: {"score": <1-10>, "reasoning": "<one sentence>"}`

// qualitySampleSize bounds how much text the quality prompt sees.
const qualitySampleSize = 4000

// ValidationResult is the gate's verdict on one staged upload.
type ValidationResult struct {
	// Accepted reports whether the file may be committed.
	Accepted bool `json:"accepted"`

	// Session describes the staged file. Set only when accepted.
	Session *types.ValidationSession `json:"session,omitempty"`

	// Reason explains a rejection, surfaced to the caller.
	Reason string `json:"reason,omitempty"`
}

type qualityVerdict struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// Validate runs the pre-ingestion gate: format allow-list, sentinel
// filename fast-reject, then a generative quality score. Accepted files are
// staged under a generated validation ID for a later [Service.Commit].
func (s *Service) Validate(ctx context.Context, data []byte, filename, contentType string) (*ValidationResult, error) {
	if err := s.checkUpload(data, filename, contentType); err != nil {
		return nil, err
	}

	lower := strings.ToLower(filename)
	for _, sentinel := range sentinelSubstrings {
		if strings.Contains(lower, sentinel) {
			s.logger.InfoContext(ctx, "rejected upload by filename sentinel",
				slog.String("filename", filename),
				slog.String("sentinel", sentinel),
			)
			return &ValidationResult{
				Accepted: false,
				Reason:   fmt.Sprintf("filename %q indicates placeholder or empty content", filename),
			}, nil
		}
	}

	verdict := s.scoreQuality(ctx, data, filename, contentType)
	if verdict.Score < s.cfg.MinQualityScore {
		return &ValidationResult{
			Accepted: false,
			Reason:   fmt.Sprintf("content quality score %d is below the minimum %d: %s", verdict.Score, s.cfg.MinQualityScore, verdict.Reasoning),
		}, nil
	}

	validationID := uuid.NewString()
	normalized := types.NormalizeFilename(filename)
	stagingPath := blobstore.StagingPath(validationID + "_" + normalized)

	metadata := map[string]string{
		blobstore.MetaValidationID:     validationID,
		blobstore.MetaOriginalFilename: filename,
		blobstore.MetaQualityScore:     strconv.Itoa(verdict.Score),
	}
	if err := s.store.Put(ctx, stagingPath, data, contentType, metadata); err != nil {
		return nil, fmt.Errorf("stage validated upload: %w", err)
	}

	s.logger.InfoContext(ctx, "upload validated and staged",
		slog.String("filename", filename),
		slog.String("validation_id", validationID),
		slog.Int("quality_score", verdict.Score),
	)

	return &ValidationResult{
		Accepted: true,
		Session: &types.ValidationSession{
			ValidationID: validationID,
			Filename:     filename,
			ContentType:  contentType,
			Size:         int64(len(data)),
			StagingPath:  stagingPath,
			QualityScore: verdict.Score,
			Reasoning:    verdict.Reasoning,
		},
	}, nil
}

// Commit promotes a staged upload into a committed document by running the
// full ingestion pipeline on the staged bytes, then removing the staged
// copy.
func (s *Service) Commit(ctx context.Context, validationID string, tags []string, replaceExisting bool) (*IngestResult, error) {
	if validationID == "" {
		return nil, &types.ValidationError{Field: "validation_id", Message: "validation_id is required"}
	}

	staged, err := s.findStaged(ctx, validationID)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Get(ctx, staged.Path)
	if err != nil {
		return nil, fmt.Errorf("read staged upload: %w", err)
	}

	result, err := s.Ingest(ctx, &IngestRequest{
		Data:            data,
		Filename:        staged.Metadata[blobstore.MetaOriginalFilename],
		ContentType:     staged.ContentType,
		Tags:            tags,
		ReplaceExisting: replaceExisting,
	})
	if err != nil {
		return nil, err
	}

	// The staged copy is no longer needed; a failed cleanup only leaves
	// garbage in the staging area.
	if err := s.store.Delete(ctx, staged.Path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove staged upload",
			slog.String("path", staged.Path),
			slog.Any("error", err),
		)
	}
	return result, nil
}

// findStaged locates the staging blob carrying validationID in its
// metadata.
func (s *Service) findStaged(ctx context.Context, validationID string) (*types.BlobInfo, error) {
	staged, err := s.store.List(ctx, blobstore.StagingPrefix)
	if err != nil {
		return nil, fmt.Errorf("list staged uploads: %w", err)
	}
	for _, info := range staged {
		if info.Metadata[blobstore.MetaValidationID] == validationID {
			return info, nil
		}
	}
	return nil, &types.ValidationError{
		Field:      "validation_id",
		Message:    fmt.Sprintf("no staged upload for validation_id %q", validationID),
		Suggestion: "validate the file again before committing",
	}
}

// scoreQuality asks the generative model for a 1-10 suitability verdict.
// PDFs and images go to the multimodal call; text formats send a content
// sample. A model failure yields a neutral accepting verdict.
func (s *Service) scoreQuality(ctx context.Context, data []byte, filename, contentType string) qualityVerdict {
	ext := strings.ToLower(filepath.Ext(filename))

	var raw string
	var err error
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg":
		mimeType := contentType
		if mimeType == "" {
			mimeType = extractor.SupportedExtensions[ext]
		}
		raw, err = s.generative.GenerateWithImage(ctx, qualityPrompt, data, mimeType)
	default:
		// Binary formats such as xlsx are judged by name only; their raw
		// bytes are useless as a text sample.
		sample := "Binary file: " + filename
		if utf8.Valid(data) {
			sample = sampleText(string(data), qualitySampleSize)
		}
		raw, err = s.generative.Generate(ctx, qualityPrompt+"\n\nDocument content:\n"+sample)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "quality check failed, assuming neutral score",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return qualityVerdict{Score: neutralQualityScore, Reasoning: "quality check unavailable"}
	}

	verdict, err := parseQualityVerdict(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "unparseable quality verdict, assuming neutral score",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return qualityVerdict{Score: neutralQualityScore, Reasoning: "quality check unavailable"}
	}
	return verdict
}

// parseQualityVerdict extracts the JSON verdict from the model response,
// tolerating surrounding prose and markdown fences.
func parseQualityVerdict(raw string) (qualityVerdict, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return qualityVerdict{}, fmt.Errorf("no JSON object in quality response")
	}

	var verdict qualityVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return qualityVerdict{}, fmt.Errorf("parse quality verdict: %w", err)
	}
	if verdict.Score < 1 || verdict.Score > 10 {
		return qualityVerdict{}, fmt.Errorf("quality score %d out of range", verdict.Score)
	}
	return verdict, nil
}
