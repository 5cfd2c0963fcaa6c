// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package extractor converts uploaded bytes into ordered text sections.
//
// Plain text, CSV, and xlsx workbooks are decoded locally. PDFs and images
// are handed to the multimodal generative model, which returns a structured
// text analysis of the document's pages; that analysis is what gets chunked
// and embedded.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// SupportedExtensions maps accepted file extensions to their canonical
// content types. The gate is by extension first; the declared content type
// must agree.
var SupportedExtensions = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Supported reports whether the filename/content-type pair is accepted.
// Content type checks ignore parameters ("text/plain; charset=utf-8").
func Supported(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	canonical, ok := SupportedExtensions[ext]
	if !ok {
		return false
	}
	if contentType == "" {
		return true
	}
	declared := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if declared == canonical {
		return true
	}
	// Generic uploads carry no usable type; the extension decides.
	if declared == "application/octet-stream" {
		return true
	}
	// Browsers commonly send markdown and CSV as text/plain.
	return declared == "text/plain" && strings.HasPrefix(canonical, "text/")
}

// SupportedList returns the accepted extensions for error messages, in a
// stable order.
func SupportedList() []string {
	return []string{".csv", ".jpeg", ".jpg", ".md", ".pdf", ".png", ".txt", ".xlsx"}
}

// Service routes a file to its per-format extraction adapter.
type Service struct {
	text   *TextExtractor
	sheet  *SheetExtractor
	visual *VisualExtractor
	logger *slog.Logger
}

var _ types.Extractor = (*Service)(nil)

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates an extraction service. The generative service handles
// PDF and image analysis.
func NewService(generative types.GenerativeService, opts ...ServiceOption) *Service {
	s := &Service{
		text:   &TextExtractor{},
		sheet:  &SheetExtractor{},
		visual: NewVisualExtractor(generative),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract converts data into ordered text sections, dispatching on the file
// extension.
func (s *Service) Extract(ctx context.Context, data []byte, filename, contentType string) ([]*types.ExtractedSection, error) {
	if !Supported(filename, contentType) {
		return nil, &types.UnsupportedFormatError{
			ContentType: contentType,
			Extension:   strings.ToLower(filepath.Ext(filename)),
			Supported:   SupportedList(),
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	s.logger.InfoContext(ctx, "extracting document",
		slog.String("filename", filename),
		slog.String("extension", ext),
		slog.Int("size", len(data)),
	)

	switch ext {
	case ".txt", ".md":
		return s.text.Extract(ctx, data, filename, contentType)
	case ".csv", ".xlsx":
		return s.sheet.Extract(ctx, data, filename, contentType)
	case ".pdf", ".png", ".jpg", ".jpeg":
		return s.visual.Extract(ctx, data, filename, contentType)
	default:
		// Unreachable while Supported and this switch agree.
		return nil, fmt.Errorf("no extractor for %s", ext)
	}
}
