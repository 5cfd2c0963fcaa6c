// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

const pdfAnalysisPrompt = `Extract all content from this document for a searchable knowledge base.
Transcribe every paragraph, table, and figure caption faithfully.
Render tables as labeled rows. Describe charts and images in one or two sentences.
Separate pages with a line reading "--- Page N ---".
Return only the extracted content, no commentary.`

const imageAnalysisPrompt = `Describe this image for a searchable knowledge base.
Transcribe any visible text exactly. Describe diagrams, charts, and photos
in enough detail that a text search could find them.
Return only the description, no commentary.`

// VisualExtractor handles PDFs and images by sending the raw bytes to the
// multimodal generative model and treating its analysis as the document
// text.
type VisualExtractor struct {
	generative types.GenerativeService
}

// NewVisualExtractor creates a visual extractor.
func NewVisualExtractor(generative types.GenerativeService) *VisualExtractor {
	return &VisualExtractor{generative: generative}
}

// Extract analyzes data with the generative model. PDFs come back split per
// page; images produce a single analysis section.
func (e *VisualExtractor) Extract(ctx context.Context, data []byte, filename, contentType string) ([]*types.ExtractedSection, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == ".pdf" {
		analysis, err := e.generative.GenerateWithImage(ctx, pdfAnalysisPrompt, data, "application/pdf")
		if err != nil {
			return nil, fmt.Errorf("analyze pdf %s: %w", filename, err)
		}
		return splitPages(analysis), nil
	}

	mimeType := contentType
	if mimeType == "" {
		mimeType = SupportedExtensions[ext]
	}
	analysis, err := e.generative.GenerateWithImage(ctx, imageAnalysisPrompt, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("analyze image %s: %w", filename, err)
	}

	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return nil, nil
	}
	return []*types.ExtractedSection{
		{
			Content: analysis,
			Kind:    types.SectionKindImage,
		},
	}, nil
}

// splitPages cuts a PDF analysis on its "--- Page N ---" markers. Without
// markers the whole analysis is one page.
func splitPages(analysis string) []*types.ExtractedSection {
	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return nil
	}

	parts := strings.Split(analysis, "--- Page ")
	var sections []*types.ExtractedSection
	page := 0
	for i, part := range parts {
		if i > 0 {
			// Drop the "N ---" remainder of the marker line.
			if idx := strings.Index(part, "---"); idx >= 0 {
				part = part[idx+len("---"):]
			}
		}
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		page++
		sections = append(sections, &types.ExtractedSection{
			Content: text,
			Kind:    types.SectionKindPDFPage,
			Metadata: map[string]string{
				"page": fmt.Sprintf("%d", page),
			},
		})
	}
	return sections
}
