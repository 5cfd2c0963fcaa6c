// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// TextExtractor handles plain text and markdown files.
type TextExtractor struct{}

// Extract returns the decoded text as a single section. Markdown is tagged
// as paragraph-structured so chunking can cut on paragraph boundaries
// instead of the sliding window.
func (e *TextExtractor) Extract(_ context.Context, data []byte, filename, _ string) ([]*types.ExtractedSection, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text", filename)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}

	kind := types.SectionKindPlainText
	if strings.EqualFold(filepath.Ext(filename), ".md") {
		kind = types.SectionKindParagraph
	}

	return []*types.ExtractedSection{
		{
			Kind:    kind,
			Content: text,
		},
	}, nil
}
