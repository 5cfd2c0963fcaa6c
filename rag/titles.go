// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const titlePrompt = `Write a short descriptive title (at most ten words) for a document that begins:

%s

Return only the title, no quotes and no commentary.`

// titleSampleSize bounds how much of the document the title prompt sees.
const titleSampleSize = 1500

// generateTitle asks the generative model for a document title based on the
// opening content. Title generation is cosmetic: any failure falls back to
// a name derived from the filename.
func (s *Service) generateTitle(ctx context.Context, filename, opening string) string {
	opening = sampleText(opening, titleSampleSize)

	title, err := s.generative.Generate(ctx, fmt.Sprintf(titlePrompt, opening))
	if err != nil {
		s.logger.WarnContext(ctx, "title generation failed, using filename",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return titleFromFilename(filename)
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"'`))
	if title == "" {
		return titleFromFilename(filename)
	}
	return title
}

// sampleText returns at most limit bytes of s, cut on a rune boundary so a
// multibyte character is never split.
func sampleText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// titleFromFilename humanizes a normalized filename into a display title.
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.ReplaceAll(strings.ReplaceAll(base, "_", " "), "-", " ")
}
