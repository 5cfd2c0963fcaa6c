// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package chunking

import (
	"regexp"
	"strings"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits text on blank lines, one chunk per non-empty paragraph.
// Used for content whose natural unit is already small, such as extracted
// table row groups.
func Paragraphs(text string, metadata map[string]string) []*types.Chunk {
	var chunks []*types.Chunk
	for _, para := range paragraphSplit.Split(text, -1) {
		content := strings.TrimSpace(para)
		if content == "" {
			continue
		}
		chunks = append(chunks, &types.Chunk{
			Index:    len(chunks),
			Content:  content,
			Kind:     types.SectionKindParagraph,
			Metadata: cloneMeta(metadata),
		})
	}
	return chunks
}

// Lines groups consecutive lines into chunks of at most maxSize characters.
// A line is kept whole unless it alone exceeds maxSize, in which case it is
// split by the sliding-window chunker. Used for text where line structure
// carries meaning.
func Lines(text string, maxSize int, metadata map[string]string) []*types.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	window, _ := New(maxSize, 0)

	var chunks []*types.Chunk
	var current []string
	size := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(current, "\n"))
		if content != "" {
			chunks = append(chunks, &types.Chunk{
				Index:    len(chunks),
				Content:  content,
				Kind:     types.SectionKindPlainText,
				Metadata: cloneMeta(metadata),
			})
		}
		current = current[:0]
		size = 0
	}

	for _, line := range strings.Split(text, "\n") {
		if len(line) > maxSize {
			flush()
			for _, part := range window.Chunk(line, metadata) {
				chunks = append(chunks, &types.Chunk{
					Index:    len(chunks),
					Content:  part.Content,
					Kind:     types.SectionKindPlainText,
					Metadata: cloneMeta(metadata),
				})
			}
			continue
		}
		if size+len(line) > maxSize && len(current) > 0 {
			flush()
		}
		current = append(current, line)
		size += len(line)
	}
	flush()

	return chunks
}
