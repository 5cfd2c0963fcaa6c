// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package chunking

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// boundaryWindow is how far back from a raw cut the chunker searches for a
// sentence boundary.
const boundaryWindow = 100

// Chunker splits extracted document text into bounded, overlapping segments,
// preferring sentence boundaries over raw cuts.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a Chunker. overlap must be smaller than maxSize; an overlap at
// or above the chunk size would prevent the window from advancing.
func New(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", maxSize, overlap)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// MaxSize returns the configured maximum chunk length in characters.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Overlap returns the configured overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered chunks. Each chunk records the character
// window it was cut from and carries a copy of metadata. Whitespace-only
// input produces no chunks; input at or under the maximum produces exactly
// one chunk.
func (c *Chunker) Chunk(text string, metadata map[string]string) []*types.Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(text) <= c.maxSize {
		return []*types.Chunk{{
			Index:    0,
			Content:  trimmed,
			Start:    0,
			End:      len(text),
			Metadata: cloneMeta(metadata),
		}}
	}

	var chunks []*types.Chunk
	start := 0
	for start < len(text) {
		end := start + c.maxSize
		if end < len(text) {
			// Prefer cutting at a sentence boundary just behind the raw
			// window edge.
			// Only accept a boundary that still advances the window past
			// the overlap, otherwise the cut could move backward.
			searchStart := max(start, end-boundaryWindow)
			if b := sentenceBoundary(text, searchStart, end); b > start+c.overlap {
				end = b
			}
		}

		// The window may extend past the text; clamp only the cut. The
		// advance below uses the unclamped end so the loop terminates.
		cut := min(end, len(text))
		if content := strings.TrimSpace(text[start:cut]); content != "" {
			chunks = append(chunks, &types.Chunk{
				Index:    len(chunks),
				Content:  content,
				Start:    start,
				End:      cut,
				Metadata: cloneMeta(metadata),
			})
		}

		start = end - c.overlap
		if start >= len(text) {
			break
		}
	}

	return chunks
}

// sentenceBoundary scans backward through text[start:end] for a sentence
// ending and returns the cut position just after it, or 0 when the window
// holds none. A '.', '!' or '?' counts when followed by whitespace or
// end-of-string; a blank line counts unconditionally.
func sentenceBoundary(text string, start, end int) int {
	for i := end - 1; i > start; i-- {
		switch text[i] {
		case '.', '!', '?':
			if i+1 >= len(text) || unicode.IsSpace(rune(text[i+1])) {
				return i + 1
			}
		case '\n':
			if i+1 < len(text) && text[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return 0
}

// MergeToCap reduces chunks to at most maxChunks by repeatedly merging the
// adjacent pair with the smallest combined length. This bounds index growth
// while keeping as much of the original granularity as possible. Merged
// chunks are renumbered and record how many source chunks they absorbed.
func MergeToCap(chunks []*types.Chunk, maxChunks int) []*types.Chunk {
	if maxChunks <= 0 || len(chunks) <= maxChunks {
		return chunks
	}

	merged := make([]*types.Chunk, len(chunks))
	copy(merged, chunks)

	for len(merged) > maxChunks {
		best := 0
		bestLen := len(merged[0].Content) + len(merged[1].Content)
		for i := 1; i < len(merged)-1; i++ {
			if l := len(merged[i].Content) + len(merged[i+1].Content); l < bestLen {
				best, bestLen = i, l
			}
		}
		merged[best] = mergePair(merged[best], merged[best+1])
		merged = append(merged[:best+1], merged[best+2:]...)
	}

	for i, ch := range merged {
		ch.Index = i
	}
	return merged
}

func mergePair(a, b *types.Chunk) *types.Chunk {
	meta := cloneMeta(a.Metadata)
	if meta == nil {
		meta = make(map[string]string)
	}
	count := mergedCount(a) + mergedCount(b)
	meta["merged_chunks"] = fmt.Sprintf("%d", count)

	return &types.Chunk{
		Index:    a.Index,
		Content:  a.Content + "\n\n" + b.Content,
		Start:    a.Start,
		End:      b.End,
		Kind:     a.Kind,
		Metadata: meta,
	}
}

func mergedCount(ch *types.Chunk) int {
	if ch.Metadata == nil {
		return 1
	}
	var n int
	if _, err := fmt.Sscanf(ch.Metadata["merged_chunks"], "%d", &n); err != nil || n < 1 {
		return 1
	}
	return n
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
