// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"strings"
	"time"
)

// Document is a committed knowledge-base file. The blob store owns document
// existence; the vector index only carries a filename back-reference in its
// facets and is never the authority.
type Document struct {
	// Filename is the normalized, stable identity of the document.
	Filename string `json:"filename"`

	// OriginalFilename is the name the client uploaded under.
	OriginalFilename string `json:"original_filename,omitempty"`

	// ContentType is the MIME type of the stored bytes.
	ContentType string `json:"content_type,omitempty"`

	// Size is the stored size in bytes.
	Size int64 `json:"size,omitempty"`

	// Created is the first upload time.
	Created time.Time `json:"created,omitzero"`

	// Updated is the last commit time.
	Updated time.Time `json:"updated,omitzero"`

	// Tags are the free-form labels attached at upload time.
	Tags []string `json:"tags,omitempty"`

	// Title is the generated document title.
	Title string `json:"title,omitempty"`

	// DatapointIDs are the vector index datapoints derived from this
	// document. This list is the durable record used to delete vectors when
	// the document is replaced or removed.
	DatapointIDs []string `json:"datapoint_ids,omitempty"`
}

// SectionKind tags the extraction type of a document section.
type SectionKind string

const (
	SectionKindParagraph   SectionKind = "paragraph"
	SectionKindTable       SectionKind = "table"
	SectionKindOCRText     SectionKind = "ocr_text"
	SectionKindSheet       SectionKind = "spreadsheet_sheet"
	SectionKindPDFPage     SectionKind = "pdf_page"
	SectionKindImage       SectionKind = "image_analysis"
	SectionKindPlainText   SectionKind = "text_chunk"
	SectionKindUnspecified SectionKind = ""
)

// ExtractedSection is a unit of raw text produced by a document extractor,
// before chunking. A PDF page, a spreadsheet sheet, or a whole plain-text
// file each become one section.
type ExtractedSection struct {
	// Content is the extracted text.
	Content string `json:"content"`

	// Kind is the extraction type of this section.
	Kind SectionKind `json:"kind,omitempty"`

	// Metadata carries section-level attributes such as page number or
	// sheet name.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Chunk is a bounded span of a document's extracted text, the unit of
// embedding and retrieval. Chunks are immutable once created.
type Chunk struct {
	// ID is the globally unique datapoint identifier.
	ID string `json:"id"`

	// Index is the chunk's ordinal within its document.
	Index int `json:"index"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Start and End are character offsets into the source text the chunk
	// was cut from.
	Start int `json:"start"`
	End   int `json:"end"`

	// Kind is the extraction type inherited from the source section.
	Kind SectionKind `json:"kind,omitempty"`

	// Metadata carries chunk-level attributes (page number, sheet name,
	// merged chunk count).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a single matched chunk from a retrieval query.
type SearchResult struct {
	// Content is the matched chunk text.
	Content string `json:"content"`

	// Filename is the normalized source document identity.
	Filename string `json:"filename"`

	// ChunkIndex is the chunk's ordinal within the source document.
	ChunkIndex int `json:"chunk_index"`

	// SimilarityScore is the relevance score, higher is better. After
	// reranking it holds the reranker's relevance score instead of the raw
	// index similarity.
	SimilarityScore float64 `json:"similarity_score"`

	// Metadata carries the denormalized facets of the matched datapoint.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// FileResult groups the matched chunks of one document, enriched with
// file-level metadata from the blob store.
type FileResult struct {
	// Name is the normalized document identity.
	Name string `json:"name"`

	// Path is the blob path of the stored file.
	Path string `json:"path,omitempty"`

	// FileType is the content type, annotated with the extension when known.
	FileType string `json:"file_type,omitempty"`

	// Size is the stored size in bytes.
	Size int64 `json:"size,omitempty"`

	// LastUpdated is the blob's last update time.
	LastUpdated time.Time `json:"last_updated,omitzero"`

	// Tags are the document's labels.
	Tags []string `json:"tags,omitempty"`

	// Title is the generated document title, when available.
	Title string `json:"title,omitempty"`

	// MatchedChunks are the query's surviving results for this document,
	// in rank order.
	MatchedChunks []*SearchResult `json:"matched_chunks"`
}

// ValidationSession is a staged, not-yet-committed upload pending a content
// quality decision. Sessions live in the blob store's staging area keyed by
// ValidationID; expiry is an external concern.
type ValidationSession struct {
	// ValidationID is the generated key the commit call presents.
	ValidationID string `json:"validation_id"`

	// Filename is the original upload name.
	Filename string `json:"filename"`

	// ContentType is the declared or inferred MIME type.
	ContentType string `json:"content_type,omitempty"`

	// Size is the staged size in bytes.
	Size int64 `json:"size,omitempty"`

	// StagingPath is the blob path of the staged copy.
	StagingPath string `json:"staging_path,omitempty"`

	// QualityScore is the 1-10 content quality verdict.
	QualityScore int `json:"quality_score,omitempty"`

	// Reasoning is the quality model's one-line justification.
	Reasoning string `json:"reasoning,omitempty"`
}

// NormalizeFilename returns the stable document identity for an uploaded
// filename: spaces become underscores, colons and slashes become dashes.
// Two uploads with the same original name map to the same identity.
func NormalizeFilename(filename string) string {
	r := strings.NewReplacer(" ", "_", ":", "-", "/", "-", "\\", "-")
	return r.Replace(filename)
}
