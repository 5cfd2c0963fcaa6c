// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/isururajakaruna/cymbal-rag-api/types"
)

// SheetExtractor handles tabular files. Each sheet is rendered as labeled
// per-row text so that a row survives chunking as a coherent unit.
type SheetExtractor struct{}

// Extract parses tabular data into sheet sections, one per sheet. CSV input
// yields a single synthetic sheet; xlsx workbooks yield a section per
// non-empty sheet.
func (e *SheetExtractor) Extract(_ context.Context, data []byte, filename, _ string) ([]*types.ExtractedSection, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return e.extractWorkbook(data, filename)
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", filename, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	content := RenderSheet("Sheet1", rows)
	if content == "" {
		return nil, nil
	}

	return []*types.ExtractedSection{
		{
			Content: content,
			Kind:    types.SectionKindSheet,
			Metadata: map[string]string{
				"sheet_name": "Sheet1",
				"rows":       fmt.Sprintf("%d", len(rows)-1),
			},
		},
	}, nil
}

// extractWorkbook renders every sheet of an xlsx workbook. Sheets with no
// data rows are skipped.
func (e *SheetExtractor) extractWorkbook(data []byte, filename string) ([]*types.ExtractedSection, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filename, err)
	}
	defer wb.Close()

	var sections []*types.ExtractedSection
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, filename, err)
		}

		content := RenderSheet(sheet, rows)
		if content == "" {
			continue
		}
		sections = append(sections, &types.ExtractedSection{
			Content: content,
			Kind:    types.SectionKindSheet,
			Metadata: map[string]string{
				"sheet_name": sheet,
				"rows":       fmt.Sprintf("%d", len(rows)-1),
			},
		})
	}
	return sections, nil
}

// RenderSheet formats header + data rows as "Header: value" lines, one
// blank-line-separated block per row. The first row is the header.
func RenderSheet(name string, rows [][]string) string {
	if len(rows) < 2 {
		return ""
	}

	header := rows[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet: %s\n", name)

	for i, row := range rows[1:] {
		fmt.Fprintf(&b, "\nRow %d:\n", i+1)
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			label := fmt.Sprintf("Column %d", j+1)
			if j < len(header) && strings.TrimSpace(header[j]) != "" {
				label = strings.TrimSpace(header[j])
			}
			fmt.Fprintf(&b, "%s: %s\n", label, cell)
		}
	}
	return strings.TrimSpace(b.String())
}
