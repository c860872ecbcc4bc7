// Package export writes the visible rows of a list page to an XLSX workbook.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename names the download, e.g. members-2024-03-01.xlsx.
func Filename(page pages.Page, now time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", page.Slug, now.Format("2006-01-02"))
}

// XLSX renders rows with the page's export columns in order. Values are
// written as their comparable text so the sheet matches what staff saw.
func XLSX(page pages.Page, rows []record.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := page.Title
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(page.Export))
	for i, col := range page.Export {
		header[i] = col.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r, rec := range rows {
		values := make([]any, len(page.Export))
		for i, col := range page.Export {
			values[i] = cell(rec, col.Field)
		}
		anchor, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, anchor, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r, err)
		}
	}

	if len(page.Export) > 0 {
		if err := style(f, sheet, page.Export, len(rows)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func cell(rec record.Record, field string) any {
	raw, ok := rec.Fields[field]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case int, int32, int64, float64:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	text, _ := record.Text(raw)
	return strings.TrimSpace(text)
}

func style(f *excelize.File, sheet string, cols []pages.Column, rowCount int) error {
	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"556B2F"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	for i, col := range cols {
		width := col.Width
		if width <= 0 {
			width = 16
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	lastRow := rowCount + 1
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
		return fmt.Errorf("autofilter: %w", err)
	}
	return nil
}
