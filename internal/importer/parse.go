package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/extrame/xls"
	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
)

const maxRows = 100000

// Parse decodes an uploaded .csv, .xlsx or .xls file. The first row is the
// header. Rows whose cells are all blank are skipped.
func Parse(r io.Reader, filename string) ([]Row, error) {
	table, err := readTable(r, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	header := mapHeader(table[0])
	recognized := false
	for _, h := range header {
		if !strings.HasPrefix(h, "_") {
			recognized = true
			break
		}
	}
	if !recognized {
		return nil, fmt.Errorf("%w: no recognized columns in header", ErrParse)
	}

	dec, err := csvutil.NewDecoder(&tableReader{rows: table[1:], width: len(header)}, header...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	rows := []Row{}
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return rows, nil
}

// mapHeader replaces each header with its field name. Unknown and repeated
// headers get unique placeholders so the decoder skips them.
func mapHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		field := canonicalHeader(h)
		if field == "" || seen[field] {
			out[i] = "_col" + strconv.Itoa(i)
			continue
		}
		seen[field] = true
		out[i] = field
	}
	return out
}

// tableReader feeds pre-read rows to csvutil, padding or trimming each row to
// the header width and skipping blank lines.
type tableReader struct {
	rows  [][]string
	width int
	next  int
}

func (t *tableReader) Read() ([]string, error) {
	for t.next < len(t.rows) {
		row := t.rows[t.next]
		t.next++
		if blank(row) {
			continue
		}
		out := make([]string, t.width)
		for i := 0; i < t.width && i < len(row); i++ {
			out[i] = strings.TrimSpace(row[i])
		}
		return out, nil
	}
	return nil, io.EOF
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readTable(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("file is empty")
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err = r.ReadAll()
		if err != nil {
			return nil, err
		}
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, errors.New("no worksheet found")
		}
		rows = workbook.ReadAllCells(maxRows)
	case ".xlsx":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, errors.New("no worksheet found")
		}
		// Raw values keep date cells as serials; formatted ones come back
		// month-first (mm-dd-yy) whatever the sheet's locale.
		rows, err = file.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type %q; upload .csv, .xlsx or .xls", filepath.Ext(filename))
	}
	if len(rows) == 0 || blank(rows[0]) {
		return nil, errors.New("header row is missing")
	}
	return rows, nil
}

// Fields converts a decoded row into the record fields for page. Every field
// the page exports is present; missing text is "" and missing counts are 0.
func Fields(page pages.Page, row Row) map[string]any {
	values := row.values()
	out := make(map[string]any, len(page.Export))
	for _, col := range page.Export {
		value := values[col.Field]
		switch {
		case numericFields[col.Field]:
			out[col.Field] = toInt(value)
		case dateFields[col.Field]:
			out[col.Field] = formatDate(value)
		default:
			out[col.Field] = value
		}
	}
	return out
}
