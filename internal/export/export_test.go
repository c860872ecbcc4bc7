package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/xuri/excelize/v2"
)

func TestXLSXWritesHeaderAndRows(t *testing.T) {
	page, _ := pages.Lookup("members")
	rows := []record.Record{
		{ID: "1", Fields: map[string]any{"name": "Col Rajesh Kumar", "city": "Pune", "experienceYears": 22}},
		{ID: "2", Fields: map[string]any{"name": "Lt Col Priya Singh", "skills": "Driving, Security"}},
	}
	data, err := XLSX(page, rows)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(page.Title)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(got))
	}
	if got[0][0] != "Full Name" || got[1][0] != "Col Rajesh Kumar" {
		t.Fatalf("unexpected sheet %v", got)
	}
	cityCol := -1
	yearsCol := -1
	for i, col := range page.Export {
		switch col.Field {
		case "city":
			cityCol = i
		case "experienceYears":
			yearsCol = i
		}
	}
	if got[1][cityCol] != "Pune" || got[1][yearsCol] != "22" {
		t.Fatalf("unexpected first row %v", got[1])
	}
}

func TestXLSXEmptyList(t *testing.T) {
	page, _ := pages.Lookup("jobs")
	data, err := XLSX(page, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	got, _ := f.GetRows(page.Title)
	if len(got) != 1 {
		t.Fatalf("expected only the header row, got %d", len(got))
	}
}

func TestFilename(t *testing.T) {
	page, _ := pages.Lookup("candidates")
	if got := Filename(page, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); got != "candidates-2024-03-01.xlsx" {
		t.Fatalf("got %s", got)
	}
}
