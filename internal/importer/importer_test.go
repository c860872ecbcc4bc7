package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store/memory"
	"github.com/xuri/excelize/v2"
)

const testPassword = "olive-import-2024"

const membersCSV = "Full Name,Mobile Number, entry  date ,Experience (Years),City,Skills,Favourite Colour\n" +
	"Col Rajesh Kumar,9822011111,15/08/2019,22,Pune,\"Driving, Security\",blue\n" +
	"\n" +
	"Lt Col Priya Singh,9822022222,not a date,,Delhi\n"

func members(t *testing.T) pages.Page {
	t.Helper()
	p, ok := pages.Lookup("members")
	if !ok {
		t.Fatalf("members page missing")
	}
	return p
}

func newImporter(t *testing.T) (*Importer, *memory.Store) {
	t.Helper()
	gate, err := NewGate("", testPassword)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	s := memory.New()
	return New(s, gate, nil, nil), s
}

func TestParseCSVMapsHeaders(t *testing.T) {
	rows, err := Parse(strings.NewReader(membersCSV), "members.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Col Rajesh Kumar" || rows[0].Mobile != "9822011111" || rows[0].Skills != "Driving, Security" {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].City != "Delhi" || rows[1].Skills != "" {
		t.Fatalf("short row should pad with blanks: %+v", rows[1])
	}
}

func TestFieldsDefaultsAndDates(t *testing.T) {
	rows, err := Parse(strings.NewReader(membersCSV), "members.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	first := Fields(members(t), rows[0])
	if first["entryDate"] != "15 Aug 2019" {
		t.Fatalf("entryDate = %v", first["entryDate"])
	}
	if first["experienceYears"] != 22 {
		t.Fatalf("experienceYears = %#v", first["experienceYears"])
	}
	if v, ok := first["rank"]; !ok || v != "" {
		t.Fatalf("missing header should default to empty string, got %#v", v)
	}
	second := Fields(members(t), rows[1])
	if second["entryDate"] != "not a date" {
		t.Fatalf("unparseable date should be kept, got %v", second["entryDate"])
	}
	if second["experienceYears"] != 0 {
		t.Fatalf("blank count should default to 0, got %#v", second["experienceYears"])
	}
	if _, ok := second["favourite colour"]; ok {
		t.Fatalf("unrecognized header leaked into fields")
	}
}

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"2019-08-15":      "15 Aug 2019",
		"15-08-2019":      "15 Aug 2019",
		"5/3/2021":        "05 Mar 2021",
		"15 Aug 2019":     "15 Aug 2019",
		"August 15, 2019": "15 Aug 2019",
		"43692":           "15 Aug 2019",
		"2019":            "2019",
		"":                "",
		"soon":            "soon",
	}
	for in, want := range cases {
		if got := formatDate(in); got != want {
			t.Fatalf("formatDate(%q) = %q want %q", in, got, want)
		}
	}
}

func TestImportWritesRows(t *testing.T) {
	im, s := newImporter(t)
	res, err := im.Import(context.Background(), members(t), "members.csv", strings.NewReader(membersCSV), testPassword)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Parsed != 2 || res.Written != 2 || res.StoppedAt != -1 {
		t.Fatalf("unexpected result %+v", res)
	}
	list, _ := s.ListRecords(context.Background(), "members")
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
}

func TestImportRejectsWrongPassword(t *testing.T) {
	im, s := newImporter(t)
	_, err := im.Import(context.Background(), members(t), "members.csv", strings.NewReader(membersCSV), "not-the-password")
	if !errors.Is(err, ErrPasswordRejected) {
		t.Fatalf("expected ErrPasswordRejected, got %v", err)
	}
	if list, _ := s.ListRecords(context.Background(), "members"); len(list) != 0 {
		t.Fatalf("rejected import wrote %d records", len(list))
	}
}

func TestImportDisabledWithoutPassword(t *testing.T) {
	gate, err := NewGate("", "")
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	im := New(memory.New(), gate, nil, nil)
	if im.Enabled() {
		t.Fatalf("expected disabled importer")
	}
	if _, err := im.Import(context.Background(), members(t), "a.csv", strings.NewReader(membersCSV), ""); !errors.Is(err, ErrImportsDisabled) {
		t.Fatalf("expected ErrImportsDisabled, got %v", err)
	}
}

func TestImportParseFailureWritesNothing(t *testing.T) {
	im, s := newImporter(t)
	cases := map[string]string{
		"members.csv":  "Favourite Colour,Shoe Size\nblue,9\n",
		"empty.csv":    "   ",
		"members.pdf":  membersCSV,
		"members.xlsx": "not a workbook",
	}
	for name, body := range cases {
		_, err := im.Import(context.Background(), members(t), name, strings.NewReader(body), testPassword)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("%s: expected ErrParse, got %v", name, err)
		}
	}
	if list, _ := s.ListRecords(context.Background(), "members"); len(list) != 0 {
		t.Fatalf("parse failure wrote %d records", len(list))
	}
}

type flakyRecords struct {
	*memory.Store
	failAfter int
	calls     int
}

func (f *flakyRecords) CreateRecord(ctx context.Context, collection string, fields map[string]any) (record.Record, error) {
	f.calls++
	if f.calls > f.failAfter {
		return record.Record{}, errors.New("quota exceeded")
	}
	return f.Store.CreateRecord(ctx, collection, fields)
}

type recordingObserver struct {
	results []Result
}

func (o *recordingObserver) ImportFinished(_ string, res Result, _ error) {
	o.results = append(o.results, res)
}

func TestImportStopsAtFirstWriteFailure(t *testing.T) {
	gate, _ := NewGate("", testPassword)
	repo := &flakyRecords{Store: memory.New(), failAfter: 1}
	obs := &recordingObserver{}
	im := New(repo, gate, obs, nil)

	res, err := im.Import(context.Background(), members(t), "members.csv", strings.NewReader(membersCSV), testPassword)
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	if res.Written != 1 || res.StoppedAt != 1 || !res.Partial() || res.Error == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if list, _ := repo.ListRecords(context.Background(), "members"); len(list) != 1 {
		t.Fatalf("written rows should be kept, got %d", len(list))
	}
	if len(obs.results) != 1 || obs.results[0].StoppedAt != 1 {
		t.Fatalf("observer not notified: %+v", obs.results)
	}
}

func TestImportFailureOnFirstRowIsNotPartial(t *testing.T) {
	gate, _ := NewGate("", testPassword)
	repo := &flakyRecords{Store: memory.New(), failAfter: 0}
	im := New(repo, gate, nil, nil)

	res, err := im.Import(context.Background(), members(t), "members.csv", strings.NewReader(membersCSV), testPassword)
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	if res.Written != 0 || res.StoppedAt != 0 || res.Partial() {
		t.Fatalf("nothing was written, got %+v partial=%v", res, res.Partial())
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"Title", "Company", "Vacancies", "Skills"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{"Security Supervisor", "Acme Facilities", 4, "Security, Leadership"})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	rows, err := Parse(bytes.NewReader(buf.Bytes()), "jobs.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Security Supervisor" || rows[0].Openings != "4" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	jobs, _ := pages.Lookup("jobs")
	fields := Fields(jobs, rows[0])
	if fields["openings"] != 4 || fields["company"] != "Acme Facilities" {
		t.Fatalf("unexpected fields %#v", fields)
	}
}

func TestParseXLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"Full Name", "Entry Date"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{"Col Rajesh Kumar", time.Date(2021, time.May, 6, 0, 0, 0, 0, time.UTC)})
	_ = f.SetSheetRow(sheet, "A3", &[]any{"Lt Col Priya Singh", time.Date(2019, time.March, 11, 0, 0, 0, 0, time.UTC)})
	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	if err := f.SetCellStyle(sheet, "B3", "B3", style); err != nil {
		t.Fatalf("set style: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	rows, err := Parse(bytes.NewReader(buf.Bytes()), "members.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	page := members(t)
	for i, want := range []string{"06 May 2021", "11 Mar 2019"} {
		if got := Fields(page, rows[i])["entryDate"]; got != want {
			t.Fatalf("row %d entryDate = %v (raw %q), want %s", i, got, rows[i].EntryDate, want)
		}
	}
}

func TestNewGateWithStoredHash(t *testing.T) {
	if _, err := NewGate("garbage", ""); err == nil {
		t.Fatalf("expected malformed hash error")
	}
	seed, _ := NewGate("", testPassword)
	gate, err := NewGate(seed.hash, "")
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if gate.Check(testPassword) != nil || !errors.Is(gate.Check("x"), ErrPasswordRejected) {
		t.Fatalf("stored hash gate misbehaves")
	}
}
