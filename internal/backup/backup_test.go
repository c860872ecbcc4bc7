package backup

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store/memory"
)

func tickClock() func() time.Time {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestWriteReadRestore(t *testing.T) {
	ctx := context.Background()
	src := memory.New().WithClock(tickClock())
	src.Seed("members",
		record.Record{ID: "m1", Fields: map[string]any{"name": "Col Rajesh Kumar", "city": "Pune"}},
		record.Record{ID: "m2", Fields: map[string]any{"name": "Lt Col Priya Singh", "city": "Delhi"}},
	)
	if _, err := src.AddNote(ctx, "members", "m1", record.NoteDraft{Body: "Called, interested"}); err != nil {
		t.Fatalf("note: %v", err)
	}
	if _, err := src.AddNote(ctx, "members", "m1", record.NoteDraft{FollowUpDate: "2024-03-10"}); err != nil {
		t.Fatalf("note: %v", err)
	}

	var buf bytes.Buffer
	stats, err := Write(ctx, &buf, src, "members", nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if stats.Records != 2 || stats.Notes != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	entries, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 4 || entries[0].Kind != KindRecord || entries[1].Kind != KindNote {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].Note.Body != "Called, interested" {
		t.Fatalf("notes should be written oldest first, got %+v", entries[1].Note)
	}

	dst := memory.New().WithClock(tickClock())
	restored, err := Restore(ctx, bytes.NewReader(buf.Bytes()), dst, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != stats {
		t.Fatalf("restored %+v, dumped %+v", restored, stats)
	}
	list, _ := dst.ListRecords(ctx, "members")
	if len(list) != 2 {
		t.Fatalf("expected 2 restored records, got %d", len(list))
	}
	var rajesh record.Record
	for _, rec := range list {
		if rec.String("name") == "Col Rajesh Kumar" {
			rajesh = rec
		}
	}
	notes, _ := dst.ListNotes(ctx, "members", rajesh.ID)
	if len(notes) != 2 || notes[0].FollowUpDate != "2024-03-10" {
		t.Fatalf("restored notes out of order: %+v", notes)
	}
}

func TestReadRejectsPlainText(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte(`{"kind":"record"}`))); err == nil {
		t.Fatalf("expected error for uncompressed input")
	}
}
