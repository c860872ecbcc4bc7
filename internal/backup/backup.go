// Package backup dumps a collection and its notes as xz-compressed JSON
// lines and restores such dumps into any store backend.
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
	"github.com/ulikunitz/xz"
)

const (
	KindRecord = "record"
	KindNote   = "note"
)

// Entry is one line of a dump.
type Entry struct {
	Kind       string         `json:"kind"`
	Collection string         `json:"collection"`
	Record     *record.Record `json:"record,omitempty"`
	Note       *record.Note   `json:"note,omitempty"`
}

type Stats struct {
	Records int `json:"records"`
	Notes   int `json:"notes"`
}

type Source interface {
	store.RecordRepository
	store.NoteRepository
}

// Write streams every record of collection, each followed by its notes.
func Write(ctx context.Context, w io.Writer, src Source, collection string, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats Stats
	records, err := src.ListRecords(ctx, collection)
	if err != nil {
		return stats, fmt.Errorf("list %s: %w", collection, err)
	}

	zw, err := xz.NewWriter(w)
	if err != nil {
		return stats, fmt.Errorf("open xz writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	for _, rec := range records {
		if err := enc.Encode(Entry{Kind: KindRecord, Collection: collection, Record: &rec}); err != nil {
			return stats, fmt.Errorf("write record %s: %w", rec.ID, err)
		}
		stats.Records++

		notes, err := src.ListNotes(ctx, collection, rec.ID)
		if err != nil {
			return stats, fmt.Errorf("list notes for %s: %w", rec.ID, err)
		}
		// Oldest first so a restore appends them in their original order.
		for i := len(notes) - 1; i >= 0; i-- {
			if err := enc.Encode(Entry{Kind: KindNote, Collection: collection, Note: &notes[i]}); err != nil {
				return stats, fmt.Errorf("write note %s: %w", notes[i].ID, err)
			}
			stats.Notes++
		}
		if stats.Records%1000 == 0 {
			logger.Info("backup progress", "collection", collection, "records", stats.Records)
		}
	}
	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("close xz writer: %w", err)
	}
	logger.Info("backup completed", "collection", collection, "records", stats.Records, "notes", stats.Notes)
	return stats, nil
}

// Read decodes a dump produced by Write.
func Read(r io.Reader) ([]Entry, error) {
	entries := []Entry{}
	err := each(r, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func each(r io.Reader, fn func(Entry) error) error {
	zr, err := xz.NewReader(bufio.NewReader(r))
	if err != nil {
		return fmt.Errorf("open xz reader: %w", err)
	}
	dec := json.NewDecoder(zr)
	dec.UseNumber()
	for line := 1; ; line++ {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode entry %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// Restore recreates records and notes from a dump. Records get new ids from
// the destination store and notes follow their record; note timestamps are
// reassigned by the store.
func Restore(ctx context.Context, r io.Reader, dst Source, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats Stats
	ids := map[string]string{}
	err := each(r, func(e Entry) error {
		switch {
		case e.Kind == KindRecord && e.Record != nil:
			created, err := dst.CreateRecord(ctx, e.Collection, e.Record.Fields)
			if err != nil {
				return fmt.Errorf("restore record %s: %w", e.Record.ID, err)
			}
			ids[e.Collection+"/"+e.Record.ID] = created.ID
			stats.Records++
		case e.Kind == KindNote && e.Note != nil:
			id, ok := ids[e.Collection+"/"+e.Note.RecordID]
			if !ok {
				logger.Warn("restore skipped orphan note", "collection", e.Collection, "note", e.Note.ID)
				return nil
			}
			draft := record.NoteDraft{Author: e.Note.Author, Body: e.Note.Body, NextAction: e.Note.NextAction, FollowUpDate: e.Note.FollowUpDate}
			if _, err := dst.AddNote(ctx, e.Collection, id, draft); err != nil {
				return fmt.Errorf("restore note %s: %w", e.Note.ID, err)
			}
			stats.Notes++
		default:
			return fmt.Errorf("unknown backup entry kind %q", e.Kind)
		}
		return nil
	})
	return stats, err
}
