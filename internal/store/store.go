// Package store defines the document store the dashboard reads from: flat
// named collections of records, a notes sub-collection per record and the
// single newsletter content document.
package store

import (
	"context"
	"errors"

	"github.com/dme-bo/briskolive/internal/record"
)

var ErrNotFound = errors.New("not found")

type RecordRepository interface {
	// ListRecords loads the whole collection. There is no paging at this level.
	ListRecords(ctx context.Context, collection string) ([]record.Record, error)
	GetRecord(ctx context.Context, collection, id string) (record.Record, error)
	CreateRecord(ctx context.Context, collection string, fields map[string]any) (record.Record, error)
}

type NoteRepository interface {
	// ListNotes returns the record's notes newest first.
	ListNotes(ctx context.Context, collection, recordID string) ([]record.Note, error)
	// AddNote appends a note. CreatedAt is assigned by the store.
	AddNote(ctx context.Context, collection, recordID string, draft record.NoteDraft) (record.Note, error)
}

type ContentRepository interface {
	// GetContent returns ErrNotFound until content has been saved once.
	GetContent(ctx context.Context) (record.NewsletterContent, error)
	SaveContent(ctx context.Context, content record.NewsletterContent) error
}

type Store interface {
	RecordRepository
	NoteRepository
	ContentRepository
	Close(ctx context.Context) error
}

// NotesCollection names the sub-collection holding a collection's notes.
func NotesCollection(collection string) string {
	return collection + "_notes"
}

const (
	ContentCollection = "newsletter"
	ContentID         = "current"
)
