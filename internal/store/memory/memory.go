// Package memory is an in-process store for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu          sync.RWMutex
	collections map[string][]record.Record
	notes       map[string][]record.Note
	content     *record.NewsletterContent
	now         func() time.Time
}

func New() *Store {
	return &Store{
		collections: make(map[string][]record.Record),
		notes:       make(map[string][]record.Note),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp notes.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Seed appends records as-is, keeping their IDs when set.
func (s *Store) Seed(collection string, records ...record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		s.collections[collection] = append(s.collections[collection], rec.Clone())
	}
}

func (s *Store) ListRecords(ctx context.Context, collection string) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.collections[collection]
	out := make([]record.Record, 0, len(items))
	for _, rec := range items {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *Store) GetRecord(ctx context.Context, collection, id string) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.collections[collection] {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return record.Record{}, store.ErrNotFound
}

func (s *Store) CreateRecord(ctx context.Context, collection string, fields map[string]any) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}
	rec := record.Record{ID: uuid.NewString(), Fields: fields}.Clone()
	s.mu.Lock()
	s.collections[collection] = append(s.collections[collection], rec)
	s.mu.Unlock()
	return rec.Clone(), nil
}

func noteKey(collection, recordID string) string {
	return store.NotesCollection(collection) + "/" + recordID
}

func (s *Store) ListNotes(ctx context.Context, collection, recordID string) ([]record.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	notes := append([]record.Note(nil), s.notes[noteKey(collection, recordID)]...)
	s.mu.RUnlock()
	// Appended in creation order; reverse stable sort keeps same-instant notes
	// newest first as well.
	for i, j := 0, len(notes)-1; i < j; i, j = i+1, j-1 {
		notes[i], notes[j] = notes[j], notes[i]
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	if notes == nil {
		notes = []record.Note{}
	}
	return notes, nil
}

func (s *Store) AddNote(ctx context.Context, collection, recordID string, draft record.NoteDraft) (record.Note, error) {
	if err := ctx.Err(); err != nil {
		return record.Note{}, err
	}
	draft = draft.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	note := record.Note{
		ID:           uuid.NewString(),
		RecordID:     recordID,
		Author:       draft.Author,
		Body:         draft.Body,
		NextAction:   draft.NextAction,
		FollowUpDate: draft.FollowUpDate,
		CreatedAt:    s.now(),
	}
	key := noteKey(collection, recordID)
	s.notes[key] = append(s.notes[key], note)
	return note, nil
}

func (s *Store) GetContent(ctx context.Context) (record.NewsletterContent, error) {
	if err := ctx.Err(); err != nil {
		return record.NewsletterContent{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.content == nil {
		return record.NewsletterContent{}, store.ErrNotFound
	}
	return *s.content, nil
}

func (s *Store) SaveContent(ctx context.Context, content record.NewsletterContent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	content.UpdatedAt = s.now()
	s.content = &content
	return nil
}

func (s *Store) Close(context.Context) error { return nil }
