// Package notes manages the interaction notes attached to a single record:
// loading the history, collecting drafts and saving them in one go.
package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
)

// Repository is scoped to one record's notes.
type Repository interface {
	// List returns the saved notes newest first.
	List(ctx context.Context) ([]record.Note, error)
	// Append persists drafts in order and returns the saved notes.
	Append(ctx context.Context, drafts []record.NoteDraft) ([]record.Note, error)
}

type scoped struct {
	notes      store.NoteRepository
	collection string
	recordID   string
	timeout    time.Duration
}

// ForRecord scopes a store's notes to one record. Each call is bounded by
// timeout when it is positive.
func ForRecord(repo store.NoteRepository, collection, recordID string, timeout time.Duration) Repository {
	return &scoped{notes: repo, collection: collection, recordID: recordID, timeout: timeout}
}

func (s *scoped) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *scoped) List(ctx context.Context) ([]record.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	out, err := s.notes.ListNotes(ctx, s.collection, s.recordID)
	if err != nil {
		return nil, fmt.Errorf("list notes for %s/%s: %w", s.collection, s.recordID, err)
	}
	return out, nil
}

func (s *scoped) Append(ctx context.Context, drafts []record.NoteDraft) ([]record.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	saved := make([]record.Note, 0, len(drafts))
	for _, d := range drafts {
		note, err := s.notes.AddNote(ctx, s.collection, s.recordID, d)
		if err != nil {
			return saved, fmt.Errorf("add note to %s/%s: %w", s.collection, s.recordID, err)
		}
		saved = append(saved, note)
	}
	return saved, nil
}

// Savable drops drafts that carry no body, next action or follow-up date.
func Savable(drafts []record.NoteDraft) []record.NoteDraft {
	out := make([]record.NoteDraft, 0, len(drafts))
	for _, d := range drafts {
		if d.IsEmpty() {
			continue
		}
		out = append(out, d)
	}
	return out
}

// SaveResult is what a save-all returns: how many drafts were written and the
// refreshed history.
type SaveResult struct {
	Saved   int           `json:"saved"`
	History []record.Note `json:"history"`
}

// SaveAll persists every non-empty draft with author applied, then reloads
// the history. Empty drafts are discarded without error; when nothing is
// left to save no write happens.
func SaveAll(ctx context.Context, repo Repository, author string, drafts []record.NoteDraft) (SaveResult, error) {
	pending := Savable(drafts)
	for i := range pending {
		if pending[i].Author == "" {
			pending[i].Author = author
		}
	}
	saved := 0
	if len(pending) > 0 {
		written, err := repo.Append(ctx, pending)
		saved = len(written)
		if err != nil {
			return SaveResult{Saved: saved}, err
		}
	}
	history, err := repo.List(ctx)
	if err != nil {
		return SaveResult{Saved: saved}, err
	}
	return SaveResult{Saved: saved, History: history}, nil
}
