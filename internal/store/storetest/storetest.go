// Package storetest holds behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
)

// Run exercises s. tick advances the backend's clock between writes so note
// ordering is deterministic; pass nil for backends using the wall clock.
func Run(t *testing.T, s store.Store, tick func()) {
	t.Helper()
	ctx := context.Background()
	if tick == nil {
		tick = func() { time.Sleep(2 * time.Millisecond) }
	}

	t.Run("records", func(t *testing.T) {
		empty, err := s.ListRecords(ctx, "members")
		if err != nil {
			t.Fatalf("list empty: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected empty collection, got %d", len(empty))
		}

		created, err := s.CreateRecord(ctx, "members", map[string]any{
			"name":            "Col Rajesh Kumar",
			"city":            "Pune",
			"experienceYears": 22,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == "" {
			t.Fatalf("expected store-assigned id")
		}
		tick()
		if _, err := s.CreateRecord(ctx, "members", map[string]any{"name": "Lt Col Priya Singh"}); err != nil {
			t.Fatalf("create second: %v", err)
		}
		if _, err := s.CreateRecord(ctx, "jobs", map[string]any{"title": "Security Supervisor"}); err != nil {
			t.Fatalf("create job: %v", err)
		}

		list, err := s.ListRecords(ctx, "members")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 members, got %d", len(list))
		}

		got, err := s.GetRecord(ctx, "members", created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.String("city") != "Pune" || got.String("experienceYears") != "22" {
			t.Fatalf("unexpected fields %#v", got.Fields)
		}

		if _, err := s.GetRecord(ctx, "members", "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("notes", func(t *testing.T) {
		rec, err := s.CreateRecord(ctx, "candidates", map[string]any{"name": "Asha"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		notes, err := s.ListNotes(ctx, "candidates", rec.ID)
		if err != nil {
			t.Fatalf("list notes: %v", err)
		}
		if len(notes) != 0 {
			t.Fatalf("expected no notes")
		}

		first, err := s.AddNote(ctx, "candidates", rec.ID, record.NoteDraft{Author: "Meera", Body: "Called, no answer"})
		if err != nil {
			t.Fatalf("add note: %v", err)
		}
		if first.CreatedAt.IsZero() {
			t.Fatalf("expected created timestamp")
		}
		tick()
		if _, err := s.AddNote(ctx, "candidates", rec.ID, record.NoteDraft{FollowUpDate: "2024-05-01"}); err != nil {
			t.Fatalf("add note: %v", err)
		}
		if _, err := s.AddNote(ctx, "members", rec.ID, record.NoteDraft{Body: "other collection"}); err != nil {
			t.Fatalf("add note: %v", err)
		}

		notes, err = s.ListNotes(ctx, "candidates", rec.ID)
		if err != nil {
			t.Fatalf("list notes: %v", err)
		}
		if len(notes) != 2 {
			t.Fatalf("expected 2 notes, got %d", len(notes))
		}
		if notes[0].FollowUpDate != "2024-05-01" || notes[0].Body != "" || notes[0].Author != "Staff" {
			t.Fatalf("expected newest note first, got %+v", notes[0])
		}
		if notes[1].ID != first.ID || notes[1].Author != "Meera" {
			t.Fatalf("unexpected second note %+v", notes[1])
		}
		if notes[0].CreatedAt.Before(notes[1].CreatedAt) {
			t.Fatalf("notes not ordered newest first")
		}
	})

	t.Run("content", func(t *testing.T) {
		if _, err := s.GetContent(ctx); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound before save, got %v", err)
		}
		content := record.NewsletterContent{
			Title:            "Brisk Olive Bulletin",
			Edition:          "March 2024",
			RegionalPartners: []string{"Pune Ex-Servicemen League"},
			AboutUs:          "We place **veterans**.",
			Logo:             []byte{0x89, 'P', 'N', 'G'},
			LogoMime:         "image/png",
		}
		if err := s.SaveContent(ctx, content); err != nil {
			t.Fatalf("save: %v", err)
		}
		content.Edition = "April 2024"
		if err := s.SaveContent(ctx, content); err != nil {
			t.Fatalf("save again: %v", err)
		}
		got, err := s.GetContent(ctx)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Edition != "April 2024" || got.Title != content.Title || len(got.Logo) != 4 || got.UpdatedAt.IsZero() {
			t.Fatalf("unexpected content %+v", got)
		}
		if len(got.RegionalPartners) != 1 {
			t.Fatalf("partners lost: %+v", got.RegionalPartners)
		}
	})
}
