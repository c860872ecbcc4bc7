package record

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTextFormatsScalars(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{nil, "", false},
		{"Pune", "Pune", true},
		{" spaced ", " spaced ", true},
		{7, "7", true},
		{int32(12), "12", true},
		{int64(40), "40", true},
		{float64(5), "5", true},
		{2.5, "2.5", true},
		{true, "true", true},
		{json.Number("17"), "17", true},
		{time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC), "05 Mar 2023", true},
	}
	for _, tc := range cases {
		got, ok := Text(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Text(%#v) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRecordTagsTrimsAndDropsEmpty(t *testing.T) {
	rec := Record{Fields: map[string]any{"tags": " Active, Leader ,, "}}
	got := rec.Tags("tags")
	if len(got) != 2 || got[0] != "Active" || got[1] != "Leader" {
		t.Fatalf("unexpected tags: %#v", got)
	}
	if tags := rec.Tags("missing"); tags != nil {
		t.Fatalf("expected nil tags for missing field, got %#v", tags)
	}
}

func TestNoteDraftIsEmpty(t *testing.T) {
	if !(NoteDraft{Author: "Asha"}).IsEmpty() {
		t.Fatalf("author-only draft should be empty")
	}
	if (NoteDraft{FollowUpDate: "2024-05-01"}).IsEmpty() {
		t.Fatalf("follow-up-only draft should not be empty")
	}
	if (NoteDraft{NextAction: "call back"}).IsEmpty() {
		t.Fatalf("next-action draft should not be empty")
	}
}

func TestCloneDoesNotShareFields(t *testing.T) {
	rec := Record{ID: "a", Fields: map[string]any{"city": "Pune"}}
	cp := rec.Clone()
	cp.Fields["city"] = "Delhi"
	if rec.String("city") != "Pune" {
		t.Fatalf("clone mutated original")
	}
}
