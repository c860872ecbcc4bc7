package record

import (
	"strings"
	"time"
)

// Note is one saved staff interaction. Notes are append-only.
type Note struct {
	ID           string    `json:"id"`
	RecordID     string    `json:"recordId"`
	Author       string    `json:"author"`
	Body         string    `json:"body"`
	NextAction   string    `json:"nextAction"`
	FollowUpDate string    `json:"followUpDate,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NoteDraft is a note that has not been persisted yet.
type NoteDraft struct {
	Author       string `json:"author"`
	Body         string `json:"body"`
	NextAction   string `json:"nextAction"`
	FollowUpDate string `json:"followUpDate"`
}

// IsEmpty reports whether the draft carries nothing worth saving. The author
// label alone does not count.
func (d NoteDraft) IsEmpty() bool {
	return strings.TrimSpace(d.Body) == "" &&
		strings.TrimSpace(d.NextAction) == "" &&
		strings.TrimSpace(d.FollowUpDate) == ""
}

func (d NoteDraft) Normalize() NoteDraft {
	d.Author = strings.TrimSpace(d.Author)
	if d.Author == "" {
		d.Author = "Staff"
	}
	d.Body = strings.TrimSpace(d.Body)
	d.NextAction = strings.TrimSpace(d.NextAction)
	d.FollowUpDate = strings.TrimSpace(d.FollowUpDate)
	return d
}
