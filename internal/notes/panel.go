package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/dme-bo/briskolive/internal/record"
)

type State int

const (
	Idle State = iota
	Loading
	Loaded
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrNotReady = errors.New("notes panel is not loaded")

// Panel is the notes tab of a detail view. It is not safe for concurrent use;
// each detail view owns one.
type Panel struct {
	repo    Repository
	author  string
	state   State
	history []record.Note
	drafts  []record.NoteDraft
	notice  string
}

func NewPanel(repo Repository, author string) *Panel {
	return &Panel{repo: repo, author: author}
}

func (p *Panel) State() State           { return p.state }
func (p *Panel) History() []record.Note { return append([]record.Note(nil), p.history...) }
func (p *Panel) Drafts() []record.NoteDraft {
	return append([]record.NoteDraft(nil), p.drafts...)
}

// Notice returns the pending failure message and clears it.
func (p *Panel) Notice() string {
	n := p.notice
	p.notice = ""
	return n
}

// Activate loads the history the first time the tab opens. Later calls do
// nothing. A failed load still lands in Loaded, with an empty history and a
// notice.
func (p *Panel) Activate(ctx context.Context) error {
	if p.state != Idle {
		return nil
	}
	p.state = Loading
	history, err := p.repo.List(ctx)
	p.state = Loaded
	if err != nil {
		p.notice = "Could not load notes: " + err.Error()
		return err
	}
	p.history = history
	return nil
}

// AddDraft appends a blank draft and returns its index.
func (p *Panel) AddDraft() int {
	p.drafts = append(p.drafts, record.NoteDraft{Author: p.author})
	return len(p.drafts) - 1
}

func (p *Panel) UpdateDraft(i int, d record.NoteDraft) error {
	if i < 0 || i >= len(p.drafts) {
		return fmt.Errorf("draft %d out of range", i)
	}
	p.drafts[i] = d
	return nil
}

// SaveAll writes every non-empty draft and refetches the history. Drafts are
// only cleared once everything succeeded; on failure the previous history
// stays, drafts that were already written are dropped and a notice is set.
func (p *Panel) SaveAll(ctx context.Context) (int, error) {
	if p.state != Loaded {
		return 0, ErrNotReady
	}
	p.state = Saving
	res, err := SaveAll(ctx, p.repo, p.author, p.drafts)
	p.state = Loaded
	if err != nil {
		p.notice = "Could not save notes: " + err.Error()
		if res.Saved > 0 {
			// Drafts are written in order, so the first Saved ones are stored.
			pending := Savable(p.drafts)
			p.drafts = append([]record.NoteDraft(nil), pending[min(res.Saved, len(pending)):]...)
			p.notice = fmt.Sprintf("Saved %d of %d notes. Could not save the rest: %v", res.Saved, len(pending), err)
		}
		return res.Saved, err
	}
	p.drafts = nil
	p.history = res.History
	return res.Saved, nil
}
