// Package sqldoc keeps documents as JSON rows in a relational database. The
// sqlite and postgres backends differ only in driver, placeholders and the
// column type of the JSON body.
package sqldoc

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
	"github.com/google/uuid"
)

// Dialect describes the SQL differences between backends.
type Dialect struct {
	Name string
	// BodyType is the column type of the JSON body, e.g. TEXT or JSONB.
	BodyType string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
	// Retry wraps every statement. Nil runs statements once.
	Retry func(fn func() error) error
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the clock used to stamp notes and content.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			body ` + s.dialect.BodyType + ` NOT NULL,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			record_id TEXT NOT NULL,
			author TEXT NOT NULL,
			body TEXT NOT NULL,
			next_action TEXT NOT NULL,
			follow_up_date TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_record ON notes (collection, record_id, created_at)`,
	}
	for _, stmt := range statements {
		if err := s.exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// bind rewrites ? placeholders for dialects that number them.
func (s *Store) bind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) retry(fn func() error) error {
	if s.dialect.Retry == nil {
		return fn()
	}
	return s.dialect.Retry(fn)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return s.retry(func() error {
		_, err := s.db.ExecContext(ctx, s.bind(query), args...)
		return err
	})
}

func (s *Store) ListRecords(ctx context.Context, collection string) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT id, body FROM documents WHERE collection = ? ORDER BY created_at, id`), collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	out := []record.Record{}
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		fields, err := decodeFields(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, record.Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) GetRecord(ctx context.Context, collection, id string) (record.Record, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT body FROM documents WHERE collection = ? AND id = ?`), collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, store.ErrNotFound
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(body)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return record.Record{ID: id, Fields: fields}, nil
}

func (s *Store) CreateRecord(ctx context.Context, collection string, fields map[string]any) (record.Record, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return record.Record{}, fmt.Errorf("encode record: %w", err)
	}
	id := uuid.NewString()
	if err := s.exec(ctx, `INSERT INTO documents (collection, id, body, created_at) VALUES (?, ?, ?, ?)`,
		collection, id, string(body), s.now().UnixNano()); err != nil {
		return record.Record{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	return record.Record{ID: id, Fields: fields}, nil
}

func (s *Store) ListNotes(ctx context.Context, collection, recordID string) ([]record.Note, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT id, author, body, next_action, follow_up_date, created_at
		FROM notes WHERE collection = ? AND record_id = ? ORDER BY created_at DESC, id DESC`), collection, recordID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []record.Note{}
	for rows.Next() {
		n := record.Note{RecordID: recordID}
		var created int64
		if err := rows.Scan(&n.ID, &n.Author, &n.Body, &n.NextAction, &n.FollowUpDate, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

func (s *Store) AddNote(ctx context.Context, collection, recordID string, draft record.NoteDraft) (record.Note, error) {
	draft = draft.Normalize()
	note := record.Note{
		ID:           uuid.NewString(),
		RecordID:     recordID,
		Author:       draft.Author,
		Body:         draft.Body,
		NextAction:   draft.NextAction,
		FollowUpDate: draft.FollowUpDate,
		CreatedAt:    s.now(),
	}
	err := s.exec(ctx, `INSERT INTO notes (id, collection, record_id, author, body, next_action, follow_up_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, collection, recordID, note.Author, note.Body, note.NextAction, note.FollowUpDate, note.CreatedAt.UnixNano())
	if err != nil {
		return record.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

func (s *Store) GetContent(ctx context.Context) (record.NewsletterContent, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT body FROM documents WHERE collection = ? AND id = ?`),
		store.ContentCollection, store.ContentID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return record.NewsletterContent{}, store.ErrNotFound
	}
	if err != nil {
		return record.NewsletterContent{}, fmt.Errorf("get newsletter content: %w", err)
	}
	var content record.NewsletterContent
	if err := json.Unmarshal(body, &content); err != nil {
		return record.NewsletterContent{}, fmt.Errorf("decode newsletter content: %w", err)
	}
	return content, nil
}

func (s *Store) SaveContent(ctx context.Context, content record.NewsletterContent) error {
	content.UpdatedAt = s.now()
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode newsletter content: %w", err)
	}
	err = s.exec(ctx, `INSERT INTO documents (collection, id, body, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body`,
		store.ContentCollection, store.ContentID, string(body), content.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save newsletter content: %w", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// decodeFields keeps numbers as json.Number so integers survive the round
// trip without turning into floats.
func decodeFields(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
