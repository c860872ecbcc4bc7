// Package newsletter assembles the PDF newsletter from the saved content
// document and the jobs and projects staff picked for the edition.
package newsletter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/blob"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store"
)

const (
	JobsCollection     = "jobs"
	ProjectsCollection = "projects"
	ArchivePrefix      = "newsletters/"
	ContentType        = "application/pdf"
)

var ErrArchiveDisabled = errors.New("newsletter archive is not configured")

// Selection is the subset of jobs and projects chosen for an edition, in
// the order they should print.
type Selection struct {
	JobIDs     []string `json:"jobIds"`
	ProjectIDs []string `json:"projectIds"`
}

type Output struct {
	PDF      []byte
	Filename string
	Archived *blob.Info
}

// Preview is the browser rendition of an issue. AboutHTML is sanitized.
type Preview struct {
	Content   record.NewsletterContent `json:"content"`
	AboutHTML string                   `json:"aboutHtml"`
	HasLogo   bool                     `json:"hasLogo"`
	Jobs      []record.Record          `json:"jobs"`
	Projects  []record.Record          `json:"projects"`
	Missing   []string                 `json:"missing,omitempty"`
}

// Observer is told about every render attempt.
type Observer interface {
	NewsletterRendered(archived bool, err error)
}

type Builder struct {
	records  store.RecordRepository
	content  store.ContentRepository
	archive  blob.Store
	seed     record.NewsletterContent
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewBuilder wires the builder. archive may be nil, which disables archiving.
func NewBuilder(records store.RecordRepository, content store.ContentRepository, archive blob.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		records: records,
		content: content,
		archive: archive,
		seed:    DefaultContent(),
		logger:  logger,
		now:     time.Now,
	}
}

func (b *Builder) WithSeed(seed record.NewsletterContent) *Builder {
	b.seed = seed
	return b
}

func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) ArchiveEnabled() bool { return b.archive != nil }

// Content returns the saved content, or the seed before the first save.
func (b *Builder) Content(ctx context.Context) (record.NewsletterContent, error) {
	c, err := b.content.GetContent(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return b.seed, nil
	}
	if err != nil {
		return record.NewsletterContent{}, fmt.Errorf("load newsletter content: %w", err)
	}
	return c, nil
}

// SaveContent stores text content. The logo is managed by SetLogo and is
// kept when c carries none.
func (b *Builder) SaveContent(ctx context.Context, c record.NewsletterContent) (record.NewsletterContent, error) {
	current, err := b.Content(ctx)
	if err != nil {
		return record.NewsletterContent{}, err
	}
	if len(c.Logo) == 0 {
		c.Logo, c.LogoMime = current.Logo, current.LogoMime
	}
	c.RegionalPartners = trimAll(c.RegionalPartners)
	c.Footer = trimAll(c.Footer)
	if err := b.content.SaveContent(ctx, c); err != nil {
		return record.NewsletterContent{}, fmt.Errorf("save newsletter content: %w", err)
	}
	return b.Content(ctx)
}

// SetLogo normalizes an uploaded image and stores it on the content.
func (b *Builder) SetLogo(ctx context.Context, raw []byte) error {
	logo, mime, err := NormalizeLogo(raw)
	if err != nil {
		return err
	}
	c, err := b.Content(ctx)
	if err != nil {
		return err
	}
	c.Logo, c.LogoMime = logo, mime
	if err := b.content.SaveContent(ctx, c); err != nil {
		return fmt.Errorf("save newsletter logo: %w", err)
	}
	return nil
}

// Issue loads content and the selected records. Ids that no longer exist
// are returned in missing rather than failing the issue.
func (b *Builder) Issue(ctx context.Context, sel Selection) (Issue, []string, error) {
	c, err := b.Content(ctx)
	if err != nil {
		return Issue{}, nil, err
	}
	jobs, missingJobs, err := b.load(ctx, JobsCollection, sel.JobIDs)
	if err != nil {
		return Issue{}, nil, err
	}
	projects, missingProjects, err := b.load(ctx, ProjectsCollection, sel.ProjectIDs)
	if err != nil {
		return Issue{}, nil, err
	}
	return Issue{Content: c, Jobs: jobs, Projects: projects, Date: b.now()}, append(missingJobs, missingProjects...), nil
}

func (b *Builder) load(ctx context.Context, collection string, ids []string) ([]record.Record, []string, error) {
	out := []record.Record{}
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		rec, err := b.records.GetRecord(ctx, collection, id)
		if errors.Is(err, store.ErrNotFound) {
			b.logger.Warn("newsletter selection missing", "collection", collection, "id", id)
			missing = append(missing, collection+"/"+id)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load %s %s: %w", collection, id, err)
		}
		out = append(out, rec)
	}
	return out, missing, nil
}

func (b *Builder) Preview(ctx context.Context, sel Selection) (Preview, error) {
	issue, missing, err := b.Issue(ctx, sel)
	if err != nil {
		return Preview{}, err
	}
	about, err := PreviewHTML(issue.Content.AboutUs)
	if err != nil {
		return Preview{}, fmt.Errorf("render about us: %w", err)
	}
	content := issue.Content
	hasLogo := len(content.Logo) > 0
	content.Logo = nil
	return Preview{
		Content:   content,
		AboutHTML: about,
		HasLogo:   hasLogo,
		Jobs:      issue.Jobs,
		Projects:  issue.Projects,
		Missing:   missing,
	}, nil
}

// Generate renders the PDF and, when archive is set, stores a copy.
func (b *Builder) Generate(ctx context.Context, sel Selection, archive bool) (out Output, err error) {
	defer func() {
		if b.observer != nil {
			b.observer.NewsletterRendered(out.Archived != nil, err)
		}
	}()
	if archive && b.archive == nil {
		return Output{}, ErrArchiveDisabled
	}
	issue, _, err := b.Issue(ctx, sel)
	if err != nil {
		return Output{}, err
	}
	data, err := Render(issue)
	if err != nil {
		return Output{}, err
	}
	out = Output{PDF: data, Filename: "newsletter-" + issue.Date.Format("2006-01-02") + ".pdf"}
	if !archive {
		return out, nil
	}

	key := ArchivePrefix + "newsletter-" + issue.Date.UTC().Format("20060102-150405") + ".pdf"
	info, err := b.archive.Put(ctx, key, bytes.NewReader(data), ContentType)
	if err != nil {
		return out, fmt.Errorf("archive newsletter: %w", err)
	}
	b.logger.Info("newsletter archived", "key", info.Key, "bytes", info.Size)
	out.Archived = &info
	return out, nil
}

func (b *Builder) Archived(ctx context.Context) ([]blob.Info, error) {
	if b.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return b.archive.List(ctx, ArchivePrefix)
}

// OpenArchived streams an archived PDF by its file name.
func (b *Builder) OpenArchived(ctx context.Context, name string) (blob.Info, io.ReadCloser, error) {
	if b.archive == nil {
		return blob.Info{}, nil, ErrArchiveDisabled
	}
	return b.archive.Get(ctx, ArchivePrefix+path.Base(name))
}

// ArchivedURL returns a presigned link when the backend supports one.
func (b *Builder) ArchivedURL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	if b.archive == nil {
		return "", ErrArchiveDisabled
	}
	return b.archive.PresignURL(ctx, ArchivePrefix+path.Base(name), expiry)
}
