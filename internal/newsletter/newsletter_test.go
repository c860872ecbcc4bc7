package newsletter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	blobfs "github.com/dme-bo/briskolive/internal/blob/fs"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store/memory"
)

func TestParagraphs(t *testing.T) {
	md := "# About\n\nWe place **veterans** across\nIndia.\n\n- Pune\n- Delhi\n"
	got := Paragraphs(md)
	want := []string{"About", "We place veterans across India.", "- Pune", "- Delhi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := Paragraphs("   "); len(got) != 0 {
		t.Fatalf("blank markdown should have no paragraphs, got %q", got)
	}
}

func TestPreviewHTMLSanitizes(t *testing.T) {
	html, err := PreviewHTML("Hello **team** <script>alert(1)</script>\n\n[click](javascript:alert(1))")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(html, "<strong>team</strong>") {
		t.Fatalf("markdown not rendered: %s", html)
	}
	if strings.Contains(html, "<script") || strings.Contains(html, "javascript:") {
		t.Fatalf("unsafe html survived: %s", html)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 85, G: 107, B: 47, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeLogo(t *testing.T) {
	out, mime, err := NormalizeLogo(testPNG(t, 720, 180))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("mime = %s", mime)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != LogoWidth || cfg.Height != 90 {
		t.Fatalf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}

	if _, _, err := NormalizeLogo([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected error for text upload")
	}
	if _, _, err := NormalizeLogo(nil); err == nil {
		t.Fatalf("expected error for empty upload")
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsletter.yaml")
	body := "title: Olive Dispatch\nedition: March 2024\nregional_partners:\n  - Pune Veterans Cell\n  - Delhi Ex-Servicemen League\nabout_us: |\n  We place **veterans**.\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if c.Title != "Olive Dispatch" || len(c.RegionalPartners) != 2 || !strings.Contains(c.AboutUs, "veterans") {
		t.Fatalf("unexpected seed %+v", c)
	}
	if len(c.Footer) == 0 {
		t.Fatalf("footer should keep its default")
	}
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing seed")
	}
}

func TestRenderProducesPDF(t *testing.T) {
	issue := Issue{
		Content: record.NewsletterContent{
			Title:            "Olive Dispatch",
			TempStaffing:     "Short notice guards available.\n\nCall the Pune desk.",
			RegionalPartners: []string{"Pune Veterans Cell", " "},
			AboutUs:          "We place **veterans** across India.",
			Footer:           []string{"Brisk Olive Business Solutions"},
			Logo:             testPNG(t, 120, 60),
		},
		Jobs: []record.Record{
			{ID: "j1", Fields: map[string]any{"title": "Security Supervisor", "company": "Acme Facilities", "openings": 4}},
		},
		Date: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	data, err := Render(issue)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf: %q", data[:8])
	}

	issue.Content = record.NewsletterContent{Logo: []byte("broken")}
	issue.Jobs = nil
	if _, err := Render(issue); err != nil {
		t.Fatalf("empty issue with broken logo should still render: %v", err)
	}
}

type countingObserver struct {
	archived int
	failed   int
}

func (o *countingObserver) NewsletterRendered(archived bool, err error) {
	if err != nil {
		o.failed++
	}
	if archived {
		o.archived++
	}
}

func newBuilder(t *testing.T) (*Builder, *memory.Store) {
	t.Helper()
	s := memory.New()
	s.Seed(JobsCollection,
		record.Record{ID: "j1", Fields: map[string]any{"title": "Security Supervisor", "company": "Acme Facilities"}},
		record.Record{ID: "j2", Fields: map[string]any{"title": "Driver", "company": "Metro Logistics"}},
	)
	s.Seed(ProjectsCollection, record.Record{ID: "p1", Fields: map[string]any{"name": "Campus Security", "client": "IIT Delhi"}})
	archive, err := blobfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return NewBuilder(s, s, archive, nil).WithClock(clock), s
}

func TestBuilderGenerateAndArchive(t *testing.T) {
	ctx := context.Background()
	b, _ := newBuilder(t)
	obs := &countingObserver{}
	b.WithObserver(obs)

	out, err := b.Generate(ctx, Selection{JobIDs: []string{"j2", "gone", "j2"}, ProjectIDs: []string{"p1"}}, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Filename != "newsletter-2024-03-01.pdf" || out.Archived == nil {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Archived.Key != "newsletters/newsletter-20240301-093000.pdf" {
		t.Fatalf("unexpected archive key %s", out.Archived.Key)
	}

	list, err := b.Archived(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("archive list %v %v", list, err)
	}
	info, rc, err := b.OpenArchived(ctx, "newsletter-20240301-093000.pdf")
	if err != nil {
		t.Fatalf("open archived: %v", err)
	}
	_ = rc.Close()
	if info.Size != int64(len(out.PDF)) {
		t.Fatalf("archived size %d, rendered %d", info.Size, len(out.PDF))
	}

	// Same second, same key.
	if _, err := b.Generate(ctx, Selection{}, true); err == nil {
		t.Fatalf("expected duplicate archive key to fail")
	}
	if obs.archived != 1 || obs.failed != 1 {
		t.Fatalf("observer saw archived=%d failed=%d", obs.archived, obs.failed)
	}
}

func TestBuilderWithoutArchive(t *testing.T) {
	s := memory.New()
	b := NewBuilder(s, s, nil, nil)
	if _, err := b.Generate(context.Background(), Selection{}, true); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("expected ErrArchiveDisabled, got %v", err)
	}
	out, err := b.Generate(context.Background(), Selection{}, false)
	if err != nil || len(out.PDF) == 0 {
		t.Fatalf("plain render failed: %v", err)
	}
}

func TestPreviewReportsMissing(t *testing.T) {
	b, _ := newBuilder(t)
	p, err := b.Preview(context.Background(), Selection{JobIDs: []string{"j1", "nope"}})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(p.Jobs) != 1 || p.Jobs[0].ID != "j1" {
		t.Fatalf("unexpected jobs %+v", p.Jobs)
	}
	if !reflect.DeepEqual(p.Missing, []string{"jobs/nope"}) {
		t.Fatalf("unexpected missing %v", p.Missing)
	}
	if p.Content.Title != DefaultContent().Title {
		t.Fatalf("preview should fall back to default content, got %q", p.Content.Title)
	}
}

func TestSaveContentKeepsLogo(t *testing.T) {
	ctx := context.Background()
	b, _ := newBuilder(t)
	if err := b.SetLogo(ctx, testPNG(t, 400, 200)); err != nil {
		t.Fatalf("set logo: %v", err)
	}
	saved, err := b.SaveContent(ctx, record.NewsletterContent{Title: "Olive Dispatch", Footer: []string{" ", "Pune"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(saved.Logo) == 0 || saved.LogoMime != "image/png" {
		t.Fatalf("logo lost on save")
	}
	if !reflect.DeepEqual(saved.Footer, []string{"Pune"}) {
		t.Fatalf("footer not trimmed: %q", saved.Footer)
	}
}
