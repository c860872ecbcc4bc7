package newsletter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/record"
	"github.com/go-pdf/fpdf"
)

// Issue is everything one newsletter PDF is built from.
type Issue struct {
	Content  record.NewsletterContent
	Jobs     []record.Record
	Projects []record.Record
	Date     time.Time
}

const (
	pageMargin  = 15.0
	lineHeight  = 5.5
	sectionGap  = 4.0
	logoWidthMM = 32.0
)

var (
	olive = [3]int{85, 107, 47}
	grey  = [3]int{110, 110, 110}
)

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Render lays out the fixed newsletter sections in order. Sections without
// content are skipped; jobs and projects print a notice instead.
func Render(issue Issue) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+5)
	title := strings.TrimSpace(issue.Content.Title)
	if title == "" {
		title = DefaultContent().Title
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("briskolive", true)
	if !issue.Date.IsZero() {
		pdf.SetCreationDate(issue.Date)
		pdf.SetModificationDate(issue.Date)
	}

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(grey[0], grey[1], grey[2])
		pdf.CellFormat(0, 6, r.tr(fmt.Sprintf("%s | page %d", title, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r.header(issue, title)
	r.jobs(issue.Jobs)
	r.paragraphSection("Temporary Staffing", splitParagraphs(issue.Content.TempStaffing))
	r.projects(issue.Projects)
	r.bullets("Regional Partners", issue.Content.RegionalPartners)
	r.paragraphSection("Defence", splitParagraphs(issue.Content.Defence))
	r.paragraphSection("About Us", Paragraphs(issue.Content.AboutUs))
	r.footer(issue.Content.Footer)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout newsletter: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write newsletter: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *renderer) header(issue Issue, title string) {
	pdf := r.pdf
	top := pdf.GetY()
	textX := pageMargin
	logoBottom := top
	if len(issue.Content.Logo) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		info := pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(issue.Content.Logo))
		if pdf.Err() || info == nil || info.Width() <= 0 {
			// An unreadable logo should not block the issue.
			pdf.ClearError()
		} else {
			pdf.ImageOptions("logo", pageMargin, top, logoWidthMM, 0, false, opts, 0, "")
			textX = pageMargin + logoWidthMM + 6
			logoBottom = top + logoWidthMM*info.Height()/info.Width()
		}
	}

	pdf.SetXY(textX, top)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(olive[0], olive[1], olive[2])
	pdf.MultiCell(0, 9, r.tr(title), "", "L", false)

	edition := strings.TrimSpace(issue.Content.Edition)
	if edition == "" && !issue.Date.IsZero() {
		edition = issue.Date.Format("January 2006")
	}
	if edition != "" {
		pdf.SetX(textX)
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(grey[0], grey[1], grey[2])
		pdf.CellFormat(0, 6, r.tr(edition), "", 1, "L", false, 0, "")
	}
	if pdf.GetY() < logoBottom {
		pdf.SetY(logoBottom)
	}

	pdf.Ln(2)
	w, _ := pdf.GetPageSize()
	pdf.SetDrawColor(olive[0], olive[1], olive[2])
	pdf.SetLineWidth(0.6)
	pdf.Line(pageMargin, pdf.GetY(), w-pageMargin, pdf.GetY())
	pdf.Ln(sectionGap)

	if intro := strings.TrimSpace(issue.Content.Intro); intro != "" {
		r.body(intro)
	}
}

func (r *renderer) heading(label string) {
	pdf := r.pdf
	pdf.Ln(sectionGap)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(olive[0], olive[1], olive[2])
	pdf.CellFormat(0, 8, r.tr(label), "B", 1, "L", false, 0, "")
	pdf.Ln(1.5)
}

func (r *renderer) body(text string) {
	r.pdf.SetFont("Helvetica", "", 10.5)
	r.pdf.SetTextColor(30, 30, 30)
	r.pdf.MultiCell(0, lineHeight, r.tr(text), "", "L", false)
	r.pdf.Ln(1.5)
}

func (r *renderer) notice(text string) {
	r.pdf.SetFont("Helvetica", "I", 10)
	r.pdf.SetTextColor(grey[0], grey[1], grey[2])
	r.pdf.CellFormat(0, lineHeight, r.tr(text), "", 1, "L", false, 0, "")
}

func (r *renderer) jobs(jobs []record.Record) {
	r.heading("Current Openings")
	if len(jobs) == 0 {
		r.notice("No jobs selected for this edition.")
		return
	}
	for _, job := range jobs {
		r.entry(
			joinNonEmpty(" | ", job.String("title"), job.String("company")),
			joinNonEmpty(" | ", job.String("location"), openings(job), job.String("salary")),
			job.String("skills"),
		)
	}
}

func (r *renderer) projects(projects []record.Record) {
	r.heading("Projects")
	if len(projects) == 0 {
		r.notice("No projects selected for this edition.")
		return
	}
	for _, p := range projects {
		r.entry(
			joinNonEmpty(" | ", p.String("name"), p.String("client")),
			joinNonEmpty(" | ", p.String("region"), p.String("sector"), p.String("status")),
			p.String("description"),
		)
	}
}

func (r *renderer) entry(title, meta, detail string) {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(30, 30, 30)
	pdf.MultiCell(0, lineHeight+0.5, r.tr(title), "", "L", false)
	if meta != "" {
		pdf.SetFont("Helvetica", "", 9.5)
		pdf.SetTextColor(grey[0], grey[1], grey[2])
		pdf.MultiCell(0, lineHeight, r.tr(meta), "", "L", false)
	}
	if detail != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(30, 30, 30)
		pdf.MultiCell(0, lineHeight, r.tr(detail), "", "L", false)
	}
	pdf.Ln(2)
}

func (r *renderer) paragraphSection(label string, paragraphs []string) {
	if len(paragraphs) == 0 {
		return
	}
	r.heading(label)
	for _, p := range paragraphs {
		r.body(p)
	}
}

func (r *renderer) bullets(label string, items []string) {
	items = trimAll(items)
	if len(items) == 0 {
		return
	}
	r.heading(label)
	for _, item := range items {
		r.body("- " + item)
	}
}

func (r *renderer) footer(lines []string) {
	lines = trimAll(lines)
	if len(lines) == 0 {
		return
	}
	pdf := r.pdf
	pdf.Ln(sectionGap * 2)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(grey[0], grey[1], grey[2])
	for _, line := range lines {
		pdf.CellFormat(0, 5, r.tr(line), "", 1, "C", false, 0, "")
	}
}

func openings(job record.Record) string {
	n := job.String("openings")
	switch n {
	case "", "0":
		return ""
	case "1":
		return "1 opening"
	}
	return n + " openings"
}

func splitParagraphs(text string) []string {
	out := []string{}
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	return strings.Join(trimAll(parts), sep)
}
