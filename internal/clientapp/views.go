package clientapp

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/dme-bo/briskolive/internal/blob"
	"github.com/dme-bo/briskolive/internal/filter"
	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/dme-bo/briskolive/internal/listing"
	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/record"
)

type pageData struct {
	Title   string
	Nav     []navLink
	Error   string
	Message string
	// DismissURL clears Error and Message from the address bar.
	DismissURL string
	RetryURL   string

	Page pages.Page

	Search      string
	Filters     []filterView
	Filtered    bool
	Columns     []pages.Column
	Rows        []rowView
	Total       int
	PageNumber  int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	PageSizes   []pageSizeView
	ExportURL   string
	ClearURL    string
	CurrentSize string

	Record      record.Record
	RecordName  string
	Tabs        []tabView
	ActiveTab   string
	Fields      []fieldView
	NotesActive bool
	Notes       []record.Note
	Drafts      []record.NoteDraft
	MoreDrafts  string

	ImportEnabled bool
	ImportResult  *importer.Result

	Content        newsletterContent
	Partners       string
	FooterLines    string
	Jobs           []choiceView
	Projects       []choiceView
	PreviewHTML    template.HTML
	PreviewJobs    []record.Record
	PreviewProj    []record.Record
	Missing        []string
	ArchiveEnabled bool
	Archive        []blob.Info
}

type navLink struct {
	Label  string
	URL    string
	Active bool
}

type filterView struct {
	Key         string
	Label       string
	Options     []optionView
	AllSelected bool
}

type optionView struct {
	Value    string
	Selected bool
}

type rowView struct {
	ID    string
	URL   string
	Cells []string
}

type pageSizeView struct {
	Label  string
	URL    string
	Active bool
}

type tabView struct {
	Slug   string
	Label  string
	URL    string
	Active bool
}

type fieldView struct {
	Label string
	Value string
	Tags  []string
}

type choiceView struct {
	ID       string
	Label    string
	Detail   string
	Selected bool
}

func navLinks(current string) []navLink {
	out := make([]navLink, 0, len(pages.All())+1)
	for _, page := range pages.All() {
		out = append(out, navLink{Label: page.Title, URL: "/" + page.Slug, Active: page.Slug == current})
	}
	out = append(out, navLink{Label: "Newsletter", URL: "/newsletter", Active: current == "newsletter"})
	return out
}

// listState is what a list URL encodes: search, selection and paging.
type listState struct {
	slug      string
	search    string
	selection filter.Selection
	page      int
	size      int
}

func (l listState) values() url.Values {
	q := url.Values{}
	if l.search != "" {
		q.Set("q", l.search)
	}
	l.selection.Encode(q)
	if l.page > 1 {
		q.Set("page", strconv.Itoa(l.page))
	}
	if l.size != listing.DefaultPageSize {
		q.Set("per_page", listing.FormatPageSize(l.size))
	}
	return q
}

func (l listState) url(suffix string) string {
	path := "/" + l.slug + suffix
	if encoded := l.values().Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

func (l listState) withPage(page int) listState {
	l.page = page
	return l
}

func (l listState) withSize(size int) listState {
	l.size = size
	l.page = 1
	return l
}

func buildFilters(page pages.Page, options filter.Options, sel filter.Selection) []filterView {
	out := make([]filterView, 0, len(page.FilterKeys))
	for _, key := range page.FilterKeys {
		view := filterView{Key: filter.QueryPrefix + key, Label: page.Label(key)}
		for _, value := range options[key] {
			view.Options = append(view.Options, optionView{Value: value, Selected: sel.Has(key, value)})
		}
		view.AllSelected = len(sel.Values(key)) == 0
		out = append(out, view)
	}
	return out
}

func buildRows(page pages.Page, records []record.Record) []rowView {
	out := make([]rowView, 0, len(records))
	for _, rec := range records {
		cells := make([]string, len(page.Columns))
		for i, col := range page.Columns {
			cells[i] = strings.TrimSpace(rec.String(col.Field))
		}
		out = append(out, rowView{
			ID:    rec.ID,
			URL:   "/" + page.Slug + "/" + url.PathEscape(rec.ID),
			Cells: cells,
		})
	}
	return out
}

func buildPageSizes(state listState) []pageSizeView {
	out := make([]pageSizeView, 0, len(listing.PageSizes))
	for _, size := range listing.PageSizes {
		label := strconv.Itoa(size)
		if size == 0 {
			label = "All"
		}
		out = append(out, pageSizeView{Label: label, URL: state.withSize(size).url(""), Active: size == state.size})
	}
	return out
}

func buildTabs(page pages.Page, id, active string) []tabView {
	base := "/" + page.Slug + "/" + url.PathEscape(id)
	out := make([]tabView, 0, len(page.Tabs)+1)
	for _, tab := range page.Tabs {
		out = append(out, tabView{Slug: tab.Slug, Label: tab.Label, URL: base + "?tab=" + url.QueryEscape(tab.Slug), Active: tab.Slug == active})
	}
	out = append(out, tabView{Slug: pages.NotesTab, Label: "Notes", URL: base + "?tab=" + pages.NotesTab, Active: active == pages.NotesTab})
	return out
}

func buildFields(page pages.Page, tab pages.Tab, rec record.Record) []fieldView {
	out := make([]fieldView, 0, len(tab.Fields))
	for _, col := range tab.Fields {
		view := fieldView{Label: col.Header}
		if page.IsTag(col.Field) {
			view.Tags = rec.Tags(col.Field)
		} else {
			view.Value = strings.TrimSpace(rec.String(col.Field))
		}
		out = append(out, view)
	}
	return out
}

func buildChoices(records []record.Record, labelField, detailField string, selected []string) []choiceView {
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}
	out := make([]choiceView, 0, len(records))
	for _, rec := range records {
		out = append(out, choiceView{
			ID:       rec.ID,
			Label:    rec.String(labelField),
			Detail:   rec.String(detailField),
			Selected: chosen[rec.ID],
		})
	}
	return out
}
