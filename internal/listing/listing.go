// Package listing runs the list page pipeline over a fully loaded collection:
// free-text search, filter selection, name sort and pagination.
package listing

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dme-bo/briskolive/internal/filter"
	"github.com/dme-bo/briskolive/internal/record"
)

const DefaultPageSize = 25

// PageSizes are the sizes offered on list pages. Zero means everything on one
// page.
var PageSizes = []int{25, 50, 100, 0}

// Search keeps records where any of fields contains term, ignoring case.
// The term is matched as given; callers trim user input.
func Search(records []record.Record, term string, fields []string) []record.Record {
	term = strings.ToLower(term)
	if term == "" {
		return records
	}
	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		for _, field := range fields {
			value, ok := rec.Text(field)
			if ok && strings.Contains(strings.ToLower(value), term) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// SortByName orders records by field, case-insensitively, with blank names
// last. The input slice is not modified.
func SortByName(records []record.Record, field string) []record.Record {
	out := append([]record.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a := strings.ToLower(strings.TrimSpace(out[i].String(field)))
		b := strings.ToLower(strings.TrimSpace(out[j].String(field)))
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
	return out
}

// ParsePageSize accepts one of PageSizes, or "all". Anything else falls back
// to DefaultPageSize.
func ParsePageSize(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "all" {
		return 0
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultPageSize
	}
	for _, allowed := range PageSizes {
		if allowed != 0 && size == allowed {
			return size
		}
	}
	return DefaultPageSize
}

// FormatPageSize is the inverse of ParsePageSize.
func FormatPageSize(size int) string {
	if size <= 0 {
		return "all"
	}
	return strconv.Itoa(size)
}

type Page struct {
	Rows       []record.Record `json:"rows"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
	HasPrev    bool            `json:"hasPrev"`
	HasNext    bool            `json:"hasNext"`
}

// Paginate slices out one page. The page number is clamped into range; an
// empty list still has one (empty) page.
func Paginate(records []record.Record, page, size int) Page {
	total := len(records)
	totalPages := 1
	if size > 0 && total > 0 {
		totalPages = (total + size - 1) / size
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	rows := records
	if size > 0 {
		start := (page - 1) * size
		end := start + size
		if end > total {
			end = total
		}
		rows = records[start:end]
	}
	if rows == nil {
		rows = []record.Record{}
	}
	return Page{
		Rows:       rows,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

type Config struct {
	Engine       filter.Engine
	SearchFields []string
	NameField    string
}

type Query struct {
	Search    string
	Selection filter.Selection
	Page      int
	PageSize  int
}

type Result struct {
	Page
	Options   filter.Options   `json:"options"`
	Selection filter.Selection `json:"selection"`
	Search    string           `json:"search"`
}

// Run applies search, then the filter selection, then the name sort, then
// pagination. Options come from the full list so choices do not vanish as
// the staff member narrows it.
func Run(records []record.Record, cfg Config, q Query) Result {
	visible := Filtered(records, cfg, q)
	sel := q.Selection
	if sel == nil {
		sel = filter.Selection{}
	}
	return Result{
		Page:      Paginate(visible, q.Page, q.PageSize),
		Options:   cfg.Engine.Options(records),
		Selection: sel,
		Search:    q.Search,
	}
}

// Filtered is Run without pagination; exports use it to get every visible
// row.
func Filtered(records []record.Record, cfg Config, q Query) []record.Record {
	visible := Search(records, q.Search, cfg.SearchFields)
	visible = cfg.Engine.Apply(visible, q.Selection)
	return SortByName(visible, cfg.NameField)
}
