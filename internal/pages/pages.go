// Package pages is the registry of list pages: which collection each page
// reads, what it can be filtered and searched by, and how its rows render,
// export and open.
package pages

import (
	"github.com/dme-bo/briskolive/internal/filter"
	"github.com/dme-bo/briskolive/internal/listing"
)

type Column struct {
	Field  string  `json:"field"`
	Header string  `json:"header"`
	Width  float64 `json:"width,omitempty"`
}

type Tab struct {
	Slug   string   `json:"slug"`
	Label  string   `json:"label"`
	Fields []Column `json:"fields"`
}

// NotesTab is the slug of the interaction notes tab every detail view has.
const NotesTab = "notes"

type Page struct {
	Slug         string   `json:"slug"`
	Collection   string   `json:"collection"`
	Title        string   `json:"title"`
	Singular     string   `json:"singular"`
	FilterKeys   []string `json:"filterKeys"`
	TagKeys      []string `json:"tagKeys"`
	SearchFields []string `json:"searchFields"`
	NameField    string   `json:"nameField"`
	Columns      []Column `json:"columns"`
	Export       []Column `json:"export"`
	Tabs         []Tab    `json:"tabs"`
	Importable   bool     `json:"importable"`
}

func (p Page) Engine() filter.Engine {
	return filter.New(p.FilterKeys, p.TagKeys...)
}

func (p Page) ListingConfig() listing.Config {
	return listing.Config{
		Engine:       p.Engine(),
		SearchFields: p.SearchFields,
		NameField:    p.NameField,
	}
}

func (p Page) IsTag(field string) bool {
	for _, key := range p.TagKeys {
		if key == field {
			return true
		}
	}
	return false
}

// Tab returns the tab named slug, falling back to the first tab.
func (p Page) Tab(slug string) Tab {
	for _, tab := range p.Tabs {
		if tab.Slug == slug {
			return tab
		}
	}
	if len(p.Tabs) == 0 {
		return Tab{}
	}
	return p.Tabs[0]
}

func (p Page) Label(field string) string {
	for _, col := range p.Export {
		if col.Field == field {
			return col.Header
		}
	}
	return field
}

var registry = []Page{
	{
		Slug:         "members",
		Collection:   "members",
		Title:        "Members",
		Singular:     "Member",
		FilterKeys:   []string{"service", "rank", "city", "state", "status", "skills", "tags"},
		TagKeys:      []string{"skills", "tags", "preferredLocations"},
		SearchFields: []string{"name", "rank", "city", "mobile", "email", "skills"},
		NameField:    "name",
		Columns: []Column{
			{Field: "name", Header: "Name"},
			{Field: "rank", Header: "Rank"},
			{Field: "service", Header: "Service"},
			{Field: "city", Header: "City"},
			{Field: "mobile", Header: "Mobile"},
			{Field: "status", Header: "Status"},
		},
		Export: []Column{
			{Field: "name", Header: "Full Name", Width: 28},
			{Field: "rank", Header: "Rank", Width: 14},
			{Field: "service", Header: "Service", Width: 14},
			{Field: "city", Header: "City", Width: 16},
			{Field: "state", Header: "State", Width: 16},
			{Field: "mobile", Header: "Mobile Number", Width: 16},
			{Field: "email", Header: "Email", Width: 28},
			{Field: "skills", Header: "Skills", Width: 30},
			{Field: "tags", Header: "Tags", Width: 20},
			{Field: "status", Header: "Status", Width: 12},
			{Field: "entryDate", Header: "Entry Date", Width: 14},
			{Field: "experienceYears", Header: "Experience (Years)", Width: 12},
			{Field: "preferredLocations", Header: "Preferred Locations", Width: 28},
		},
		Tabs: []Tab{
			{Slug: "profile", Label: "Profile", Fields: []Column{
				{Field: "name", Header: "Full Name"},
				{Field: "rank", Header: "Rank"},
				{Field: "service", Header: "Service"},
				{Field: "experienceYears", Header: "Experience (Years)"},
				{Field: "entryDate", Header: "Entry Date"},
				{Field: "status", Header: "Status"},
			}},
			{Slug: "contact", Label: "Contact", Fields: []Column{
				{Field: "mobile", Header: "Mobile Number"},
				{Field: "email", Header: "Email"},
				{Field: "city", Header: "City"},
				{Field: "state", Header: "State"},
				{Field: "preferredLocations", Header: "Preferred Locations"},
			}},
			{Slug: "skills", Label: "Skills", Fields: []Column{
				{Field: "skills", Header: "Skills"},
				{Field: "tags", Header: "Tags"},
			}},
		},
		Importable: true,
	},
	{
		Slug:         "candidates",
		Collection:   "candidates",
		Title:        "Candidates",
		Singular:     "Candidate",
		FilterKeys:   []string{"city", "appliedRole", "status", "source", "tags"},
		TagKeys:      []string{"tags"},
		SearchFields: []string{"name", "mobile", "email", "appliedRole", "qualification"},
		NameField:    "name",
		Columns: []Column{
			{Field: "name", Header: "Name"},
			{Field: "appliedRole", Header: "Applied Role"},
			{Field: "city", Header: "City"},
			{Field: "mobile", Header: "Mobile"},
			{Field: "status", Header: "Status"},
		},
		Export: []Column{
			{Field: "name", Header: "Full Name", Width: 28},
			{Field: "mobile", Header: "Mobile Number", Width: 16},
			{Field: "email", Header: "Email", Width: 28},
			{Field: "city", Header: "City", Width: 16},
			{Field: "qualification", Header: "Qualification", Width: 22},
			{Field: "appliedRole", Header: "Applied Role", Width: 22},
			{Field: "status", Header: "Status", Width: 12},
			{Field: "source", Header: "Source", Width: 14},
			{Field: "tags", Header: "Tags", Width: 20},
			{Field: "entryDate", Header: "Entry Date", Width: 14},
		},
		Tabs: []Tab{
			{Slug: "profile", Label: "Profile", Fields: []Column{
				{Field: "name", Header: "Full Name"},
				{Field: "qualification", Header: "Qualification"},
				{Field: "appliedRole", Header: "Applied Role"},
				{Field: "status", Header: "Status"},
				{Field: "source", Header: "Source"},
				{Field: "entryDate", Header: "Entry Date"},
			}},
			{Slug: "contact", Label: "Contact", Fields: []Column{
				{Field: "mobile", Header: "Mobile Number"},
				{Field: "email", Header: "Email"},
				{Field: "city", Header: "City"},
				{Field: "tags", Header: "Tags"},
			}},
		},
		Importable: true,
	},
	{
		Slug:         "coordinators",
		Collection:   "coordinators",
		Title:        "Coordinators",
		Singular:     "Coordinator",
		FilterKeys:   []string{"region", "city", "languages", "status"},
		TagKeys:      []string{"languages"},
		SearchFields: []string{"name", "region", "city", "mobile", "email"},
		NameField:    "name",
		Columns: []Column{
			{Field: "name", Header: "Name"},
			{Field: "region", Header: "Region"},
			{Field: "city", Header: "City"},
			{Field: "languages", Header: "Languages"},
			{Field: "status", Header: "Status"},
		},
		Export: []Column{
			{Field: "name", Header: "Full Name", Width: 28},
			{Field: "region", Header: "Region", Width: 16},
			{Field: "city", Header: "City", Width: 16},
			{Field: "mobile", Header: "Mobile Number", Width: 16},
			{Field: "email", Header: "Email", Width: 28},
			{Field: "languages", Header: "Languages", Width: 24},
			{Field: "status", Header: "Status", Width: 12},
		},
		Tabs: []Tab{
			{Slug: "profile", Label: "Profile", Fields: []Column{
				{Field: "name", Header: "Full Name"},
				{Field: "region", Header: "Region"},
				{Field: "city", Header: "City"},
				{Field: "languages", Header: "Languages"},
				{Field: "status", Header: "Status"},
			}},
			{Slug: "contact", Label: "Contact", Fields: []Column{
				{Field: "mobile", Header: "Mobile Number"},
				{Field: "email", Header: "Email"},
			}},
		},
		Importable: true,
	},
	{
		Slug:         "jobs",
		Collection:   "jobs",
		Title:        "Jobs",
		Singular:     "Job",
		FilterKeys:   []string{"location", "category", "status", "skills"},
		TagKeys:      []string{"skills"},
		SearchFields: []string{"title", "company", "location", "category"},
		NameField:    "title",
		Columns: []Column{
			{Field: "title", Header: "Title"},
			{Field: "company", Header: "Company"},
			{Field: "location", Header: "Location"},
			{Field: "openings", Header: "Openings"},
			{Field: "status", Header: "Status"},
		},
		Export: []Column{
			{Field: "title", Header: "Title", Width: 28},
			{Field: "company", Header: "Company", Width: 24},
			{Field: "location", Header: "Location", Width: 18},
			{Field: "category", Header: "Category", Width: 16},
			{Field: "openings", Header: "Openings", Width: 10},
			{Field: "salary", Header: "Salary", Width: 16},
			{Field: "status", Header: "Status", Width: 12},
			{Field: "skills", Header: "Skills", Width: 30},
		},
		Tabs: []Tab{
			{Slug: "details", Label: "Details", Fields: []Column{
				{Field: "title", Header: "Title"},
				{Field: "company", Header: "Company"},
				{Field: "location", Header: "Location"},
				{Field: "category", Header: "Category"},
				{Field: "openings", Header: "Openings"},
				{Field: "salary", Header: "Salary"},
				{Field: "status", Header: "Status"},
				{Field: "skills", Header: "Skills"},
			}},
		},
		Importable: true,
	},
	{
		Slug:         "projects",
		Collection:   "projects",
		Title:        "Projects",
		Singular:     "Project",
		FilterKeys:   []string{"region", "status", "sector", "partners"},
		TagKeys:      []string{"partners"},
		SearchFields: []string{"name", "client", "region", "description"},
		NameField:    "name",
		Columns: []Column{
			{Field: "name", Header: "Name"},
			{Field: "client", Header: "Client"},
			{Field: "region", Header: "Region"},
			{Field: "sector", Header: "Sector"},
			{Field: "status", Header: "Status"},
		},
		Export: []Column{
			{Field: "name", Header: "Project", Width: 28},
			{Field: "client", Header: "Client", Width: 24},
			{Field: "region", Header: "Region", Width: 16},
			{Field: "sector", Header: "Sector", Width: 16},
			{Field: "status", Header: "Status", Width: 12},
			{Field: "partners", Header: "Partners", Width: 28},
			{Field: "description", Header: "Description", Width: 48},
		},
		Tabs: []Tab{
			{Slug: "details", Label: "Details", Fields: []Column{
				{Field: "name", Header: "Project"},
				{Field: "client", Header: "Client"},
				{Field: "region", Header: "Region"},
				{Field: "sector", Header: "Sector"},
				{Field: "status", Header: "Status"},
				{Field: "partners", Header: "Partners"},
				{Field: "description", Header: "Description"},
			}},
		},
		Importable: true,
	},
}

// All returns the registered pages in menu order.
func All() []Page {
	return append([]Page(nil), registry...)
}

func Lookup(slug string) (Page, bool) {
	for _, p := range registry {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}
