package importer

import (
	"strconv"
	"strings"
)

// Row is one decoded spreadsheet line. Column names are the record field
// names; headerAliases maps the human headers onto them.
type Row struct {
	Name               string `csv:"name"`
	Rank               string `csv:"rank"`
	Service            string `csv:"service"`
	City               string `csv:"city"`
	State              string `csv:"state"`
	Mobile             string `csv:"mobile"`
	Email              string `csv:"email"`
	Skills             string `csv:"skills"`
	Tags               string `csv:"tags"`
	Status             string `csv:"status"`
	EntryDate          string `csv:"entryDate"`
	ExperienceYears    string `csv:"experienceYears"`
	PreferredLocations string `csv:"preferredLocations"`
	Qualification      string `csv:"qualification"`
	AppliedRole        string `csv:"appliedRole"`
	Source             string `csv:"source"`
	Region             string `csv:"region"`
	Languages          string `csv:"languages"`
	Title              string `csv:"title"`
	Company            string `csv:"company"`
	Location           string `csv:"location"`
	Category           string `csv:"category"`
	Openings           string `csv:"openings"`
	Salary             string `csv:"salary"`
	Client             string `csv:"client"`
	Sector             string `csv:"sector"`
	Description        string `csv:"description"`
	Partners           string `csv:"partners"`
}

func (r Row) values() map[string]string {
	return map[string]string{
		"name":               r.Name,
		"rank":               r.Rank,
		"service":            r.Service,
		"city":               r.City,
		"state":              r.State,
		"mobile":             r.Mobile,
		"email":              r.Email,
		"skills":             r.Skills,
		"tags":               r.Tags,
		"status":             r.Status,
		"entryDate":          r.EntryDate,
		"experienceYears":    r.ExperienceYears,
		"preferredLocations": r.PreferredLocations,
		"qualification":      r.Qualification,
		"appliedRole":        r.AppliedRole,
		"source":             r.Source,
		"region":             r.Region,
		"languages":          r.Languages,
		"title":              r.Title,
		"company":            r.Company,
		"location":           r.Location,
		"category":           r.Category,
		"openings":           r.Openings,
		"salary":             r.Salary,
		"client":             r.Client,
		"sector":             r.Sector,
		"description":        r.Description,
		"partners":           r.Partners,
	}
}

var headerAliases = map[string]string{
	"full name":           "name",
	"member name":         "name",
	"candidate name":      "name",
	"project name":        "name",
	"project":             "name",
	"mobile number":       "mobile",
	"mobile no":           "mobile",
	"mobile no.":          "mobile",
	"phone":               "mobile",
	"phone number":        "mobile",
	"contact number":      "mobile",
	"email address":       "email",
	"e-mail":              "email",
	"email id":            "email",
	"entry date":          "entryDate",
	"date of entry":       "entryDate",
	"joining date":        "entryDate",
	"registration date":   "entryDate",
	"experience (years)":  "experienceYears",
	"experience":          "experienceYears",
	"years of experience": "experienceYears",
	"branch":              "service",
	"preferred locations": "preferredLocations",
	"preferred location":  "preferredLocations",
	"applied role":        "appliedRole",
	"role applied":        "appliedRole",
	"position applied":    "appliedRole",
	"job title":           "title",
	"vacancies":           "openings",
	"no. of openings":     "openings",
	"regional partners":   "partners",
}

var (
	numericFields = map[string]bool{"experienceYears": true, "openings": true}
	dateFields    = map[string]bool{"entryDate": true}
)

func init() {
	for field := range (Row{}).values() {
		headerAliases[strings.ToLower(field)] = field
	}
}

// canonicalHeader maps a spreadsheet header onto a field name, ignoring case
// and spacing. Unknown headers return "".
func canonicalHeader(header string) string {
	key := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(header, "\ufeff")), " "))
	return headerAliases[key]
}

// toInt reads counts such as "12", "12.0" or "1,200". Anything else is 0.
func toInt(value string) int {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f)
	}
	return 0
}
