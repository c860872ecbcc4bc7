package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/xuri/excelize/v2"
)

// Day-first layouts come before the free-form parser, which assumes
// month-first for ambiguous numeric dates.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-06",
	"02/01/06",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
}

// formatDate rewrites value as "DD Mon YYYY". Values that cannot be read as a
// date are returned unchanged.
func formatDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if t, ok := parseDate(trimmed); ok {
		return t.Format(record.DisplayDateLayout)
	}
	return value
}

func parseDate(value string) (time.Time, bool) {
	// Excel serials; the range excludes bare years like 2019.
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseAny(value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
