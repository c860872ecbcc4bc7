// Package record holds the documents the dashboard reads from the store:
// member-style records, their interaction notes and the newsletter content.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Text returns the comparable text of a field. Missing and nil fields are
// reported as absent.
func (r Record) Text(key string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}
	raw, ok := r.Fields[key]
	if !ok {
		return "", false
	}
	return Text(raw)
}

// String is Text without the presence flag.
func (r Record) String(key string) string {
	value, _ := r.Text(key)
	return value
}

// Tags splits a comma separated field into trimmed, non-empty parts.
func (r Record) Tags(key string) []string {
	value, ok := r.Text(key)
	if !ok {
		return nil
	}
	return SplitTags(value)
}

func SplitTags(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func Text(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float32:
		return formatFloat(float64(v)), true
	case float64:
		return formatFloat(v), true
	case time.Time:
		if v.IsZero() {
			return "", true
		}
		return v.UTC().Format(DisplayDateLayout), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DisplayDateLayout is the "DD Mon YYYY" form used for imported dates.
const DisplayDateLayout = "02 Jan 2006"

// Clone copies the field map so callers can mutate the result freely.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}
