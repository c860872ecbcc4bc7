// Package filter derives the selectable values of a list page and narrows a
// loaded record list to the staff member's current selection.
package filter

import (
	"sort"

	"github.com/dme-bo/briskolive/internal/record"
)

// All is the wildcard value. Selecting it on a key removes that key's
// constraint.
const All = "All"

// Options maps each filter key to its sorted, duplicate-free values.
type Options map[string][]string

// Engine holds a page's filter keys. Keys listed in TagKeys are comma
// separated multi-value fields.
type Engine struct {
	Keys    []string
	TagKeys map[string]bool
}

func New(keys []string, tagKeys ...string) Engine {
	tags := make(map[string]bool, len(tagKeys))
	for _, key := range tagKeys {
		tags[key] = true
	}
	return Engine{Keys: append([]string(nil), keys...), TagKeys: tags}
}

func (e Engine) IsTag(key string) bool {
	return e.TagKeys[key]
}

func (e Engine) HasKey(key string) bool {
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Options collects the distinct values seen for every key. Scalar values are
// kept as stored; values made of whitespace only are dropped.
func (e Engine) Options(records []record.Record) Options {
	out := make(Options, len(e.Keys))
	for _, key := range e.Keys {
		seen := make(map[string]struct{})
		for _, rec := range records {
			for _, value := range e.values(rec, key) {
				seen[value] = struct{}{}
			}
		}
		values := make([]string, 0, len(seen))
		for value := range seen {
			values = append(values, value)
		}
		sort.Strings(values)
		out[key] = values
	}
	return out
}

func (e Engine) values(rec record.Record, key string) []string {
	if e.IsTag(key) {
		return rec.Tags(key)
	}
	value, ok := rec.Text(key)
	if !ok || value == "" {
		return nil
	}
	return []string{value}
}

// Apply keeps the records that pass every key of sel. Order is preserved.
func (e Engine) Apply(records []record.Record, sel Selection) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if e.Match(rec, sel) {
			out = append(out, rec)
		}
	}
	return out
}

// Match reports whether rec passes sel. Values selected on one key are
// alternatives; separate keys must all pass.
func (e Engine) Match(rec record.Record, sel Selection) bool {
	for key, selected := range sel {
		if unconstrained(selected) {
			continue
		}
		if !e.matchKey(rec, key, selected) {
			return false
		}
	}
	return true
}

func (e Engine) matchKey(rec record.Record, key string, selected []string) bool {
	if e.IsTag(key) {
		tags := rec.Tags(key)
		for _, want := range selected {
			for _, tag := range tags {
				if tag == want {
					return true
				}
			}
		}
		return false
	}
	value, ok := rec.Text(key)
	if !ok {
		return false
	}
	for _, want := range selected {
		if value == want {
			return true
		}
	}
	return false
}

func unconstrained(values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == All {
			return true
		}
	}
	return false
}
