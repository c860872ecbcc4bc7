package filter

import (
	"net/url"
	"sort"
	"strings"
)

// QueryPrefix marks filter parameters in list page URLs, e.g. f.city=Pune.
const QueryPrefix = "f."

// Selection maps a filter key to the values chosen for it. A missing key, an
// empty list and a list holding All all leave the key unconstrained.
type Selection map[string][]string

func (s Selection) clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		if len(v) == 0 {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Set replaces the key's selection with a single value. The value is not
// checked against the current options, so stale selections simply match
// nothing.
func (s Selection) Set(key, value string) Selection {
	out := s.clone()
	if value == All || value == "" {
		delete(out, key)
		return out
	}
	out[key] = []string{value}
	return out
}

// Toggle adds value to the key's set, or removes it when already present.
func (s Selection) Toggle(key, value string) Selection {
	out := s.clone()
	if value == All || value == "" {
		delete(out, key)
		return out
	}
	current := out[key]
	kept := current[:0:0]
	removed := false
	for _, v := range current {
		if v == value {
			removed = true
			continue
		}
		if v == All {
			continue
		}
		kept = append(kept, v)
	}
	if !removed {
		kept = append(kept, value)
	}
	if len(kept) == 0 {
		delete(out, key)
		return out
	}
	out[key] = kept
	return out
}

// Clear resets every key to All.
func (s Selection) Clear() Selection {
	return Selection{}
}

// Values returns the active values for key, or nil when unconstrained.
func (s Selection) Values(key string) []string {
	values := s[key]
	if unconstrained(values) {
		return nil
	}
	return values
}

func (s Selection) Has(key, value string) bool {
	for _, v := range s.Values(key) {
		if v == value {
			return true
		}
	}
	return false
}

// Active reports whether any key carries a constraint.
func (s Selection) Active() bool {
	for key := range s {
		if s.Values(key) != nil {
			return true
		}
	}
	return false
}

// Encode writes the selection into q as repeated f.<key> parameters.
func (s Selection) Encode(q url.Values) {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		q.Del(QueryPrefix + key)
		for _, v := range s.Values(key) {
			q.Add(QueryPrefix+key, v)
		}
	}
}

// ParseSelection reads f.<key> parameters for the engine's keys. Unknown
// keys are ignored.
func (e Engine) ParseSelection(q url.Values) Selection {
	sel := Selection{}
	for name, values := range q {
		if !strings.HasPrefix(name, QueryPrefix) {
			continue
		}
		key := strings.TrimPrefix(name, QueryPrefix)
		if !e.HasKey(key) {
			continue
		}
		for _, v := range values {
			if v == All || v == "" {
				delete(sel, key)
				break
			}
			if !sel.Has(key, v) {
				sel[key] = append(sel[key], v)
			}
		}
	}
	return sel
}
