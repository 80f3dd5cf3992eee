package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PageLink is one pagination control supplied by the backend. A nil URL marks a
// disabled control (e.g. "previous" on the first page).
type PageLink struct {
	URL    *string `json:"url"`
	Label  string  `json:"label"`
	Active bool    `json:"active"`
}

// Page is the paginated payload returned by every collection endpoint.
type Page[T any] struct {
	Data        []T        `json:"data"`
	CurrentPage int        `json:"current_page"`
	PerPage     int        `json:"per_page"`
	Total       int        `json:"total"`
	From        int        `json:"from"`
	To          int        `json:"to"`
	Links       []PageLink `json:"links"`
	NextPageURL *string    `json:"next_page_url,omitempty"`
	PrevPageURL *string    `json:"prev_page_url,omitempty"`
}

// FieldErrors maps a form field to the messages the backend reported for it.
type FieldErrors map[string][]string

// UnmarshalJSON accepts both `{"f": "msg"}` and `{"f": ["msg", ...]}`.
func (e *FieldErrors) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(FieldErrors, len(raw))
	for field, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			out[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err != nil {
			return fmt.Errorf("field %q: unsupported error value %s", field, string(value))
		}
		out[field] = []string{single}
	}
	*e = out
	return nil
}

// First returns the first message for a field, or "".
func (e FieldErrors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Has reports whether the field has at least one message.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Fields returns field names sorted alphabetically.
func (e FieldErrors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
