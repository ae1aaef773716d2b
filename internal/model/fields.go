package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dateOnly is the layout accepted for due dates without a time component
const dateOnly = "2006-01-02"

var null = []byte("null")

// NullableDate is a JSON date that tracks whether it was present in the
// payload at all, so that an explicit null can clear a stored value.
type NullableDate struct {
	Set   bool
	Value *time.Time
}

// NewNullableDate returns a present date
func NewNullableDate(t time.Time) NullableDate {
	return NullableDate{Set: true, Value: &t}
}

// UnmarshalJSON accepts null, an empty string, YYYY-MM-DD or RFC 3339
func (d *NullableDate) UnmarshalJSON(b []byte) error {
	d.Set = true
	d.Value = nil

	if bytes.Equal(b, null) {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("due date must be a string: %w", err)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Value = &t

	return nil
}

// MarshalJSON writes the date as RFC 3339 or null
func (d NullableDate) MarshalJSON() ([]byte, error) {
	if d.Value == nil {
		return null, nil
	}
	return json.Marshal(d.Value.Format(time.RFC3339Nano))
}

// ParseDate parses YYYY-MM-DD (midnight UTC) or RFC 3339 timestamps
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, &DateError{Value: s}
}

// DateError is returned for due dates that cannot be parsed
type DateError struct {
	Value string
}

// Error implements the error interface
func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: must be YYYY-MM-DD or RFC 3339", e.Value)
}

// GroupList is a list of group labels that also accepts a single comma
// separated string on input. An absent field stays nil while null decodes
// to an empty list, so updates can tell "keep" from "clear".
type GroupList []string

// UnmarshalJSON accepts null, a string or an array of strings
func (g *GroupList) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, null) {
		*g = GroupList{}
		return nil
	}

	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*g = GroupList{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("groups must be a string or a list of strings: %w", err)
	}
	*g = list

	return nil
}
