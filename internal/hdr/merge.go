// Public domain.

package hdr

import (
	"fmt"
	"strings"
	"time"
)

type merged struct {
	primary, ext Header
}

// Merge returns a view of an extension header backed by its primary header.
// Get looks in ext first, then primary.  Set writes to ext only.
func Merge(primary, ext Header) Header {
	if primary == nil {
		return ext
	}
	return &merged{primary, ext}
}

func (m *merged) Get(key string) (interface{}, bool) {
	if v, ok := m.ext.Get(key); ok {
		return v, true
	}
	return m.primary.Get(key)
}

func (m *merged) Set(key string, value interface{}, comment string) {
	m.ext.Set(key, value, comment)
}

func (m *merged) Keys() []string {
	k := m.ext.Keys()
	seen := make(map[string]bool, len(k))
	for _, s := range k {
		seen[s] = true
	}
	for _, s := range m.primary.Keys() {
		if !seen[s] {
			k = append(k, s)
		}
	}
	return k
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a DATE-OBS style value.  ISO dates with or without a
// time part are accepted, as is the old dd/mm/yy form.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	// dd/mm/yy, years 1900-1999 as in pre-2000 FITS headers
	if t, err := time.Parse("02/01/06", s); err == nil {
		if t.Year() >= 2000 {
			t = t.AddDate(-100, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
