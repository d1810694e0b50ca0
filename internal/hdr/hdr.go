// Public domain.

// Package hdr provides keyword access to image and table headers.
//
// The WCS code never touches files.  It reads and writes keywords through
// the Header interface; adapters elsewhere fill headers from FITS files and
// carry updated keywords back.
package hdr

import (
	"strconv"
	"strings"
)

// Header is keyword access to one header.  Keywords are upper case.
type Header interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, comment string)
	Keys() []string
}

// Card is a single header keyword.
type Card struct {
	Key     string
	Value   interface{}
	Comment string
}

// Map is an ordered in-memory Header.  It remembers which keywords were
// set after construction so that a caller can report or persist only the
// updated keywords.
type Map struct {
	cards   []Card
	index   map[string]int
	updated []string
	dirty   map[string]bool
}

// NewMap returns a Map holding cards, in order.  The initial cards are not
// reported by Updated.
func NewMap(cards ...Card) *Map {
	m := &Map{
		index: make(map[string]int, len(cards)),
		dirty: make(map[string]bool),
	}
	for _, c := range cards {
		m.put(c)
	}
	return m
}

func (m *Map) put(c Card) {
	c.Key = strings.ToUpper(strings.TrimSpace(c.Key))
	if i, ok := m.index[c.Key]; ok {
		if c.Comment == "" {
			c.Comment = m.cards[i].Comment
		}
		m.cards[i] = c
		return
	}
	m.index[c.Key] = len(m.cards)
	m.cards = append(m.cards, c)
}

// Get returns the value of key.
func (m *Map) Get(key string) (interface{}, bool) {
	i, ok := m.index[strings.ToUpper(key)]
	if !ok {
		return nil, false
	}
	return m.cards[i].Value, true
}

// Set adds or replaces key.  An empty comment keeps any existing comment.
func (m *Map) Set(key string, value interface{}, comment string) {
	m.put(Card{Key: key, Value: value, Comment: comment})
	key = strings.ToUpper(key)
	if !m.dirty[key] {
		m.dirty[key] = true
		m.updated = append(m.updated, key)
	}
}

// Keys returns the keywords in header order.
func (m *Map) Keys() []string {
	k := make([]string, len(m.cards))
	for i, c := range m.cards {
		k[i] = c.Key
	}
	return k
}

// Cards returns a copy of all cards in header order.
func (m *Map) Cards() []Card {
	return append([]Card{}, m.cards...)
}

// Updated returns the cards set since construction, in the order they were
// first set, holding their current values.
func (m *Map) Updated() []Card {
	u := make([]Card, len(m.updated))
	for i, k := range m.updated {
		u[i] = m.cards[m.index[k]]
	}
	return u
}

// Has reports whether h contains key.
func Has(h Header, key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Float returns the numeric value of key.
func Float(h Header, key string) (float64, bool) {
	v, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// Int returns the integer value of key.  Non-integral numbers and strings
// of digits are accepted.
func Int(h Header, key string) (int, bool) {
	v, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	return ToInt(v)
}

// String returns the trimmed string value of key.
func String(h Header, key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok || v == nil {
		return "", false
	}
	return ToString(v), true
}

// ToFloat converts the numeric types found in headers and tables.
func ToFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(ToString(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ToInt converts v to int.
func ToInt(v interface{}) (int, bool) {
	if s, ok := v.(string); ok {
		i, err := strconv.Atoi(ToString(s))
		return i, err == nil
	}
	f, ok := ToFloat(v)
	return int(f), ok
}

// ToString formats v as a string.  Strings are trimmed, and a trailing "/"
// left over from a value that ran into the comment delimiter is dropped.
func ToString(v interface{}) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	case float64:
		s = strconv.FormatFloat(x, 'G', -1, 64)
	default:
		if f, ok := ToFloat(v); ok {
			s = strconv.FormatFloat(f, 'G', -1, 64)
		} else if b, ok := v.(bool); ok {
			s = strconv.FormatBool(b)
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "/") {
		s = strings.TrimSpace(s[:len(s)-1])
	}
	return s
}
