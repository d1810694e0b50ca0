// Public domain.

package wcs

import (
	"fmt"
	"strings"

	"github.com/hstwcs/makewcs/internal/hdr"
)

// DefaultPrefix is the archive prefix used when none is given.
const DefaultPrefix = "O"

// DateKey records when the archive was made.
const DateKey = "WCSCDATE"

const dateLayout = "15:04:05 (02/01/2006)"

// keyword ties a header keyword to a State field and to its archive
// keyword suffix.  The archive keyword is the one character prefix followed
// by the suffix, so the suffix is at most 7 characters.
type keyword struct {
	name   string // header keyword; empty for pixel scale
	suffix string
	get    func(*State) interface{}
	set    func(*State, interface{}) bool
}

func floatField(f func(*State) *float64) (func(*State) interface{}, func(*State, interface{}) bool) {
	return func(s *State) interface{} { return *f(s) },
		func(s *State, v interface{}) bool {
			x, ok := hdr.ToFloat(v)
			if ok {
				*f(s) = x
			}
			return ok
		}
}

func intField(f func(*State) *int) (func(*State) interface{}, func(*State, interface{}) bool) {
	return func(s *State) interface{} { return *f(s) },
		func(s *State, v interface{}) bool {
			x, ok := hdr.ToInt(v)
			if ok {
				*f(s) = x
			}
			return ok
		}
}

func stringField(f func(*State) *string) (func(*State) interface{}, func(*State, interface{}) bool) {
	return func(s *State) interface{} { return *f(s) },
		func(s *State, v interface{}) bool {
			*f(s) = hdr.ToString(v)
			return true
		}
}

func fk(name string, f func(*State) *float64) keyword {
	g, s := floatField(f)
	return keyword{name: name, suffix: trunc(name, 7), get: g, set: s}
}

func ik(name string, f func(*State) *int) keyword {
	g, s := intField(f)
	return keyword{name: name, suffix: trunc(name, 7), get: g, set: s}
}

func sk(name string, f func(*State) *string) keyword {
	g, s := stringField(f)
	return keyword{name: name, suffix: trunc(name, 7), get: g, set: s}
}

func trunc(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// keywords in header write order.  Pixel scale is last and is archived
// but never written as an active keyword.
var keywords = []keyword{
	ik("NAXIS1", func(s *State) *int { return &s.NAXIS1 }),
	ik("NAXIS2", func(s *State) *int { return &s.NAXIS2 }),
	fk("CRPIX1", func(s *State) *float64 { return &s.CRPIX1 }),
	fk("CRPIX2", func(s *State) *float64 { return &s.CRPIX2 }),
	fk("CRVAL1", func(s *State) *float64 { return &s.CRVAL1 }),
	fk("CRVAL2", func(s *State) *float64 { return &s.CRVAL2 }),
	sk("CTYPE1", func(s *State) *string { return &s.CTYPE1 }),
	sk("CTYPE2", func(s *State) *string { return &s.CTYPE2 }),
	fk("CD1_1", func(s *State) *float64 { return &s.CD11 }),
	fk("CD1_2", func(s *State) *float64 { return &s.CD12 }),
	fk("CD2_1", func(s *State) *float64 { return &s.CD21 }),
	fk("CD2_2", func(s *State) *float64 { return &s.CD22 }),
	fk("ORIENTAT", func(s *State) *float64 { return &s.Orient }),
	fk("", func(s *State) *float64 { return &s.PScale }),
}

// pscale is the pixel scale entry.
var pscale = &keywords[len(keywords)-1]

func init() {
	pscale.suffix = "pscale"
	seen := map[string]string{}
	for _, k := range keywords {
		if len(k.suffix) > 7 {
			panic(fmt.Sprintf("archive suffix %q too long", k.suffix))
		}
		if o, ok := seen[k.suffix]; ok {
			panic(fmt.Sprintf("archive keywords of %s and %s collide", o, k.name))
		}
		seen[k.suffix] = k.name
	}
}

// archiveKey returns the archive keyword for k under prefix.  Only the
// first character of prefix is used.
func (k *keyword) archiveKey(prefix string) string {
	p := prefix[:1]
	if k.name == "" {
		return strings.ToLower(p) + k.suffix
	}
	return strings.ToUpper(p) + k.suffix
}

func lookup(name string) *keyword {
	for i := range keywords {
		if keywords[i].name == name {
			return &keywords[i]
		}
	}
	return nil
}

// ArchiveKey returns the archive keyword for header keyword name under
// prefix, or "" if name is not a WCS keyword.
func ArchiveKey(prefix, name string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if k := lookup(name); k != nil && name != "" {
		return k.archiveKey(prefix)
	}
	return ""
}

// ValidPrefix checks that p can prefix archive keywords.
func ValidPrefix(p string) error {
	if len(p) != 1 {
		return fmt.Errorf("archive prefix %q is not a single character", p)
	}
	c := p[0]
	if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z') {
		return fmt.Errorf("archive prefix %q is not a letter", p)
	}
	return nil
}
