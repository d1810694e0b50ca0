// Public domain.

// Package fitshdr reads image headers and calibration tables from FITS
// files into the in-memory forms used by the WCS update.
package fitshdr

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/idc"
	"github.com/hstwcs/makewcs/internal/mwerr"
	"github.com/hstwcs/makewcs/internal/update"
)

// Map copies the cards of h.  NAXIS keywords held only in the axes of h
// are added.
func Map(h *fitsio.Header) *hdr.Map {
	var cards []hdr.Card
	seen := map[string]bool{}
	for _, k := range h.Keys() {
		c := h.Get(k)
		if c == nil || seen[k] {
			continue
		}
		seen[k] = true
		cards = append(cards, hdr.Card{Key: k, Value: c.Value, Comment: c.Comment})
	}
	axes := h.Axes()
	if !seen["NAXIS"] {
		cards = append(cards, hdr.Card{Key: "NAXIS", Value: len(axes)})
	}
	for i, n := range axes {
		k := "NAXIS" + strconv.Itoa(i+1)
		if !seen[k] {
			cards = append(cards, hdr.Card{Key: k, Value: n})
		}
	}
	return hdr.NewMap(cards...)
}

func open(path string, fn func(*fitsio.File) error) error {
	r, err := os.Open(path)
	if err != nil {
		return mwerr.E(mwerr.IO, "fitshdr.open", path, err)
	}
	defer r.Close()
	f, err := fitsio.Open(r)
	if err != nil {
		return mwerr.E(mwerr.IO, "fitshdr.open", path, err)
	}
	defer f.Close()
	return fn(f)
}

// extensions returns the headers of the HDUs of path named extname, or of
// all extensions when extname is empty, and the primary header.
func extensions(path, extname string) (primary *hdr.Map, ext []hdr.Header, err error) {
	err = open(path, func(f *fitsio.File) error {
		hdus := f.HDUs()
		if len(hdus) == 0 {
			return mwerr.Errorf(mwerr.IO, "fitshdr.extensions", path, "no HDUs")
		}
		primary = Map(hdus[0].Header())
		for _, u := range hdus[1:] {
			if extname == "" || named(u, extname) {
				ext = append(ext, Map(u.Header()))
			}
		}
		return nil
	})
	return
}

// ReadImage reads the headers of the image at path:  the primary header
// and the SCI extensions.  When they exist, the support file primary
// header and the extensions of the data quality file are read as well.
// A file without SCI extensions is read as a single image in its primary
// HDU.
func ReadImage(path string) (*update.Image, error) {
	p, sci, err := extensions(path, "SCI")
	if err != nil {
		return nil, err
	}
	img := &update.Image{Name: path, Primary: p, Sci: sci}
	if len(sci) == 0 {
		img.Sci = []hdr.Header{p}
	}
	if s := SupportName(path); exists(s) {
		sp, _, err := extensions(s, "SCI")
		if err != nil {
			return nil, err
		}
		img.Support = sp
	}
	if dq := DQName(path); exists(dq) {
		dp, ext, err := extensions(dq, "")
		if err != nil {
			return nil, err
		}
		if len(ext) == 0 {
			ext = []hdr.Header{dp}
		}
		img.DQ = ext
	}
	return img, nil
}

func named(u fitsio.HDU, extname string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Name()), extname)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sibling returns the name of the file of the same observation as image
// with suffix replacing the part of the name after the last underscore.
func sibling(image, suffix string) string {
	dir, base := filepath.Split(image)
	root := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.LastIndex(root, "_"); i > 0 {
		root = root[:i]
	}
	return filepath.Join(dir, root+suffix)
}

// SupportName returns the name of the support file of image.
func SupportName(image string) string { return sibling(image, "_spt.fits") }

// DQName returns the name of the separate data quality file of image.
// Only images converted from GEIS have one.
func DQName(image string) string {
	n := sibling(image, "_c1h.fits")
	if n == image {
		return ""
	}
	return n
}

// Resolve returns the file named by a header keyword value.  A name of
// the form env$file is looked up in the directory named by environment
// variable env, or in dir when env is not set.  Other relative names are
// relative to dir.
func Resolve(name, dir string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "$"); i >= 0 {
		if d := os.Getenv(name[:i]); d != "" {
			return filepath.Join(d, name[i+1:])
		}
		name = name[i+1:]
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// ReadTable reads the primary header and the first binary table of the
// calibration table at path.
func ReadTable(path string) (*idc.Table, error) {
	const op = "fitshdr.ReadTable"
	t := &idc.Table{Name: path}
	err := open(path, func(f *fitsio.File) error {
		hdus := f.HDUs()
		if len(hdus) == 0 {
			return mwerr.Errorf(mwerr.IO, op, path, "no HDUs")
		}
		t.Header = Map(hdus[0].Header())
		for _, u := range hdus[1:] {
			if tab, ok := u.(*fitsio.Table); ok {
				return readRows(t, tab)
			}
		}
		return mwerr.Errorf(mwerr.IO, op, path, "no table extension")
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func readRows(t *idc.Table, tab *fitsio.Table) error {
	const op = "fitshdr.ReadTable"
	cols := tab.Cols()
	vals := make([]reflect.Value, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i, c := range cols {
		typ, err := colType(c.Format)
		if err != nil {
			return mwerr.E(mwerr.IO, op, t.Name+" column "+c.Name, err)
		}
		vals[i] = reflect.New(typ)
		ptrs[i] = vals[i].Interface()
		t.Columns = append(t.Columns, strings.ToUpper(strings.TrimSpace(c.Name)))
	}
	rows, err := tab.Read(0, tab.NumRows())
	if err != nil {
		return mwerr.E(mwerr.IO, op, t.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return mwerr.E(mwerr.IO, op, t.Name, err)
		}
		r := make(idc.Row, len(cols))
		for i, c := range t.Columns {
			r[c] = vals[i].Elem().Interface()
		}
		t.Rows = append(t.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return mwerr.E(mwerr.IO, op, t.Name, err)
	}
	return nil
}

// colType returns the Go type of binary table column format TFORM.
func colType(format string) (reflect.Type, error) {
	f := strings.ToUpper(strings.TrimSpace(format))
	i := strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' })
	if i < 0 {
		return nil, fmt.Errorf("invalid TFORM %q", format)
	}
	n := 1
	if i > 0 {
		n, _ = strconv.Atoi(f[:i])
	}
	var t reflect.Type
	switch f[i] {
	case 'A':
		return reflect.TypeOf(""), nil
	case 'L':
		t = reflect.TypeOf(false)
	case 'B':
		t = reflect.TypeOf(uint8(0))
	case 'I':
		t = reflect.TypeOf(int16(0))
	case 'J':
		t = reflect.TypeOf(int32(0))
	case 'K':
		t = reflect.TypeOf(int64(0))
	case 'E':
		t = reflect.TypeOf(float32(0))
	case 'D':
		t = reflect.TypeOf(float64(0))
	default:
		return nil, fmt.Errorf("unsupported TFORM %q", format)
	}
	if n != 1 {
		t = reflect.SliceOf(t)
	}
	return t, nil
}
