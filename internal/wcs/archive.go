// Public domain.

package wcs

import (
	"errors"
	"time"

	"github.com/hstwcs/makewcs/internal/hdr"
)

// ErrNoArchive is returned by RestoreWCS when a header holds no archived
// WCS keywords to restore from.
var ErrNoArchive = errors.New("no original WCS values found")

// Now returns the time recorded as the archive date.
var Now = time.Now

// Archive holds the original values of the WCS keywords.
type Archive struct {
	Prefix string
	Backup map[string]string      // header keyword -> archive keyword
	Values map[string]interface{} // archive keyword -> value
	Date   string                 // WCSCDATE
}

func (a *Archive) copy() Archive {
	c := *a
	if a.Backup != nil {
		c.Backup = make(map[string]string, len(a.Backup))
		for k, v := range a.Backup {
			c.Backup[k] = v
		}
	}
	if a.Values != nil {
		c.Values = make(map[string]interface{}, len(a.Values))
		for k, v := range a.Values {
			c.Values[k] = v
		}
	}
	return c
}

// Prefix returns the archive prefix.
func (w *WCS) Prefix() string { return w.archive.Prefix }

// Archived reports whether w holds an archive.
func (w *WCS) Archived() bool { return len(w.archive.Backup) > 0 }

// ArchivedValue returns the archived value of header keyword name.
func (w *WCS) ArchivedValue(name string) (interface{}, bool) {
	a, ok := w.archive.Backup[name]
	if !ok {
		return nil, false
	}
	v, ok := w.archive.Values[a]
	return v, ok
}

// ArchiveDate returns the WCSCDATE of the archive.
func (w *WCS) ArchiveDate() string { return w.archive.Date }

// Archive saves the current values as the originals under prefix, or
// under the existing or default prefix when prefix is empty.  An existing
// archive is replaced only if overwrite is true.  Archive reports whether
// it saved anything.
func (w *WCS) Archive(prefix string, overwrite bool) bool {
	if w.Archived() && !overwrite {
		return false
	}
	if prefix == "" {
		prefix = w.archive.Prefix
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	a := Archive{
		Prefix: prefix[:1],
		Backup: make(map[string]string, len(keywords)),
		Values: make(map[string]interface{}, len(keywords)),
		Date:   Now().Format(dateLayout),
	}
	for i := range keywords {
		k := &keywords[i]
		ak := k.archiveKey(a.Prefix)
		a.Values[ak] = k.get(&w.State)
		if k != pscale {
			a.Backup[k.name] = ak
		}
	}
	w.archive = a
	return true
}

// Restore sets the WCS back to its archived values.
func (w *WCS) Restore() {
	if !w.Archived() {
		return
	}
	for i := range keywords {
		k := &keywords[i]
		if v, ok := w.archive.Values[k.archiveKey(w.archive.Prefix)]; ok {
			k.set(&w.State, v)
		}
	}
	w.Update()
}

// ReadArchive loads the archive from archive keywords in h.  The prefix
// of archive keywords found in h wins over prefix.  When h holds no
// archive keywords the current values are archived under prefix.
func (w *WCS) ReadArchive(h hdr.Header, prefix string) {
	found := ""
scan:
	for _, key := range h.Keys() {
		if len(key) < 2 {
			continue
		}
		for i := range keywords {
			k := &keywords[i]
			if k != pscale && key != k.name && key[1:] == k.suffix {
				found = key[:1]
				break scan
			}
		}
	}
	if found == "" {
		w.archive = Archive{Prefix: w.archive.Prefix}
		w.Archive(prefix, true)
		return
	}
	a := Archive{
		Prefix: found,
		Backup: make(map[string]string, len(keywords)),
		Values: make(map[string]interface{}, len(keywords)),
	}
	for i := range keywords {
		k := &keywords[i]
		if k == pscale {
			continue
		}
		ak := k.archiveKey(found)
		v, ok := h.Get(ak)
		if !ok {
			if v, ok = h.Get(k.name); !ok {
				continue
			}
		}
		a.Values[ak] = v
		a.Backup[k.name] = ak
	}
	var s State
	for _, n := range []string{"CD1_1", "CD2_1"} {
		k := lookup(n)
		k.set(&s, a.Values[k.archiveKey(found)])
	}
	a.Values[pscale.archiveKey(found)] = s.pixelScale()
	if d, ok := hdr.String(h, DateKey); ok {
		a.Date = d
	} else {
		a.Date = Now().Format(dateLayout)
	}
	w.archive = a
}

// Write sets the WCS keywords of h from w, and when archive is true, also
// the archive keywords as WriteArchive does.
func (w *WCS) Write(h hdr.Header, archive, overwrite bool) {
	for i := range keywords {
		k := &keywords[i]
		if k != pscale {
			h.Set(k.name, k.get(&w.State), "")
		}
	}
	if archive {
		w.WriteArchive(h, overwrite)
	}
}

// WriteArchive sets the archive keywords of h.  Archive keywords already
// in h are kept unless overwrite is true, and an archive keyword is only
// written when h has the keyword it archives.
func (w *WCS) WriteArchive(h hdr.Header, overwrite bool) {
	for i := range keywords {
		k := &keywords[i]
		ak, ok := w.archive.Backup[k.name]
		if !ok {
			continue
		}
		if hdr.Has(h, ak) && !overwrite {
			continue
		}
		if !hdr.Has(h, k.name) {
			continue
		}
		h.Set(ak, w.archive.Values[ak], "original "+k.name)
	}
	if !hdr.Has(h, DateKey) {
		h.Set(DateKey, w.archive.Date, "Time WCS keywords were copied.")
	}
}

// RestoreWCS copies archived keyword values in h back to the WCS keywords
// of h.  With no archive in w, keywords archived under prefix are looked
// up directly.  ErrNoArchive is returned when h holds no archive keywords.
func (w *WCS) RestoreWCS(h hdr.Header, prefix string) error {
	if w.Archived() {
		n := 0
		for i := range keywords {
			k := &keywords[i]
			ak, ok := w.archive.Backup[k.name]
			if !ok {
				continue
			}
			if v, ok := h.Get(ak); ok {
				h.Set(k.name, v, "")
				n++
			}
		}
		if n == 0 {
			return ErrNoArchive
		}
		return nil
	}
	if prefix == "" {
		prefix = w.archive.Prefix
	}
	if prefix == "" {
		return ErrNoArchive
	}
	for i := range keywords {
		k := &keywords[i]
		if k == pscale {
			continue
		}
		v, ok := h.Get(k.archiveKey(prefix))
		if !ok {
			return ErrNoArchive
		}
		h.Set(k.name, v, "")
	}
	return nil
}
