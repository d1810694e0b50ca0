// Public domain.

package fitshdr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/mwerr"
	"github.com/hstwcs/makewcs/internal/update"
)

// WriteImage writes the keywords updated in the headers of img back to the
// image file and to its data quality file.  A file with an updated header
// is rewritten to a temporary file beside it which then replaces it.  Data
// and cards not updated are copied unchanged.
func WriteImage(img *update.Image) error {
	err := rewrite(img.Name, func(hdus []fitsio.HDU) []hdr.Header {
		hs := []hdr.Header{img.Primary}
		sci := img.Sci
		for _, u := range hdus[1:] {
			var h hdr.Header
			if named(u, "SCI") && len(sci) > 0 {
				h, sci = sci[0], sci[1:]
			}
			hs = append(hs, h)
		}
		return hs
	})
	if err != nil || len(img.DQ) == 0 {
		return err
	}
	// parallel to ReadImage: all extensions, or the primary HDU alone
	return rewrite(DQName(img.Name), func(hdus []fitsio.HDU) []hdr.Header {
		if len(hdus) == 1 {
			return img.DQ[:1]
		}
		return append([]hdr.Header{nil}, img.DQ...)
	})
}

// rewrite replaces the FITS file at path when any of the headers, parallel
// to the HDUs of the file, holds updated cards.
func rewrite(path string, headers func([]fitsio.HDU) []hdr.Header) error {
	const op = "fitshdr.WriteImage"
	var tmp string
	err := open(path, func(f *fitsio.File) error {
		hdus := f.HDUs()
		if len(hdus) == 0 {
			return mwerr.Errorf(mwerr.IO, op, path, "no HDUs")
		}
		changed := false
		for i, h := range headers(hdus) {
			m, ok := h.(*hdr.Map)
			if !ok || i >= len(hdus) {
				continue
			}
			if u := m.Updated(); len(u) > 0 {
				if err := merge(hdus[i].Header(), u); err != nil {
					return mwerr.E(mwerr.IO, op, path, err)
				}
				changed = true
			}
		}
		if !changed {
			return nil
		}
		var err error
		tmp, err = writeTemp(path, hdus)
		return err
	})
	if err != nil || tmp == "" {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return mwerr.E(mwerr.IO, op, path, err)
	}
	return nil
}

// maximum comment length following a 20 column value
const commentLen = 80 - 10 - 20 - 3

// merge sets cards in h.  Cards new to h are added at the end, before the
// END card a decoded header carries.
func merge(h *fitsio.Header, cards []hdr.Card) (err error) {
	end := h.Index("END")
	if end < 0 {
		for _, c := range cards {
			h.Set(c.Key, c.Value, clip(c.Comment))
		}
		return nil
	}
	all := make([]fitsio.Card, 0, end+len(cards))
	index := map[string]int{}
	for i := 0; i < end; i++ {
		c := *h.Card(i)
		switch c.Name {
		case "", "COMMENT", "HISTORY":
		default:
			index[c.Name] = len(all)
		}
		all = append(all, c)
	}
	for _, c := range cards {
		fc := fitsio.Card{Name: c.Key, Value: c.Value, Comment: clip(c.Comment)}
		if i, ok := index[c.Key]; ok {
			all[i] = fc
			continue
		}
		index[c.Key] = len(all)
		all = append(all, fc)
	}
	// NewHeader panics on cards it cannot encode
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("%v", x)
		}
	}()
	*h = *fitsio.NewHeader(all, h.Type(), h.Bitpix(), h.Axes())
	return nil
}

func clip(s string) string {
	if len(s) > commentLen {
		return s[:commentLen]
	}
	return s
}

func writeTemp(path string, hdus []fitsio.HDU) (string, error) {
	const op = "fitshdr.WriteImage"
	w, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return "", mwerr.E(mwerr.IO, op, path, err)
	}
	fail := func(err error) (string, error) {
		w.Close()
		os.Remove(w.Name())
		return "", mwerr.E(mwerr.IO, op, path, err)
	}
	if fi, err := os.Stat(path); err == nil {
		if err := w.Chmod(fi.Mode().Perm()); err != nil {
			return fail(err)
		}
	}
	f, err := fitsio.Create(w)
	if err != nil {
		return fail(err)
	}
	for _, u := range hdus {
		if err := f.Write(u); err != nil {
			return fail(err)
		}
	}
	f.Close()
	if err := w.Close(); err != nil {
		os.Remove(w.Name())
		return "", mwerr.E(mwerr.IO, op, path, err)
	}
	return w.Name(), nil
}
