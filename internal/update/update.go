// Public domain.

// Package update recomputes the WCS of the science extensions of an image
// so that it agrees with the image's distortion model.
//
// For each extension the reference chip tangent plane is built from the
// telescope roll and the reference aperture, the chip's aperture offset is
// projected through it, and the new linear WCS, archive keywords and SIP
// coefficients are written back to the extension header.
package update

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/hstwcs/makewcs/internal/frame"
	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/idc"
	"github.com/hstwcs/makewcs/internal/mwerr"
	"github.com/hstwcs/makewcs/internal/sip"
	"github.com/hstwcs/makewcs/internal/tdd"
	"github.com/hstwcs/makewcs/internal/wcs"
)

// Image is the set of headers of one observation.
type Image struct {
	Name    string
	Primary hdr.Header
	Sci     []hdr.Header // science extensions in file order
	DQ      []hdr.Header // optional, parallel to Sci; nil entries allowed
	Support hdr.Header   // optional support file primary header
}

// Tables returns a calibration table by name.
type Tables func(name string) (*idc.Table, error)

// Options configure a Runner.
type Options struct {
	Prefix      string      // archive prefix, wcs.DefaultPrefix when empty
	TDD         bool        // correct time dependent distortion
	Coeffs      tdd.Coeffs  // drift model, tdd.WFCLinear when nil
	Instruments frame.Table // frame.Instruments when nil
	Log         *slog.Logger

	// Resolve maps a table name found in the headers of image to the
	// name passed to Tables.  Names are used as found when Resolve is nil.
	Resolve func(name, image string) string
}

// Runner updates images.  Tables and models are cached for the life of
// the Runner.  A Runner is not safe for concurrent use.
type Runner struct {
	opt    Options
	tables Tables
	tabs   map[string]*idc.Table
	models map[modelKey]*idc.Model
}

type modelKey struct {
	table, offtab    string
	chip             int
	filter1, filter2 string
	date             int64
	binned           int
}

// NewRunner returns a Runner reading calibration tables with tables.
func NewRunner(tables Tables, opt Options) *Runner {
	if opt.Prefix == "" {
		opt.Prefix = wcs.DefaultPrefix
	}
	if opt.Coeffs == nil {
		opt.Coeffs = tdd.WFCLinear
	}
	if opt.Instruments == nil {
		opt.Instruments = frame.Instruments
	}
	if opt.Log == nil {
		opt.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		opt:    opt,
		tables: tables,
		tabs:   map[string]*idc.Table{},
		models: map[modelKey]*idc.Model{},
	}
}

func extName(image, ext string, i int) string {
	return fmt.Sprintf("%s[%s,%d]", image, ext, i+1)
}

// Image updates the WCS of every science extension of img from the
// distortion models of IDC table idctab.  Extensions are updated in order
// and an error stops the update, leaving earlier extensions updated.  The
// number of extensions updated is returned.
func (r *Runner) Image(img *Image, idctab string) (int, error) {
	inst, _ := hdr.String(img.Primary, "INSTRUME")
	det, _ := hdr.String(img.Primary, "DETECTOR")
	d, err := r.opt.Instruments.Lookup(inst, det)
	if err != nil {
		return 0, err
	}
	if len(img.Sci) == 0 {
		return 0, mwerr.Errorf(mwerr.IO, "update.Image", img.Name, "no science extensions")
	}
	useTDD := r.opt.TDD && d.TDD != nil
	if s, _ := hdr.String(img.Primary, "TDDCORR"); s == "OMIT" {
		useTDD = false
	}
	for i := range img.Sci {
		if err := r.chip(img, i, idctab, d, useTDD); err != nil {
			return i, err
		}
	}
	return len(img.Sci), nil
}

// Restore copies the archived WCS keywords of every science extension of
// img back to the active keywords.  Extensions without an archive are
// logged and skipped.  The number of extensions restored is returned.
func (r *Runner) Restore(img *Image) (int, error) {
	n := 0
	for i, sci := range img.Sci {
		name := extName(img.Name, "sci", i)
		h := hdr.Merge(img.Primary, sci)
		w, err := wcs.FromHeader(name, h, r.opt.Prefix)
		if err != nil {
			return n, err
		}
		if err := w.RestoreWCS(h, r.opt.Prefix); err != nil {
			r.opt.Log.Warn("could not restore WCS keywords", "image", name, "error", err)
			continue
		}
		r.opt.Log.Info("restored original WCS", "image", name)
		n++
	}
	return n, nil
}

// chipNumber returns the chip of an extension from CAMERA, CCDCHIP or
// DETECTOR, in that order.
func chipNumber(h hdr.Header) int {
	if v, ok := h.Get("CAMERA"); ok {
		if n, err := strconv.Atoi(hdr.ToString(v)); err == nil {
			return n
		}
	}
	if n, ok := hdr.Int(h, "CCDCHIP"); ok && n != 0 {
		return n
	}
	if v, ok := h.Get("DETECTOR"); ok {
		if n, err := strconv.Atoi(hdr.ToString(v)); err == nil {
			return n
		}
	}
	return 1
}

// refChip returns the reference chip for an extension holding chip, and
// the index of the science extension its WCS is read from.
func refChip(img *Image, h hdr.Header, d frame.Detector, chip int) (rc, ext int) {
	switch d.RefChip {
	case frame.RefWFC:
		if len(img.Sci) > 1 {
			return 2, 0
		}
		return chip, 0
	case frame.RefCamera:
		if c, ok := hdr.Int(h, "CAMERA"); ok {
			return c, 0
		}
		return chip, 0
	case frame.RefWF3:
		first := 1
		for i, sci := range img.Sci {
			n, ok := hdr.Int(sci, "DETECTOR")
			if !ok {
				continue
			}
			if n == 3 {
				return 3, i
			}
			if i == 0 {
				first = n
			}
		}
		return first, 0
	}
	return 1, 0
}

// model returns the forward model for q from table name, and from offset
// table offtab when it is not empty.
func (r *Runner) model(name, offtab string, q idc.Query) (*idc.Model, error) {
	k := modelKey{
		table: name, offtab: offtab,
		chip:    q.Chip,
		filter1: idc.NormFilter(q.Filter1), filter2: idc.NormFilter(q.Filter2),
		date:   q.Date.UnixNano(),
		binned: q.Binned,
	}
	if m, ok := r.models[k]; ok {
		return m, nil
	}
	t, err := r.table(name)
	if err != nil {
		return nil, err
	}
	if offtab != "" {
		if q.Offsets, err = r.table(offtab); err != nil {
			return nil, err
		}
	}
	m, err := idc.Load(t, q)
	if err != nil {
		return nil, err
	}
	r.models[k] = m
	return m, nil
}

func (r *Runner) table(name string) (*idc.Table, error) {
	if t, ok := r.tabs[name]; ok {
		return t, nil
	}
	t, err := r.tables(name)
	if err != nil {
		return nil, mwerr.E(mwerr.IO, "update.table", name, err)
	}
	r.tabs[name] = t
	return t, nil
}

func (r *Runner) chip(img *Image, i int, idctab string, d frame.Detector, useTDD bool) error {
	const op = "update.chip"
	name := extName(img.Name, "sci", i)
	h := hdr.Merge(img.Primary, img.Sci[i])
	log := r.opt.Log.With("image", name)

	pav3, ok := hdr.Float(h, "PA_V3")
	if !ok && img.Support != nil {
		pav3, ok = hdr.Float(img.Support, "PA_V3")
	}
	if !ok {
		return mwerr.Errorf(mwerr.MissingRollAngle, op, name,
			"PA_V3 not found in image or support file headers")
	}
	var date time.Time
	if s, ok := hdr.String(h, "DATE-OBS"); ok {
		t, err := hdr.ParseDate(s)
		if err != nil {
			return mwerr.E(mwerr.IO, op, name, err)
		}
		date = t
	}
	offtab, _ := hdr.String(h, "OFFTAB")
	if offtab == "N/A" {
		offtab = ""
	}
	if offtab != "" && r.opt.Resolve != nil {
		offtab = r.opt.Resolve(offtab, img.Name)
	}

	chip := chipNumber(h)
	rc, rext := refChip(img, h, d, chip)
	q := idc.Query{Chip: chip, Direction: idc.Forward, Date: date, Binned: 1}
	q.Filter1, _ = hdr.String(h, d.Filters[0])
	if d.Filters[1] != "" {
		q.Filter2, _ = hdr.String(h, d.Filters[1])
	}
	if d.ModeBinned {
		if mode, _ := hdr.String(h, "MODE"); mode == "AREA" {
			q.Binned = 2
		}
	}
	va := 1.
	if d.VAFactor {
		if v, ok := hdr.Float(h, "VAFACTOR"); ok {
			va = v
		}
	}
	var corr tdd.Correction
	if useTDD {
		corr = tdd.New(d.TDD, r.opt.Coeffs, date)
	}
	log.Debug("chip", "PA_V3", pav3, "chip", chip, "refchip", rc,
		"filter1", idc.NormFilter(q.Filter1), "filter2", idc.NormFilter(q.Filter2),
		"vafactor", va, "offtab", offtab)

	m, err := r.model(idctab, offtab, q)
	if err != nil {
		return err
	}
	old, err := wcs.FromHeader(name, h, r.opt.Prefix)
	if err != nil {
		return err
	}
	old.Restore()

	// subarray placement
	ltv1, _ := hdr.Float(h, "LTV1")
	ltv2, _ := hdr.Float(h, "LTV2")
	var ltvOff, offShift [2]float64
	if ltv1 != 0 || ltv2 != 0 {
		offx := old.CRPIX1 - ltv1 - m.RefPix.XRef
		offy := old.CRPIX2 - ltv2 - m.RefPix.YRef
		ltvOff = [2]float64{ltv1 + offx, ltv2 + offy}
		offShift = [2]float64{offx + m.RefPix.XRef + ltv1, offy + m.RefPix.YRef + ltv2}
		m = m.Shift(offx, offy)
	}

	rq := q
	rq.Chip = rc
	rm, err := r.model(idctab, offtab, rq)
	if err != nil {
		return err
	}
	rh := hdr.Merge(img.Primary, img.Sci[rext])
	ref, err := wcs.FromHeader(extName(img.Name, "sci", rext), rh, r.opt.Prefix)
	if err != nil {
		return err
	}
	ref.WriteArchive(rh, false)
	ref.Restore()

	scale := ref.PScale / m.Fx.At(1, 1)
	rp, tp := rm.RefPix, m.RefPix
	v2ref, v3ref := corr.Apply(rp.V2Ref, rp.V3Ref, rc, scale)
	v2, v3 := corr.Apply(tp.V2Ref, tp.V3Ref, chip, scale)
	refAp := frame.Aperture{V2: v2ref, V3: v3ref, Theta: rp.Theta}

	c := frame.Composer{Parity: d.Parity, PAV3: pav3}
	rref := [2]float64{rp.XRef + ltvOff[0], rp.YRef + ltvOff[1]}
	if err := c.Reference(&ref.State, refAp, rref, offShift, rp.PScale); err != nil {
		return err
	}
	off, bearing := c.Offset(refAp, frame.Aperture{V2: v2, V3: v3}, rp.PScale)

	nw := old.Copy()
	dtheta := 0.
	if tp.Theta != 0 {
		dtheta = tp.Theta - rp.Theta
	}
	if err := c.Target(&nw.State, &ref.State, off, bearing, offShift, m, dtheta, rp.PScale); err != nil {
		return err
	}
	nw.CRPIX1 = tp.XRef + ltvOff[0]
	nw.CRPIX2 = tp.YRef + ltvOff[1]
	if d.VAFactor {
		frame.Aberrate(&nw.State, &ref.State, va)
	}

	nw.Write(h, true, false)
	if i < len(img.DQ) && img.DQ[i] != nil {
		dh := hdr.Merge(img.Primary, img.DQ[i])
		dq, err := wcs.FromHeader(extName(img.Name, "dq", i), dh, r.opt.Prefix)
		if err != nil {
			return err
		}
		dq.WriteArchive(dh, false)
		nw.Write(dh, false, false)
	}
	sip.Write(h, sip.Keywords(m))
	if d.TDD != nil {
		sip.Write(h, sip.TDD(corr))
	}

	log.Info("updated WCS",
		"crval1", fmt.Sprintf("%.3d", sexa.FmtRA(unit.RAFromDeg(nw.CRVAL1))),
		"crval2", fmt.Sprintf("%.2d", sexa.FmtAngle(unit.AngleFromDeg(nw.CRVAL2))),
		"orientat", nw.Orient,
		"pscale", nw.PScale,
		"tdd", corr.Enabled())
	return nil
}
