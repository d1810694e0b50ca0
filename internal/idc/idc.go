// Public domain.

// Package idc loads distortion models from IDC calibration tables.
//
// A model is a pair of bivariate polynomials Fx, Fy mapping detector pixel
// offsets from the reference pixel to distortion-corrected offsets in
// arcseconds, plus the reference pixel description.  Coefficient Fx[i][j]
// multiplies x^j·y^(i-j).
package idc

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/mwerr"
)

// Wildcard is the DETCHIP value that matches any chip.
const Wildcard = -999

// MinOrder is the smallest polynomial order of a Model.
const MinOrder = 3

// Directions of a model.
const (
	Forward = "forward"
	Inverse = "inverse"
)

// RefPix describes the reference pixel and aperture of a model.
// Lengths are pixels, V2Ref, V3Ref and PScale arcseconds, Theta degrees.
type RefPix struct {
	XRef, YRef   float64
	XSize, YSize float64
	V2Ref, V3Ref float64
	Theta        float64
	PScale       float64
	XDelta       float64
	YDelta       float64
	DefaultScale bool
	Centered     bool
}

// Model is a distortion model for one chip, filter pair and direction.
type Model struct {
	Chip             int
	Filter1, Filter2 string
	Direction        string
	Date             time.Time
	Order            int
	Fx, Fy           *mat.Dense // (Order+1)×(Order+1)
	RefPix           RefPix
}

// Query selects a model from a table.
type Query struct {
	Chip             int
	Filter1, Filter2 string
	Direction        string    // Forward when empty
	Date             time.Time // observation epoch, for offset tables
	Binned           int       // on-chip binning, 0 or 1 for none
	Offsets          *Table    // optional OFFTAB
}

// NormFilter returns the canonical form of a filter name:  blank is CLEAR
// and names starting with CLEAR are truncated to CLEAR.
func NormFilter(f string) string {
	f = strings.ToUpper(strings.TrimSpace(f))
	if f == "" || strings.HasPrefix(f, "CLEAR") {
		return "CLEAR"
	}
	return f
}

// Load selects the first row of t matching q and returns its model.
func Load(t *Table, q Query) (*Model, error) {
	const op = "idc.Load"
	f1, f2 := NormFilter(q.Filter1), NormFilter(q.Filter2)
	if det, _ := hdr.String(t.Header, "DETECTOR"); det == "SBC" {
		if f1 == "CLEAR" {
			f1, f2 = "F115LP", "N/A"
		} else if f2 == "CLEAR" {
			f2 = "N/A"
		}
	}
	dir := strings.ToLower(strings.TrimSpace(q.Direction))
	if dir == "" {
		dir = Forward
	}
	norder, ok := hdr.Int(t.Header, "NORDER")
	if !ok {
		return nil, mwerr.Errorf(mwerr.IO, op, t.Name, "missing NORDER keyword")
	}

	var row Row
	for _, r := range t.Rows {
		rf1, rf2 := t.rowFilters(r, f1, f2)
		c := r.chip()
		if rf1 == f1 && rf2 == f2 && r.direction() == dir &&
			(c == q.Chip || c == Wildcard) {
			row = r
			break
		}
	}
	if row == nil {
		return nil, mwerr.Errorf(mwerr.CalibrationLookup, op, t.Name,
			"no row for chip %d with filters %s, %s", q.Chip, f1, f2)
	}

	order := norder
	if order < MinOrder {
		order = MinOrder
	}
	m := &Model{
		Chip:      q.Chip,
		Filter1:   f1,
		Filter2:   f2,
		Direction: dir,
		Date:      q.Date,
		Order:     order,
		Fx:        mat.NewDense(order+1, order+1, nil),
		Fy:        mat.NewDense(order+1, order+1, nil),
	}
	cx, cy := "A", "B"
	if t.HasColumn("CX10") {
		cx, cy = "CX", "CY"
	}
	for i := 1; i <= norder; i++ {
		for j := 0; j <= i; j++ {
			ij := strconv.Itoa(i) + strconv.Itoa(j)
			x, _ := row.Float(cx + ij)
			y, _ := row.Float(cy + ij)
			m.Fx.Set(i, j, x)
			m.Fy.Set(i, j, y)
		}
	}

	rp := &m.RefPix
	rp.XRef, _ = row.Float("XREF")
	rp.YRef, _ = row.Float("YREF")
	rp.XSize, _ = row.Float("XSIZE")
	rp.YSize, _ = row.Float("YSIZE")
	scale, _ := row.Float("SCALE")
	rp.PScale = math.Round(scale*1e8) / 1e8
	rp.DefaultScale = true
	if v2, ok := row.Float("V2REF"); ok {
		rp.V2Ref = v2
		rp.V3Ref, _ = row.Float("V3REF")
		rp.Theta, _ = row.Float("THETA")
	} else if q.Offsets != nil {
		chip := row.chip()
		if chip == Wildcard {
			chip = q.Chip
		}
		o, err := Offsets(q.Offsets, q.Date, chip)
		if err != nil {
			return nil, err
		}
		rp.V2Ref, rp.V3Ref, rp.Theta = o.V2Ref, o.V3Ref, o.Theta
	} else {
		rp.Theta, _ = row.Float("THETA")
	}

	if m.Fx.At(1, 1) == 1 && rp.PScale != 1 {
		m.Fx.Scale(rp.PScale, m.Fx)
		m.Fy.Scale(rp.PScale, m.Fy)
	}
	if q.Binned > 1 {
		m.bin(q.Binned)
	}
	return m, nil
}

// rowFilters returns the filter names of row r under the table's column
// convention.  Tables without filter columns match any request.
func (t *Table) rowFilters(r Row, f1, f2 string) (string, string) {
	switch {
	case t.HasColumn("FILTER1") && t.HasColumn("FILTER2"):
		a, _ := r.String("FILTER1")
		b, _ := r.String("FILTER2")
		return NormFilter(a), NormFilter(b)
	case t.HasColumn("OPT_ELEM"):
		a, _ := r.String("OPT_ELEM")
		b, _ := r.String("FILTER")
		return NormFilter(a), NormFilter(b)
	case t.HasColumn("FILTER"):
		a, _ := r.String("FILTER")
		return NormFilter(a), "CLEAR"
	}
	return f1, f2
}

func (r Row) direction() string {
	d, ok := r.String("DIRECTION")
	if !ok {
		return Forward
	}
	return strings.ToLower(d)
}

// bin converts m to a detector binned by b on both axes.
func (m *Model) bin(b int) {
	fb := float64(b)
	rp := &m.RefPix
	rp.XRef /= fb
	rp.YRef /= fb
	rp.XSize /= fb
	rp.YSize /= fb
	rp.PScale *= fb
	for i := 1; i <= m.Order; i++ {
		s := math.Pow(fb, float64(i))
		for j := 0; j <= i; j++ {
			m.Fx.Set(i, j, m.Fx.At(i, j)*s)
			m.Fy.Set(i, j, m.Fy.At(i, j)*s)
		}
	}
}

// Default returns a model with no distortion for an image of the given
// size and pixel scale, referenced at the image center.
func Default(naxis1, naxis2 int, pscale float64) *Model {
	m := &Model{
		Chip:      1,
		Filter1:   "CLEAR",
		Filter2:   "CLEAR",
		Direction: Forward,
		Order:     MinOrder,
		Fx:        mat.NewDense(MinOrder+1, MinOrder+1, nil),
		Fy:        mat.NewDense(MinOrder+1, MinOrder+1, nil),
		RefPix: RefPix{
			XRef:         float64(naxis1) / 2,
			YRef:         float64(naxis2) / 2,
			XSize:        float64(naxis1),
			YSize:        float64(naxis2),
			PScale:       pscale,
			DefaultScale: true,
			Centered:     true,
		},
	}
	m.Fx.Set(1, 1, pscale)
	m.Fy.Set(1, 0, pscale)
	return m
}

// Eval evaluates the model polynomials at pixel offset (x, y) from the
// reference pixel.
func (m *Model) Eval(x, y float64) (u, v float64) {
	for i := 0; i <= m.Order; i++ {
		for j := 0; j <= i; j++ {
			p := math.Pow(x, float64(j)) * math.Pow(y, float64(i-j))
			u += m.Fx.At(i, j) * p
			v += m.Fy.At(i, j) * p
		}
	}
	return
}
