// Public domain.

// Package wcs implements the tangent plane (TAN) world coordinate system of
// a detector chip, with an archive of the original keyword values.
package wcs

import (
	"math"
	"strings"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/mwerr"
)

// State is the linear WCS of one chip.  Angles are degrees, PScale is
// arcsec/pixel.
type State struct {
	CRVAL1, CRVAL2         float64
	CRPIX1, CRPIX2         float64
	CD11, CD12, CD21, CD22 float64
	NAXIS1, NAXIS2         int
	Orient                 float64
	PScale                 float64
	CTYPE1, CTYPE2         string
	New                    bool // built from defaults rather than a header
}

// WCS is a chip WCS with its archive.
type WCS struct {
	State
	Name    string
	archive Archive
}

// New returns a default WCS for an image of the given size.
func New(name string, naxis1, naxis2 int, pscale float64) *WCS {
	w := &WCS{
		Name: name,
		State: State{
			CD11: 1, CD12: 1, CD21: 1, CD22: 1,
			NAXIS1: naxis1, NAXIS2: naxis2,
			Orient: 1,
			PScale: pscale,
			CTYPE1: "RA---TAN",
			CTYPE2: "DEC--TAN",
			New:    true,
		},
	}
	w.Archive(DefaultPrefix, false)
	return w
}

// FromHeader reads the WCS keywords of h.  The archive is read from h when
// it holds archive keywords, otherwise it is made from the values just
// read under prefix.
func FromHeader(name string, h hdr.Header, prefix string) (*WCS, error) {
	const op = "wcs.FromHeader"
	if prefix != "" {
		if err := ValidPrefix(prefix); err != nil {
			return nil, mwerr.E(mwerr.Other, op, name, err)
		}
	}
	w := &WCS{Name: name}
	size := map[string]string{"NAXIS1": "NAXIS1", "NAXIS2": "NAXIS2"}
	if n, ok := hdr.Int(h, "NAXIS"); ok && n == 0 && hdr.Has(h, "PIXVALUE") {
		size = map[string]string{"NAXIS1": "NPIX1", "NAXIS2": "NPIX2"}
	}
	orient := false
	for i := range keywords {
		k := &keywords[i]
		if k == pscale {
			continue
		}
		key := k.name
		if s, ok := size[key]; ok {
			key = s
		}
		v, ok := h.Get(key)
		if !ok {
			if k.name == "ORIENTAT" {
				continue
			}
			return nil, mwerr.Errorf(mwerr.IO, op, name,
				"header does not contain all required WCS keywords: no %s", key)
		}
		if !k.set(&w.State, v) {
			return nil, mwerr.Errorf(mwerr.IO, op, name, "invalid %s value %v", key, v)
		}
		orient = orient || k.name == "ORIENTAT"
	}
	w.PScale = w.pixelScale()
	if !orient {
		w.Orient = w.orientation()
	}
	w.ReadArchive(h, prefix)
	return w, nil
}

// Copy returns a deep copy of w.
func (w *WCS) Copy() *WCS {
	c := *w
	c.archive = w.archive.copy()
	return &c
}

func (s *State) orientation() float64 {
	return unit.Angle(math.Atan2(s.CD12, s.CD22)).Deg()
}

// pixelScale is the length of the first CD column, in arcsec.  It is
// exact only for CD matrices without skew.
func (s *State) pixelScale() float64 {
	return math.Hypot(s.CD11, s.CD21) * 3600
}

// Update recomputes Orient and PScale from the CD matrix.
func (s *State) Update() {
	s.Orient = s.orientation()
	s.PScale = s.pixelScale()
}

// Det is the determinant of the CD matrix.
func (s *State) Det() float64 {
	return s.CD11*s.CD22 - s.CD12*s.CD21
}

// IsTAN reports whether both axes use the gnomonic projection.
func (s *State) IsTAN() bool {
	return strings.Contains(s.CTYPE1, "TAN") && strings.Contains(s.CTYPE2, "TAN")
}

// XY2RD returns the sky position of pixel (x, y).
func (s *State) XY2RD(x, y float64) (coord.Equa, error) {
	if !s.IsTAN() {
		return coord.Equa{}, mwerr.Errorf(mwerr.UnsupportedProjection,
			"wcs.XY2RD", "", "%s, %s", s.CTYPE1, s.CTYPE2)
	}
	dx, dy := x-s.CRPIX1, y-s.CRPIX2
	xi := unit.AngleFromDeg(s.CD11*dx + s.CD12*dy).Rad()
	eta := unit.AngleFromDeg(s.CD21*dx + s.CD22*dy).Rad()
	sd0, cd0 := unit.AngleFromDeg(s.CRVAL2).Sincos()
	ra := math.Atan(xi/(cd0-eta*sd0)) + unit.AngleFromDeg(s.CRVAL1).Rad()
	dec := math.Atan((eta*cd0 + sd0) / math.Hypot(cd0-eta*sd0, xi))
	return coord.Equa{RA: unit.RAFromRad(ra), Dec: unit.Angle(dec)}, nil
}

// RD2XY returns the pixel position of sky position p.
func (s *State) RD2XY(p coord.Equa) (x, y float64, err error) {
	const op = "wcs.RD2XY"
	if !s.IsTAN() {
		return 0, 0, mwerr.Errorf(mwerr.UnsupportedProjection, op, "",
			"%s, %s", s.CTYPE1, s.CTYPE2)
	}
	det := s.Det()
	if det == 0 {
		return 0, 0, mwerr.E(mwerr.SingularMatrix, op, "", nil)
	}
	sd, cd := p.Dec.Sincos()
	sd0, cd0 := unit.AngleFromDeg(s.CRVAL2).Sincos()
	sa, ca := math.Sincos(p.RA.Rad() - unit.AngleFromDeg(s.CRVAL1).Rad())
	bottom := sd*sd0 + cd*cd0*ca
	// positions in the far hemisphere have no gnomonic projection, so
	// negative values are rejected along with zero
	if bottom <= 0 {
		return 0, 0, mwerr.Errorf(mwerr.GeometryRange, op, "",
			"%.6f, %.6f is 90 degrees or more from the tangent point", p.RA.Deg(), p.Dec.Deg())
	}
	xi := unit.Angle(cd * sa / bottom).Deg()
	eta := unit.Angle((sd*cd0 - cd*sd0*ca) / bottom).Deg()
	x = (s.CD22*xi-s.CD12*eta)/det + s.CRPIX1
	y = (-s.CD21*xi+s.CD11*eta)/det + s.CRPIX2
	return x, y, nil
}

// RotateCD rotates the CD matrix so the orientation becomes orient degrees.
func (s *State) RotateCD(orient float64) {
	delta := s.orientation() - orient
	if delta == 0 {
		return
	}
	sn, cs := unit.AngleFromDeg(delta).Sincos()
	rot := mat.NewDense(2, 2, []float64{cs, sn, -sn, cs})
	var cd mat.Dense
	cd.Mul(s.cd(), rot)
	s.setCD(&cd)
	s.Orient = orient
}

func (s *State) cd() *mat.Dense {
	return mat.NewDense(2, 2, []float64{s.CD11, s.CD12, s.CD21, s.CD22})
}

func (s *State) setCD(m mat.Matrix) {
	s.CD11, s.CD12 = m.At(0, 0), m.At(0, 1)
	s.CD21, s.CD22 = m.At(1, 0), m.At(1, 1)
}

// Recenter moves the reference pixel to the image center, adjusting CRVAL
// and the CD matrix for the change in tangent point (Cox, 2004).
func (s *State) Recenter() error {
	cx, cy := float64(s.NAXIS1)/2, float64(s.NAXIS2)/2
	if s.CRPIX1 == cx && s.CRPIX2 == cy {
		return nil
	}
	cen, err := s.XY2RD(cx, cy)
	if err != nil {
		return err
	}
	dx, dy := cx-s.CRPIX1, cy-s.CRPIX2
	dE := unit.AngleFromDeg(s.CD11*dx + s.CD12*dy).Rad()
	dN := unit.AngleFromDeg(s.CD21*dx + s.CD22*dy).Rad()
	dEdN := 1 + dE*dE + dN*dN
	sd0, cd0 := unit.AngleFromDeg(s.CRVAL2).Sincos()
	sd, cd := cen.Dec.Sincos()

	n1 := cd*cd + dE*dE + dN*dN*sd*sd
	draE := (cd0 - dN*sd0) / n1
	draN := dE * sd0 / n1
	ddecE := -dE * math.Tan(cen.Dec.Rad()) / dEdN
	ddecN := (cd0/math.Sqrt(dEdN) - dN*sd/dEdN) / cd

	cd11 := cd * (s.CD11*draE + s.CD21*draN)
	cd12 := cd * (s.CD12*draE + s.CD22*draN)
	cd21 := s.CD11*ddecE + s.CD21*ddecN
	cd22 := s.CD12*ddecE + s.CD22*ddecN

	s.CRPIX1, s.CRPIX2 = cx, cy
	s.CRVAL1, s.CRVAL2 = cen.RA.Deg(), cen.Dec.Deg()
	s.CD11, s.CD12, s.CD21, s.CD22 = cd11, cd12, cd21, cd22
	s.Update()
	return nil
}

// Params are changes for UpdateWCS.  Zero values and nil pointers leave
// the corresponding property unchanged.
type Params struct {
	PixelScale float64     // arcsec/pixel
	Orient     *float64    // deg
	RefPos     *[2]float64 // CRPIX1, CRPIX2
	RefVal     *[2]float64 // CRVAL1, CRVAL2
	Size       *[2]int     // NAXIS1, NAXIS2
}

// UpdateWCS applies p to s, rescaling the CD matrix to a new pixel scale
// and rotating it to a new orientation.
func (s *State) UpdateWCS(p Params) {
	if p.Orient != nil && *p.Orient != s.Orient {
		s.RotateCD(*p.Orient)
	}
	if p.PixelScale != 0 && p.PixelScale != s.PScale {
		r := p.PixelScale / s.PScale
		var cd mat.Dense
		cd.Scale(r, s.cd())
		s.setCD(&cd)
	}
	if p.RefPos != nil {
		s.CRPIX1, s.CRPIX2 = p.RefPos[0], p.RefPos[1]
	}
	if p.RefVal != nil {
		s.CRVAL1, s.CRVAL2 = p.RefVal[0], p.RefVal[1]
	}
	if p.Size != nil {
		s.NAXIS1, s.NAXIS2 = p.Size[0], p.Size[1]
	}
	s.Update()
	s.New = false
}
