// Public domain.

// Package frame composes chip WCS in the telescope V2, V3 frame.
//
// Each chip of an instrument sits at a known aperture position (V2, V3) in
// the focal plane.  Given the roll of the telescope and the WCS of a
// reference chip, the WCS of every other chip follows from its aperture
// offset from the reference aperture and from the linear terms of its
// distortion model.
package frame

import (
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"

	"github.com/hstwcs/makewcs/internal/idc"
	"github.com/hstwcs/makewcs/internal/wcs"
)

// Troll returns the orientation of the Y axis of an aperture at (v2, v3)
// when the V3 axis has position angle roll at declination dec.
func Troll(roll, dec, v2, v3 unit.Angle) unit.Angle {
	sv2, sv3 := v2.Sin(), v3.Sin()
	sinRho := math.Sqrt(sv2*sv2 + sv3*sv3 - sv2*sv2*sv3*sv3)
	if sinRho == 0 {
		// aperture on the V1 axis
		return unit.AngleFromDeg(180)
	}
	rho := math.Asin(sinRho)
	beta := math.Asin(clamp(sv3 / sinRho))
	if v2 < 0 {
		beta = math.Pi - beta
	}
	gamma := math.Asin(clamp(sv2 / sinRho))
	if v3 < 0 {
		gamma = math.Pi - gamma
	}
	a := math.Pi/2 + roll.Rad() - beta
	sa, ca := math.Sincos(a)
	sd, cd := dec.Sincos()
	b := math.Atan2(sa*cd, sd*sinRho-cd*math.Cos(rho)*ca)
	return unit.Angle(math.Pi - (gamma + b))
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

// DiffAngles returns a-b in degrees, wrapped into [-180, 180].
func DiffAngles(a, b float64) float64 {
	d := a - b
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

// Aperture is a position in the V2, V3 frame.
type Aperture struct {
	V2, V3 float64 // arcsec
	Theta  float64 // deg, rotation of the detector axes
}

// Composer builds chip WCS for one image.
type Composer struct {
	Parity Parity
	PAV3   float64 // deg, position angle of V3
}

// Reference replaces r, the WCS of the reference chip, with the distortion
// free tangent plane of reference aperture ap.  The tangent point is the
// sky position of pixel refXY in r, placed at pixel crpix.  Scale is the
// reference pixel scale in arcsec.
func (c Composer) Reference(r *wcs.State, ap Aperture, refXY, crpix [2]float64, scale float64) error {
	crval, err := r.XY2RD(refXY[0], refXY[1])
	if err != nil {
		return err
	}
	pv := Troll(unit.AngleFromDeg(c.PAV3), unit.AngleFromDeg(r.CRVAL2),
		unit.AngleFromSec(ap.V2), unit.AngleFromSec(ap.V3)).Deg() + ap.Theta
	r.CRVAL1, r.CRVAL2 = crval.RA.Deg(), crval.Dec.Deg()
	r.CRPIX1, r.CRPIX2 = crpix[0], crpix[1]
	s, k := unit.AngleFromDeg(pv).Sincos()
	sc := scale / 3600
	r.CD11 = c.Parity[0][0] * k * sc
	r.CD12 = -c.Parity[0][0] * s * sc
	r.CD21 = c.Parity[1][1] * s * sc
	r.CD22 = c.Parity[1][1] * k * sc
	r.Update()
	return nil
}

// Offset returns the distance in reference pixels from aperture ref to
// aperture target, and its bearing in radians in the reference plane.
func (c Composer) Offset(ref, target Aperture, scale float64) (off, bearing float64) {
	dv2, dv3 := target.V2-ref.V2, target.V3-ref.V3
	off = math.Hypot(dv2, dv3) / scale
	if dv3 != 0 {
		bearing = math.Atan2(c.Parity[0][0]*dv2, c.Parity[1][1]*dv3)
	}
	return off, bearing + unit.AngleFromDeg(ref.Theta).Rad()
}

// Target sets the CRVAL and CD matrix of n, the target chip, by projecting
// through reference plane r.  The target reference pixel lies off pixels
// from the reference aperture at bearing, plus shift.  The CD matrix comes
// from the linear terms of m rotated by dtheta degrees, where scale is the
// reference pixel scale in arcsec.
func (c Composer) Target(n, r *wcs.State, off, bearing float64, shift [2]float64, m *idc.Model, dtheta, scale float64) error {
	sb, cb := math.Sincos(bearing)
	dX := off*sb + shift[0]
	dY := off*cb + shift[1]
	crval, err := r.XY2RD(dX, dY)
	if err != nil {
		return err
	}
	// columns are the pixel x and y unit vectors in reference pixels
	del := mat.NewDense(2, 2, []float64{
		m.Fx.At(1, 1) / scale, m.Fx.At(1, 0) / scale,
		m.Fy.At(1, 1) / scale, m.Fy.At(1, 0) / scale,
	})
	if dtheta != 0 {
		s, k := unit.AngleFromDeg(dtheta).Sincos()
		del.Mul(mat.NewDense(2, 2, []float64{k, -s, s, k}), mat.DenseCopyOf(del))
	}
	px, err := r.XY2RD(dX+del.At(0, 0), dY+del.At(1, 0))
	if err != nil {
		return err
	}
	py, err := r.XY2RD(dX+del.At(0, 1), dY+del.At(1, 1))
	if err != nil {
		return err
	}
	ra, dec := crval.RA.Deg(), crval.Dec.Deg()
	cosDec := crval.Dec.Cos()
	n.CRVAL1, n.CRVAL2 = ra, dec
	n.CD11 = DiffAngles(px.RA.Deg(), ra) * cosDec
	n.CD12 = DiffAngles(py.RA.Deg(), ra) * cosDec
	n.CD21 = DiffAngles(px.Dec.Deg(), dec)
	n.CD22 = DiffAngles(py.Dec.Deg(), dec)
	n.Update()
	return nil
}

// Aberrate scales the separation of n from reference plane r, and the CD
// matrix of n, by velocity aberration factor va.
func Aberrate(n, r *wcs.State, va float64) {
	if va == 1 {
		return
	}
	n.CRVAL1 = r.CRVAL1 + va*DiffAngles(n.CRVAL1, r.CRVAL1)
	n.CRVAL2 = r.CRVAL2 + va*DiffAngles(n.CRVAL2, r.CRVAL2)
	n.CD11 *= va
	n.CD12 *= va
	n.CD21 *= va
	n.CD22 *= va
	n.Update()
}
