// Public domain.

// Package tdd corrects aperture offsets for time dependent distortion.
//
// The skew of the ACS/WFC distortion drifts with time.  The drift is
// modeled by two coefficients, alpha and beta, which move the zero point of
// each chip.  The correction is applied to the V2, V3 aperture positions of
// both the reference and the target chip.
package tdd

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"
)

// Params are the fixed constants of a detector's drift model.
type Params struct {
	Anchors  map[int][2]float64 // zero point reference pixel per chip
	Rotation float64            // deg
	Center   float64            // pixel coordinate of the detector center
	Scale    float64            // arcsec per pixel of the correction vector
}

// WFC holds the ACS/WFC constants.
var WFC = &Params{
	Anchors:  map[int][2]float64{1: {2048, 3072}, 2: {2048, 1024}},
	Rotation: 2.234529,
	Center:   2048,
	Scale:    .05,
}

// Coeffs returns the drift coefficients at an observation date.
type Coeffs func(date time.Time) (alpha, beta float64)

var wfcEpoch = julian.CalendarGregorianToJD(2004, 7, 1)

// WFCLinear is a linear drift model for ACS/WFC referenced to 2004 July 1.
func WFCLinear(date time.Time) (alpha, beta float64) {
	yr := (julian.TimeToJD(date) - wfcEpoch) / 365.25
	return .095 + .090*yr/2.5, -.029 - .030*yr/2.5
}

// Correction is the drift correction for one observation.  The zero value
// is disabled and corrects nothing.
type Correction struct {
	Alpha, Beta float64
	Params      *Params
}

// New returns the correction at date, or a disabled correction if p or c
// is nil.
func New(p *Params, c Coeffs, date time.Time) Correction {
	if p == nil || c == nil {
		return Correction{}
	}
	a, b := c(date)
	return Correction{Alpha: a, Beta: b, Params: p}
}

// Enabled reports whether c corrects anything.
func (c Correction) Enabled() bool { return c.Params != nil }

// Vector returns the correction vector for chip, in pixels multiplied by
// scale.  It is zero when c is disabled or chip has no anchor.
func (c Correction) Vector(chip int, scale float64) [2]float64 {
	if !c.Enabled() {
		return [2]float64{}
	}
	p := c.Params
	xy, ok := p.Anchors[chip]
	if !ok {
		return [2]float64{}
	}
	skew := mat.NewDense(2, 2, []float64{c.Beta, c.Alpha, c.Alpha, -c.Beta})
	s, k := unit.AngleFromDeg(p.Rotation).Sincos()
	rot := mat.NewDense(2, 2, []float64{k, s, -s, k})
	rot.Scale(1/p.Center, rot)
	v := mat.NewVecDense(2, []float64{xy[0] - p.Center, xy[1] - p.Center})
	var sv, rv mat.VecDense
	sv.MulVec(skew, v)
	rv.MulVec(rot, &sv)
	return [2]float64{rv.AtVec(0) * scale, rv.AtVec(1) * scale}
}

// Apply returns aperture position v2, v3 (arcsec) of chip corrected for
// drift.
func (c Correction) Apply(v2, v3 float64, chip int, scale float64) (float64, float64) {
	if !c.Enabled() {
		return v2, v3
	}
	d := c.Vector(chip, scale)
	return v2 + d[0]*c.Params.Scale, v3 - d[1]*c.Params.Scale
}
