// Public domain.

package frame_test

import (
	"errors"
	"math"
	"testing"

	"github.com/soniakeys/unit"

	"github.com/hstwcs/makewcs/internal/frame"
	"github.com/hstwcs/makewcs/internal/idc"
	"github.com/hstwcs/makewcs/internal/mwerr"
	"github.com/hstwcs/makewcs/internal/wcs"
)

func TestTroll(t *testing.T) {
	tests := []struct {
		roll, dec, v2, v3 float64 // deg, deg, arcsec, arcsec
		want              float64
	}{
		{0, 0, 0, 0, 180},
		{0, 0, 0, 300, 0},
		{30, 0, 0, 300, 30.00002624132641},
		{84.5, 2.2, 256, 302, 84.50336802780213},
		{84.5, 60, 256, 302, 84.6560380891999},
		{84.5, -45, -256, 302, 84.4235231035483},
	}
	for _, tc := range tests {
		got := frame.Troll(unit.AngleFromDeg(tc.roll), unit.AngleFromDeg(tc.dec),
			unit.AngleFromSec(tc.v2), unit.AngleFromSec(tc.v3)).Deg()
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Troll(%g, %g, %g, %g) = %.12f, want %.12f",
				tc.roll, tc.dec, tc.v2, tc.v3, got, tc.want)
		}
	}
}

func TestDiffAngles(t *testing.T) {
	tests := []struct{ a, b, want float64 }{
		{10, 5, 5},
		{359, 1, -2},
		{1, 359, 2},
		{-170, 170, 20},
	}
	for _, tc := range tests {
		if got := frame.DiffAngles(tc.a, tc.b); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("DiffAngles(%g, %g) = %g, want %g", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLookup(t *testing.T) {
	d, err := frame.Instruments.Lookup("ACS", "WFC")
	if err != nil {
		t.Fatal(err)
	}
	if d.Parity != frame.ParityFlipY || d.TDD == nil || d.RefChip != frame.RefWFC {
		t.Fatalf("ACS/WFC %+v", d)
	}
	d, err = frame.Instruments.Lookup("WFPC2", "3")
	if err != nil {
		t.Fatal(err)
	}
	if d.Parity != frame.ParityFlipX || !d.ModeBinned || d.Filters[0] != "FILTNAM1" {
		t.Fatalf("WFPC2 %+v", d)
	}
	for _, id := range [][2]string{{"ACS", "XYZ"}, {"FOC", ""}} {
		if _, err := frame.Instruments.Lookup(id[0], id[1]); !errors.Is(err, mwerr.UnsupportedInstrument) {
			t.Errorf("%v: %v", id, err)
		}
	}
}

func TestWithParity(t *testing.T) {
	tab := frame.Instruments.WithParity("WFC", frame.ParityDefault)
	d, _ := tab.Lookup("ACS", "WFC")
	if d.Parity != frame.ParityDefault {
		t.Fatal("parity not replaced")
	}
	d, _ = frame.Instruments.Lookup("ACS", "WFC")
	if d.Parity != frame.ParityFlipY {
		t.Fatal("default table modified")
	}
	tab = frame.Instruments.WithParity("STIS", frame.ParityFlipY)
	if d, _ = tab.Lookup("STIS", "CCD"); d.Parity != frame.ParityFlipY {
		t.Fatal("instrument parity not replaced")
	}
}

func chipState() wcs.State {
	return wcs.State{
		CRVAL1: 150, CRVAL2: 2.2,
		CRPIX1: 2048, CRPIX2: 1024,
		CD11: 1e-5, CD12: 9e-6, CD21: 9e-6, CD22: -1e-5,
		NAXIS1: 4096, NAXIS2: 2048,
		CTYPE1: "RA---TAN", CTYPE2: "DEC--TAN",
	}
}

// With the aperture on the V1 axis, no roll and a plain scale model the
// composition leaves only the parity and the 180 degree aperture
// orientation.
func TestCompose(t *testing.T) {
	c := frame.Composer{Parity: frame.ParityFlipY}
	ap := frame.Aperture{}
	r := chipState()
	if err := c.Reference(&r, ap, [2]float64{2048, 1024}, [2]float64{}, .05); err != nil {
		t.Fatal(err)
	}
	sc := .05 / 3600
	if math.Abs(r.CRVAL1-150) > 1e-12 || math.Abs(r.CRVAL2-2.2) > 1e-12 {
		t.Fatal("reference CRVAL", r.CRVAL1, r.CRVAL2)
	}
	if math.Abs(r.CD11+sc) > 1e-20 || math.Abs(r.CD22-sc) > 1e-20 ||
		math.Abs(r.CD12) > 1e-20 || math.Abs(r.CD21) > 1e-20 {
		t.Fatalf("reference CD %g %g %g %g", r.CD11, r.CD12, r.CD21, r.CD22)
	}
	off, bearing := c.Offset(ap, ap, .05)
	if off != 0 || bearing != 0 {
		t.Fatal("offset", off, bearing)
	}
	n := chipState()
	m := idc.Default(4096, 2048, .05)
	if err := c.Target(&n, &r, off, bearing, [2]float64{}, m, 0, .05); err != nil {
		t.Fatal(err)
	}
	if math.Abs(n.CRVAL1-150) > 1e-12 || math.Abs(n.CRVAL2-2.2) > 1e-12 {
		t.Fatal("target CRVAL", n.CRVAL1, n.CRVAL2)
	}
	want := [4]float64{-sc, 0, 0, sc}
	got := [4]float64{n.CD11, n.CD12, n.CD21, n.CD22}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-6*sc {
			t.Fatalf("target CD %g, want %g", got, want)
		}
	}
	if math.Abs(n.PScale-.05) > 1e-9 {
		t.Fatal("target scale", n.PScale)
	}
}

func TestOffset(t *testing.T) {
	c := frame.Composer{Parity: frame.ParityFlipY}
	ref := frame.Aperture{V2: 256, V3: 302, Theta: 0}
	tgt := frame.Aperture{V2: 259, V3: 206}
	off, bearing := c.Offset(ref, tgt, .05)
	if math.Abs(off-math.Hypot(3, 96)/.05) > 1e-9 {
		t.Fatal("off", off)
	}
	if want := math.Atan2(3, 96); math.Abs(bearing-want) > 1e-12 {
		t.Fatal("bearing", bearing, want)
	}
	ref.Theta = 90
	_, b2 := c.Offset(ref, tgt, .05)
	if math.Abs(b2-bearing-math.Pi/2) > 1e-12 {
		t.Fatal("theta not added", b2)
	}
}

func TestAberrate(t *testing.T) {
	r := chipState()
	n := chipState()
	n.CRVAL1, n.CRVAL2 = 150.01, 2.21
	frame.Aberrate(&n, &r, 1.0001)
	if math.Abs(n.CRVAL1-(150+.01*1.0001)) > 1e-12 ||
		math.Abs(n.CRVAL2-(2.2+.01*1.0001)) > 1e-12 {
		t.Fatal("CRVAL", n.CRVAL1, n.CRVAL2)
	}
	if math.Abs(n.CD11-1.0001e-5) > 1e-18 {
		t.Fatal("CD11", n.CD11)
	}
	m := chipState()
	frame.Aberrate(&m, &r, 1)
	if m != chipState() {
		t.Fatal("va = 1 changed WCS")
	}
}
