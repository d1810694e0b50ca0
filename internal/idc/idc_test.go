// Public domain.

package idc_test

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/idc"
	"github.com/hstwcs/makewcs/internal/mwerr"
)

var cols = []string{"DETCHIP", "DIRECTION", "FILTER1", "FILTER2",
	"XSIZE", "YSIZE", "XREF", "YREF", "V2REF", "V3REF", "SCALE",
	"CX10", "CX11", "CY10", "CY11", "CX20", "CX21", "CX22"}

func row(chip int, f1, f2 string, cx11 float64) idc.Row {
	return idc.Row{
		"DETCHIP": chip, "DIRECTION": " FORWARD ",
		"FILTER1": f1, "FILTER2": f2,
		"XSIZE": 4096.0, "YSIZE": 2048.0, "XREF": 2048.0, "YREF": 1024.0,
		"V2REF": 256.0, "V3REF": 302.0, "SCALE": 0.0500000001,
		"CX10": 0.002, "CX11": cx11, "CY10": 0.049, "CY11": 0.0014,
		"CX20": 1e-8, "CX21": 2e-8, "CX22": 3e-8,
	}
}

func table(rows ...idc.Row) *idc.Table {
	return &idc.Table{
		Name:    "test_idc.fits",
		Header:  hdr.NewMap(hdr.Card{Key: "NORDER", Value: 2}),
		Columns: cols,
		Rows:    rows,
	}
}

func TestLoadSingleRow(t *testing.T) {
	m, err := idc.Load(table(row(1, "F606W", "CLEAR2L", 0.05)),
		idc.Query{Chip: 1, Filter1: "F606W", Filter2: ""})
	if err != nil {
		t.Fatal(err)
	}
	if m.Order != idc.MinOrder {
		t.Fatal("order", m.Order)
	}
	if r, c := m.Fx.Dims(); r != 4 || c != 4 {
		t.Fatalf("Fx is %dx%d", r, c)
	}
	if m.Fx.At(1, 1) != .05 || m.Fy.At(1, 0) != .049 || m.Fx.At(2, 2) != 3e-8 {
		t.Fatal("coefficients not placed by degree and power of x")
	}
	if m.Fx.At(3, 0) != 0 || m.Fx.At(0, 0) != 0 {
		t.Fatal("unfilled coefficients not zero")
	}
	rp := m.RefPix
	if rp.PScale != .05 {
		t.Fatal("PScale not rounded:", rp.PScale)
	}
	if rp.XRef != 2048 || rp.V3Ref != 302 || rp.Theta != 0 || !rp.DefaultScale {
		t.Fatalf("refpix %+v", rp)
	}
}

func TestLoadSelection(t *testing.T) {
	tab := table(
		row(1, "F606W", "CLEAR2L", .05),
		row(idc.Wildcard, "F814W", "CLEAR2S", .051),
		row(2, "F814W", "CLEAR2L", .052),
	)
	tests := []struct {
		name   string
		q      idc.Query
		cx11   float64
		lookup bool
	}{
		{"exact", idc.Query{Chip: 1, Filter1: "F606W", Filter2: "CLEAR2S"}, .05, false},
		{"wildcard first", idc.Query{Chip: 2, Filter1: "F814W"}, .051, false},
		{"no chip", idc.Query{Chip: 2, Filter1: "F606W"}, 0, true},
		{"inverse", idc.Query{Chip: 1, Filter1: "F606W", Direction: idc.Inverse}, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := idc.Load(tab, tc.q)
			if tc.lookup {
				if !errors.Is(err, mwerr.CalibrationLookup) {
					t.Fatal("want CalibrationLookup error, got", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := m.Fx.At(1, 1); got != tc.cx11 {
				t.Fatalf("selected row with CX11 %g, want %g", got, tc.cx11)
			}
		})
	}
}

func TestLoadRescale(t *testing.T) {
	m, err := idc.Load(table(row(1, "F606W", "CLEAR2L", 1)),
		idc.Query{Chip: 1, Filter1: "F606W"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Fx.At(1, 1) != .05 || math.Abs(m.Fy.At(1, 0)-.00245) > 1e-15 {
		t.Fatal("normalized coefficients not rescaled")
	}
}

func TestLoadABColumns(t *testing.T) {
	tab := &idc.Table{
		Header:  hdr.NewMap(hdr.Card{Key: "NORDER", Value: 3}),
		Columns: []string{"A10", "A11", "B10", "B11", "SCALE", "THETA"},
		Rows: []idc.Row{{"A10": .001, "A11": .1, "B10": .1, "B11": -.001,
			"SCALE": .1, "THETA": 45.0}},
	}
	m, err := idc.Load(tab, idc.Query{Chip: 1})
	if err != nil {
		t.Fatal(err)
	}
	if m.Fx.At(1, 1) != .1 || m.Fy.At(1, 1) != -.001 {
		t.Fatal("A/B columns not read")
	}
	if m.RefPix.Theta != 45 || m.RefPix.V2Ref != 0 {
		t.Fatalf("refpix %+v", m.RefPix)
	}
}

func TestLoadBinned(t *testing.T) {
	m, err := idc.Load(table(row(1, "F606W", "CLEAR", .05)),
		idc.Query{Chip: 1, Filter1: "F606W", Binned: 2})
	if err != nil {
		t.Fatal(err)
	}
	rp := m.RefPix
	if rp.XRef != 1024 || rp.YSize != 1024 || rp.PScale != .1 {
		t.Fatalf("binned refpix %+v", rp)
	}
	if m.Fx.At(1, 1) != .1 || m.Fx.At(2, 1) != 8e-8 {
		t.Fatal("binned coefficients", m.Fx.At(1, 1), m.Fx.At(2, 1))
	}
}

func TestLoadMissingOrder(t *testing.T) {
	tab := table(row(1, "F606W", "CLEAR", .05))
	tab.Header = hdr.NewMap()
	if _, err := idc.Load(tab, idc.Query{Chip: 1}); !errors.Is(err, mwerr.IO) {
		t.Fatal("want IO error, got", err)
	}
}

func TestShiftZero(t *testing.T) {
	m, _ := idc.Load(table(row(1, "F606W", "CLEAR", .05)),
		idc.Query{Chip: 1, Filter1: "F606W"})
	s := m.Shift(0, 0)
	for i := 0; i <= m.Order; i++ {
		for j := 0; j <= i; j++ {
			if s.Fx.At(i, j) != m.Fx.At(i, j) || s.Fy.At(i, j) != m.Fy.At(i, j) {
				t.Fatalf("coefficient [%d][%d] changed", i, j)
			}
		}
	}
}

func TestShift(t *testing.T) {
	m, _ := idc.Load(table(row(1, "F606W", "CLEAR", .05)),
		idc.Query{Chip: 1, Filter1: "F606W"})
	const xs, ys = 37, -21
	s := m.Shift(xs, ys)
	for _, p := range [][2]float64{{0, 0}, {100, 250}, {-1024, 512}} {
		u0, v0 := m.Eval(p[0]+xs, p[1]+ys)
		u, v := s.Eval(p[0], p[1])
		if math.Abs(u-(u0-xs)) > 1e-9 || math.Abs(v-(v0-ys)) > 1e-9 {
			t.Errorf("at %v: got %g, %g want %g, %g", p, u, v, u0-xs, v0-ys)
		}
	}
	if m.Fx.At(0, 0) != 0 {
		t.Fatal("Shift modified its receiver")
	}
}

func TestDefault(t *testing.T) {
	m := idc.Default(1024, 512, .1)
	u, v := m.Eval(10, 20)
	if math.Abs(u-1) > 1e-15 || math.Abs(v-2) > 1e-15 {
		t.Fatal("default model is not a plain scale:", u, v)
	}
	if m.RefPix.YRef != 256 || !m.RefPix.Centered {
		t.Fatalf("refpix %+v", m.RefPix)
	}
}

func ExampleNormFilter() {
	for _, f := range []string{"", "CLEAR1L", "F555W "} {
		fmt.Println(idc.NormFilter(f))
	}
	// Output:
	// CLEAR
	// CLEAR
	// F555W
}

func offTable() *idc.Table {
	return &idc.Table{
		Name:    "test_off.fits",
		Columns: []string{"DETCHIP", "OBSDATE", "V2REF", "V3REF", "THETA"},
		Rows: []idc.Row{
			{"DETCHIP": 1, "OBSDATE": "2002-03-01", "V2REF": 256.0, "V3REF": 300.0, "THETA": 0.0},
			{"DETCHIP": 2, "OBSDATE": "2002-03-01", "V2REF": 100.0, "V3REF": 100.0, "THETA": 9.0},
			{"DETCHIP": 1, "OBSDATE": "2004-03-01", "V2REF": 258.0, "V3REF": 302.0, "THETA": 1.0},
		},
	}
}

func TestOffsets(t *testing.T) {
	d0 := time.Date(2002, 3, 1, 0, 0, 0, 0, time.UTC)
	d1 := time.Date(2004, 3, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2003, 1, 15, 6, 0, 0, 0, time.UTC)
	f := (idc.DecimalYear(mid) - idc.DecimalYear(d0)) /
		(idc.DecimalYear(d1) - idc.DecimalYear(d0))
	tests := []struct {
		name       string
		date       time.Time
		v2, v3, th float64
	}{
		{"between", mid, 256 + 2*f, 300 + 2*f, f},
		{"newest", d1, 258, 302, 1},
		{"after newest", d1.AddDate(3, 0, 0), 258, 302, 1},
		{"before oldest", d0.AddDate(-1, 0, 0), 256, 300, 0},
	}
	for _, tc := range tests {
		a, err := idc.Offsets(offTable(), tc.date, 1)
		if err != nil {
			t.Fatal(tc.name, err)
		}
		if math.Abs(a.V2Ref-tc.v2) > 1e-9 || math.Abs(a.V3Ref-tc.v3) > 1e-9 ||
			math.Abs(a.Theta-tc.th) > 1e-9 {
			t.Errorf("%s: got %+v, want %g %g %g", tc.name, a, tc.v2, tc.v3, tc.th)
		}
	}
	if _, err := idc.Offsets(offTable(), mid, 3); !errors.Is(err, mwerr.CalibrationLookup) {
		t.Fatal("want CalibrationLookup for unknown chip, got", err)
	}
}

func TestLoadWithOffsets(t *testing.T) {
	tab := &idc.Table{
		Header:  hdr.NewMap(hdr.Card{Key: "NORDER", Value: 3}),
		Columns: []string{"DETCHIP", "CX10", "CX11", "CY10", "SCALE"},
		Rows:    []idc.Row{{"DETCHIP": 1, "CX10": 0.0, "CX11": .1, "CY10": .1, "SCALE": .1}},
	}
	d := time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := idc.Load(tab, idc.Query{Chip: 1, Date: d, Offsets: offTable()})
	if err != nil {
		t.Fatal(err)
	}
	if m.RefPix.V2Ref != 258 || m.RefPix.Theta != 1 {
		t.Fatalf("offsets not applied: %+v", m.RefPix)
	}
}

func TestDecimalYear(t *testing.T) {
	got := idc.DecimalYear(time.Date(2004, 1, 1, 0, 0, 0, 0, time.UTC))
	if want := 2004 + 1/365.25; got != want {
		t.Fatalf("got %.10f, want %.10f", got, want)
	}
}
