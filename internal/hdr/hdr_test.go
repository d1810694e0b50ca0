// Public domain.

package hdr_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/hstwcs/makewcs/internal/hdr"
)

func TestMapUpdated(t *testing.T) {
	m := hdr.NewMap(
		hdr.Card{Key: "NAXIS1", Value: 4096},
		hdr.Card{Key: "CRVAL1", Value: 10.5, Comment: "first axis value"},
	)
	if len(m.Updated()) != 0 {
		t.Fatal("initial cards reported as updated")
	}
	m.Set("crval1", 11.0, "")
	m.Set("ONAXIS1", 4096, "archived")
	m.Set("CRVAL1", 12.0, "")
	u := m.Updated()
	if len(u) != 2 {
		t.Fatalf("%d updated cards, want 2", len(u))
	}
	if u[0].Key != "CRVAL1" || u[0].Value != 12.0 {
		t.Fatalf("first update %+v", u[0])
	}
	if u[0].Comment != "first axis value" {
		t.Fatal("comment not kept:", u[0].Comment)
	}
	if k := m.Keys(); len(k) != 3 || k[2] != "ONAXIS1" {
		t.Fatal("keys", k)
	}
}

func TestMerge(t *testing.T) {
	p := hdr.NewMap(
		hdr.Card{Key: "INSTRUME", Value: "ACS"},
		hdr.Card{Key: "CCDCHIP", Value: 9},
	)
	e := hdr.NewMap(hdr.Card{Key: "CCDCHIP", Value: 2})
	h := hdr.Merge(p, e)
	if c, _ := hdr.Int(h, "CCDCHIP"); c != 2 {
		t.Fatal("extension keyword not preferred")
	}
	if s, _ := hdr.String(h, "INSTRUME"); s != "ACS" {
		t.Fatal("primary keyword not found")
	}
	h.Set("CRVAL1", 1.0, "")
	if hdr.Has(p, "CRVAL1") || !hdr.Has(e, "CRVAL1") {
		t.Fatal("Set did not go to the extension only")
	}
	if k := h.Keys(); len(k) != 3 {
		t.Fatal("keys", k)
	}
}

func TestConversions(t *testing.T) {
	m := hdr.NewMap(
		hdr.Card{Key: "FILTER1", Value: "CLEAR1L   /"},
		hdr.Card{Key: "CAMERA", Value: "2"},
		hdr.Card{Key: "PA_V3", Value: float32(84.5)},
		hdr.Card{Key: "DETECTOR", Value: "WFC"},
	)
	if s, _ := hdr.String(m, "FILTER1"); s != "CLEAR1L" {
		t.Errorf("String = %q", s)
	}
	if c, ok := hdr.Int(m, "CAMERA"); !ok || c != 2 {
		t.Errorf("Int(CAMERA) = %d, %t", c, ok)
	}
	if f, ok := hdr.Float(m, "PA_V3"); !ok || f != 84.5 {
		t.Errorf("Float(PA_V3) = %g, %t", f, ok)
	}
	if _, ok := hdr.Int(m, "DETECTOR"); ok {
		t.Error("Int(DETECTOR) accepted WFC")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2004-07-01", time.Date(2004, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"2002-03-09T12:30:00", time.Date(2002, 3, 9, 12, 30, 0, 0, time.UTC)},
		{"25/12/97", time.Date(1997, 12, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := hdr.ParseDate(tc.in)
		if err != nil {
			t.Errorf("%s: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := hdr.ParseDate("soon"); err == nil {
		t.Error("no error for invalid date")
	}
}

func ExampleMap_Updated() {
	m := hdr.NewMap(hdr.Card{Key: "CRPIX1", Value: 2048.0})
	m.Set("CRPIX1", 2049.5, "")
	for _, c := range m.Updated() {
		fmt.Println(c.Key, c.Value)
	}
	// Output:
	// CRPIX1 2049.5
}
