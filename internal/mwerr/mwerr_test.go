// Public domain.

package mwerr_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/hstwcs/makewcs/internal/mwerr"
)

func TestIs(t *testing.T) {
	err := fmt.Errorf("sci,2: %w",
		mwerr.E(mwerr.SingularMatrix, "wcs.RD2XY", "", nil))
	if !errors.Is(err, mwerr.SingularMatrix) {
		t.Fatal("wrapped error does not match its kind")
	}
	if errors.Is(err, mwerr.GeometryRange) {
		t.Fatal("wrapped error matches another kind")
	}
	if k := mwerr.KindOf(err); k != mwerr.SingularMatrix {
		t.Fatal("KindOf:", k)
	}
}

func TestUnwrap(t *testing.T) {
	err := mwerr.E(mwerr.IO, "fitshdr.ReadTable", "x_idc.fits", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("underlying error lost")
	}
	want := "fitshdr.ReadTable: I/O error (x_idc.fits): unexpected EOF"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSkippable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("plain"), false},
		{mwerr.E(mwerr.CalibrationLookup, "idc.Load", "", nil), true},
		{mwerr.E(mwerr.MissingRollAngle, "update", "", nil), true},
		{mwerr.E(mwerr.GeometryRange, "wcs.RD2XY", "", nil), true},
	}
	for _, tc := range tests {
		if got := mwerr.Skippable(tc.err); got != tc.want {
			t.Errorf("Skippable(%v) = %t, want %t", tc.err, got, tc.want)
		}
	}
}

func TestScope(t *testing.T) {
	if s := mwerr.UnsupportedProjection.Scope(); s != mwerr.Chip {
		t.Error("UnsupportedProjection scope", s)
	}
	if s := mwerr.UnsupportedInstrument.Scope(); s != mwerr.Image {
		t.Error("UnsupportedInstrument scope", s)
	}
	if s := mwerr.Other.Scope(); s != mwerr.Process {
		t.Error("Other scope", s)
	}
}
