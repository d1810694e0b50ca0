// Public domain.

// Package sip converts distortion models to Simple Imaging Polynomial
// header keywords.
package sip

import (
	"fmt"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/idc"
	"github.com/hstwcs/makewcs/internal/tdd"
)

// Keywords returns the SIP representation of m.  The linear terms of m
// are expected in the CD matrix; every term of degree 2 and higher becomes
// an A_p_q or B_p_q coefficient in pixels.  CTYPE, order and the IDC
// bookkeeping keywords follow the coefficients.
func Keywords(m *idc.Model) []hdr.Card {
	rp := m.RefPix
	f := rp.PScale / 3600
	a := m.Fx.At(1, 1) / 3600
	b := m.Fx.At(1, 0) / 3600
	c := m.Fy.At(1, 1) / 3600
	d := m.Fy.At(1, 0) / 3600
	det := (a*d - b*c) * rp.PScale

	var cards []hdr.Card
	for n := 2; n <= m.Order; n++ {
		for k := 0; k <= n; k++ {
			fx, fy := m.Fx.At(n, k), m.Fy.At(n, k)
			cards = append(cards,
				hdr.Card{Key: fmt.Sprintf("A_%d_%d", k, n-k), Value: f * (d*fx - b*fy) / det},
				hdr.Card{Key: fmt.Sprintf("B_%d_%d", k, n-k), Value: f * (a*fy - c*fx) / det})
		}
	}
	return append(cards,
		hdr.Card{Key: "CTYPE1", Value: "RA---TAN-SIP"},
		hdr.Card{Key: "CTYPE2", Value: "DEC--TAN-SIP"},
		hdr.Card{Key: "A_ORDER", Value: m.Order},
		hdr.Card{Key: "B_ORDER", Value: m.Order},
		hdr.Card{Key: "IDCSCALE", Value: rp.PScale},
		hdr.Card{Key: "IDCV2REF", Value: rp.V2Ref},
		hdr.Card{Key: "IDCV3REF", Value: rp.V3Ref},
		hdr.Card{Key: "IDCTHETA", Value: rp.Theta},
		hdr.Card{Key: "OCX10", Value: m.Fx.At(1, 0)},
		hdr.Card{Key: "OCX11", Value: m.Fx.At(1, 1)},
		hdr.Card{Key: "OCY10", Value: m.Fy.At(1, 0)},
		hdr.Card{Key: "OCY11", Value: m.Fy.At(1, 1)},
	)
}

// TDD returns the drift coefficient keywords of c.  They are zero when c
// is disabled.
func TDD(c tdd.Correction) []hdr.Card {
	return []hdr.Card{
		{Key: "TDDALPHA", Value: c.Alpha},
		{Key: "TDDBETA", Value: c.Beta},
	}
}

// Write sets cards in h.
func Write(h hdr.Header, cards []hdr.Card) {
	for _, c := range cards {
		h.Set(c.Key, c.Value, c.Comment)
	}
}
