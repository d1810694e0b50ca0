// Public domain.

package frame

import (
	"fmt"

	"github.com/hstwcs/makewcs/internal/mwerr"
	"github.com/hstwcs/makewcs/internal/tdd"
)

// Parity maps detector axes to the V2, V3 frame.
type Parity [2][2]float64

// Parities of the supported detectors.
var (
	ParityDefault = Parity{{1, 0}, {0, 1}}
	ParityFlipY   = Parity{{1, 0}, {0, -1}}
	ParityFlipX   = Parity{{-1, 0}, {0, 1}}
)

// RefRule selects the reference chip of a multi-chip image.
type RefRule int

const (
	// RefFirst uses chip 1 in the first extension.
	RefFirst RefRule = iota
	// RefWFC uses chip 2 in the first extension of a two chip image.
	RefWFC
	// RefCamera uses the chip named by the CAMERA keyword.
	RefCamera
	// RefWF3 uses chip 3 when present, else the first extension.
	RefWF3
)

// Detector is the configuration for one instrument and detector.
type Detector struct {
	Instrument string
	Detector   string // empty for all detectors of Instrument
	Parity     Parity
	Filters    [2]string // filter keywords; second may be empty
	RefChip    RefRule
	ModeBinned bool        // MODE = AREA means 2x2 binning
	VAFactor   bool        // VAFACTOR keyword is used
	TDD        *tdd.Params // nil when the drift is not modeled
}

// Table is a per-instrument configuration.  Entries with a Detector match
// first.
type Table []Detector

// Instruments is the default configuration.
var Instruments = Table{
	{Instrument: "ACS", Detector: "WFC", Parity: ParityFlipY,
		Filters: [2]string{"FILTER1", "FILTER2"}, RefChip: RefWFC,
		VAFactor: true, TDD: tdd.WFC},
	{Instrument: "ACS", Detector: "HRC", Parity: ParityFlipX,
		Filters: [2]string{"FILTER1", "FILTER2"}, VAFactor: true},
	{Instrument: "ACS", Detector: "SBC", Parity: ParityFlipX,
		Filters: [2]string{"FILTER1", "FILTER2"}, VAFactor: true},
	{Instrument: "WFPC2", Parity: ParityFlipX,
		Filters: [2]string{"FILTNAM1", "FILTNAM2"}, RefChip: RefWF3,
		ModeBinned: true},
	{Instrument: "STIS", Parity: ParityFlipX,
		Filters: [2]string{"FILTER1", "FILTER2"}},
	{Instrument: "NICMOS", Parity: ParityFlipX,
		Filters: [2]string{"FILTER"}, RefChip: RefCamera},
	{Instrument: "WFC3", Detector: "UVIS", Parity: ParityFlipX,
		Filters: [2]string{"FILTER"}},
	{Instrument: "WFC3", Detector: "IR", Parity: ParityFlipX,
		Filters: [2]string{"FILTER"}},
}

// Lookup returns the configuration of a detector.
func (t Table) Lookup(instrument, detector string) (Detector, error) {
	var inst *Detector
	for i := range t {
		d := &t[i]
		if d.Instrument != instrument {
			continue
		}
		if d.Detector == detector {
			return *d, nil
		}
		if d.Detector == "" && inst == nil {
			inst = d
		}
	}
	if inst != nil {
		return *inst, nil
	}
	return Detector{}, mwerr.E(mwerr.UnsupportedInstrument, "frame.Lookup",
		fmt.Sprintf("%s/%s", instrument, detector), nil)
}

// WithParity returns a copy of t with the parity of every entry for
// detector replaced.  Detector may also name an instrument whose entries
// apply to all its detectors.
func (t Table) WithParity(detector string, p Parity) Table {
	c := append(Table{}, t...)
	for i := range c {
		if c[i].Detector == detector ||
			c[i].Detector == "" && c[i].Instrument == detector {
			c[i].Parity = p
		}
	}
	return c
}
