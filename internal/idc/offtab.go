// Public domain.

package idc

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/mwerr"
)

// Aperture holds the aperture offsets interpolated from an offset table.
type Aperture struct {
	V2Ref, V3Ref float64 // arcsec
	Theta        float64 // deg
}

// DecimalYear returns t as a fractional year.  Years are taken as 365.25
// days long, so the value is monotonic in t but not exactly periodic.
func DecimalYear(t time.Time) float64 {
	doy := julian.DayOfYearGregorian(t.Year(), int(t.Month()), t.Day())
	return float64(t.Year()) + (float64(doy)+
		float64(t.Hour())/24+
		float64(t.Minute())/1440+
		float64(t.Second())/86400)/365.25
}

type offRow struct {
	date float64
	ap   Aperture
}

// Offsets interpolates the aperture of chip at date from offset table t.
//
// Rows for the chip (or the wildcard chip) are scanned newest to oldest,
// assuming the table lists them in date order.  A date on or after the
// newest row, or before the oldest, takes the nearest row unchanged.
func Offsets(t *Table, date time.Time, chip int) (Aperture, error) {
	const op = "idc.Offsets"
	target := DecimalYear(date)
	var start, end *offRow
	for i := len(t.Rows) - 1; i >= 0; i-- {
		r := t.Rows[i]
		if c := r.chip(); c != chip && c != Wildcard {
			continue
		}
		or, err := readOffRow(r)
		if err != nil {
			return Aperture{}, mwerr.E(mwerr.CalibrationLookup, op, t.Name, err)
		}
		if target <= or.date {
			end = or
			continue
		}
		if end == nil {
			end = or
		} else {
			start = or
		}
		break
	}
	if end == nil {
		return Aperture{}, mwerr.Errorf(mwerr.CalibrationLookup, op, t.Name,
			"no offsets for chip %d", chip)
	}
	if start == nil || end.date == start.date {
		return end.ap, nil
	}
	f := (target - start.date) / (end.date - start.date)
	lerp := func(a, b float64) float64 { return a + f*(b-a) }
	return Aperture{
		V2Ref: lerp(start.ap.V2Ref, end.ap.V2Ref),
		V3Ref: lerp(start.ap.V3Ref, end.ap.V3Ref),
		Theta: lerp(start.ap.Theta, end.ap.Theta),
	}, nil
}

func readOffRow(r Row) (*offRow, error) {
	s, _ := r.String("OBSDATE")
	d, err := hdr.ParseDate(s)
	if err != nil {
		return nil, err
	}
	o := &offRow{date: DecimalYear(d)}
	o.ap.V2Ref, _ = r.Float("V2REF")
	o.ap.V3Ref, _ = r.Float("V3REF")
	o.ap.Theta, _ = r.Float("THETA")
	return o, nil
}
