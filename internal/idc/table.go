// Public domain.

package idc

import (
	"github.com/hstwcs/makewcs/internal/hdr"
)

// Table is a calibration table as read from a file: the primary header
// and the rows of the first table extension in file order.
type Table struct {
	Name    string
	Header  hdr.Header
	Columns []string
	Rows    []Row
}

// Row is one table row keyed by upper case column name.
type Row map[string]interface{}

// HasColumn reports whether the table has column col.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Float returns the numeric value of col.
func (r Row) Float(col string) (float64, bool) {
	v, ok := r[col]
	if !ok {
		return 0, false
	}
	return hdr.ToFloat(v)
}

// String returns the trimmed string value of col.
func (r Row) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	return hdr.ToString(v), true
}

// chip returns the DETCHIP of the row, 1 when absent or not a number.
func (r Row) chip() int {
	if v, ok := r["DETCHIP"]; ok {
		if c, ok := hdr.ToInt(v); ok {
			return c
		}
	}
	return 1
}
