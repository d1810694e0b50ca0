// Public domain.

// Package mwerr defines the error kinds raised while recomputing a WCS.
//
// Every failure the core reports is an *Error carrying a Kind.  Kinds are
// themselves errors so errors.Is(err, mwerr.SingularMatrix) selects on kind.
package mwerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	Other Kind = iota
	IO
	CalibrationLookup
	MissingRollAngle
	UnsupportedInstrument
	UnsupportedProjection
	SingularMatrix
	GeometryRange
)

var kindText = [...]string{
	Other:                 "error",
	IO:                    "I/O error",
	CalibrationLookup:     "calibration lookup failed",
	MissingRollAngle:      "missing roll angle",
	UnsupportedInstrument: "unsupported instrument",
	UnsupportedProjection: "unsupported projection",
	SingularMatrix:        "singular CD matrix",
	GeometryRange:         "position out of projection range",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindText) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindText[k]
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string { return k.String() }

// Scope is how much work a failure invalidates.
type Scope int

const (
	// Chip failures abort the current extension.
	Chip Scope = iota
	// Image failures abort the current image file.
	Image
	// Process failures end the run.
	Process
)

func (s Scope) String() string {
	switch s {
	case Chip:
		return "chip"
	case Image:
		return "image"
	}
	return "process"
}

// Scope returns the scope of failures of kind k.
func (k Kind) Scope() Scope {
	switch k {
	case UnsupportedProjection, SingularMatrix, GeometryRange:
		return Chip
	case IO, CalibrationLookup, MissingRollAngle, UnsupportedInstrument:
		return Image
	}
	return Process
}

// Error is an error of a known kind.
type Error struct {
	Kind Kind
	Op   string // operation, as "idc.Load"
	Name string // file, extension or keyword concerned; may be empty
	Err  error  // underlying error; may be nil
}

// E constructs an *Error.
func E(k Kind, op, name string, err error) *Error {
	return &Error{Kind: k, Op: op, Name: name, Err: err}
}

// Errorf constructs an *Error with a formatted underlying error.
func Errorf(k Kind, op, name, format string, a ...interface{}) *Error {
	return &Error{Kind: k, Op: op, Name: name, Err: fmt.Errorf(format, a...)}
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.String()
	if e.Name != "" {
		s += " (" + e.Name + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind target against e.Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Skippable reports whether a run can continue with the next image after
// err.
func Skippable(err error) bool {
	return err != nil && KindOf(err).Scope() != Process
}
