// Public domain.

package mwprog

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/hstwcs/makewcs/internal/frame"
	"github.com/hstwcs/makewcs/internal/wcs"
)

// Config is the content of the configuration file.
type Config struct {
	Prepend string // archive keyword prefix
	TDDCorr bool   `toml:"tddcorr"`
	Quiet   bool
	Debug   bool
	Restore bool
	DryRun  bool   // list updates without writing files
	Metrics string // Prometheus textfile written at the end of a run

	// Parity overrides the parity matrix of a detector, or of all
	// detectors of an instrument.
	Parity map[string][2][2]float64
}

// DefaultConfig is the configuration used without a configuration file.
func DefaultConfig() *Config {
	return &Config{Prepend: wcs.DefaultPrefix, TDDCorr: true}
}

// ReadConfig reads the configuration file at path over the defaults.  A
// missing file gives the defaults unless required is true.
func ReadConfig(path string, required bool) (*Config, error) {
	c := DefaultConfig()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	if u := md.Undecoded(); len(u) > 0 {
		return nil, fmt.Errorf("%s: unrecognized keys %v", path, u)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks the values of c.
func (c *Config) Validate() error {
	if err := wcs.ValidPrefix(c.Prepend); err != nil {
		return err
	}
	_, err := c.Instruments()
	return err
}

// Instruments returns the instrument table with the parity overrides of c.
func (c *Config) Instruments() (frame.Table, error) {
	t := frame.Instruments
	names := make([]string, 0, len(c.Parity))
	for n := range c.Parity {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if !known(n) {
			return nil, fmt.Errorf("parity: unknown detector %q", n)
		}
		t = t.WithParity(n, frame.Parity(c.Parity[n]))
	}
	return t, nil
}

func known(name string) bool {
	for _, d := range frame.Instruments {
		if d.Detector == name || d.Detector == "" && d.Instrument == name {
			return true
		}
	}
	return false
}
