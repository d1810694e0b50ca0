// Public domain.

// Package mwprog is the makewcs command.
package mwprog

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/soniakeys/exit"

	"github.com/hstwcs/makewcs/internal/fitshdr"
	"github.com/hstwcs/makewcs/internal/hdr"
	"github.com/hstwcs/makewcs/internal/metrics"
	"github.com/hstwcs/makewcs/internal/mwerr"
	"github.com/hstwcs/makewcs/internal/update"
)

const versionString = "makewcs version 1.1.2 Go source."
const copyrightString = "Public domain."

// errSkip marks an image left unchanged for lack of a distortion table.
var errSkip = errors.New("skipped")

func Main() {
	defer exit.Handler()

	cl := parseCommandLine()
	if cl.v {
		return
	}
	cfg := readConfig(cl)
	log := newLogger(cfg)
	inst, err := cfg.Instruments()
	if err != nil {
		exit.Log(err)
	}
	r := update.NewRunner(fitshdr.ReadTable, update.Options{
		Prefix:      cfg.Prepend,
		TDD:         cfg.TDDCorr,
		Instruments: inst,
		Log:         log,
		Resolve: func(name, image string) string {
			return fitshdr.Resolve(name, filepath.Dir(image))
		},
	})

	for _, fn := range cl.images {
		err := processImage(r, fn, cfg, log, os.Stdout)
		switch {
		case err == errSkip:
			metrics.ImageSkipped()
		case err == nil:
			metrics.ImageDone(nil)
		default:
			metrics.ImageDone(err)
			if !mwerr.Skippable(err) {
				writeMetrics(cfg, log)
				exit.Log(err)
			}
			log.Error("WCS keywords not updated", "image", fn, "error", err)
		}
	}
	writeMetrics(cfg, log)
}

func writeMetrics(cfg *Config, log *slog.Logger) {
	if cfg.Metrics == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics); err != nil {
		log.Error("metrics not written", "file", cfg.Metrics, "error", err)
	}
}

func newLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Debug:
		level = slog.LevelDebug
	case cfg.Quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// processImage updates or restores one image, writes it and prints the
// keywords changed.
func processImage(r *update.Runner, fn string, cfg *Config, log *slog.Logger, w io.Writer) error {
	img, err := fitshdr.ReadImage(fn)
	if err != nil {
		return err
	}
	if cfg.Restore {
		n, err := r.Restore(img)
		metrics.ChipsUpdated(n)
		return save(img, cfg, w, err)
	}
	name, _ := hdr.String(img.Primary, "IDCTAB")
	if name == "" || name == "N/A" {
		log.Warn("no IDCTAB specified, no correction can be done", "image", fn)
		return errSkip
	}
	idctab := fitshdr.Resolve(name, filepath.Dir(fn))
	if _, err := os.Stat(idctab); err != nil {
		log.Warn("IDCTAB not found, WCS keywords will not be updated",
			"image", fn, "idctab", idctab)
		return errSkip
	}
	log.Info("updating image", "image", fn, "idctab", idctab)
	n, err := r.Image(img, idctab)
	metrics.ChipsUpdated(n)
	return save(img, cfg, w, err)
}

// save writes the updated headers of img unless the run is a dry run.
// Extensions updated before a failure are written as well.
func save(img *update.Image, cfg *Config, w io.Writer, err error) error {
	if !cfg.DryRun {
		if werr := fitshdr.WriteImage(img); werr != nil {
			err = errors.Join(err, werr)
		}
	}
	printUpdated(w, img)
	return err
}

// printUpdated lists the keywords set in each extension of img, one card
// per line.
func printUpdated(w io.Writer, img *update.Image) {
	for i, h := range img.Sci {
		m, ok := h.(*hdr.Map)
		if !ok {
			continue
		}
		u := m.Updated()
		if len(u) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s[sci,%d]\n", img.Name, i+1)
		for _, c := range u {
			fmt.Fprintln(w, formatCard(c))
		}
	}
}

func formatCard(c hdr.Card) string {
	var v string
	switch x := c.Value.(type) {
	case string:
		v = fmt.Sprintf("%-20s", "'"+x+"'")
	case float64:
		v = fmt.Sprintf("%20s", strconv.FormatFloat(x, 'G', -1, 64))
	default:
		v = fmt.Sprintf("%20v", x)
	}
	s := fmt.Sprintf("%-8s= %s", c.Key, v)
	if c.Comment != "" {
		s += " / " + c.Comment
	}
	return s
}

type commandLine struct {
	dc     string // config file
	dp     string // default path
	images []string
	v      bool // -v option

	set map[string]bool // flags given on the command line
	fl  flagValues
}

type flagValues struct {
	prepend string
	metrics string
	restore bool
	dryrun  bool
	notdd   bool
	quiet   bool
	debug   bool
}

func parseCommandLine() *commandLine {
	var cl commandLine
	if d, err := os.UserConfigDir(); err == nil {
		cl.dp = filepath.Join(d, "makewcs")
	}
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	flag.StringVar(&cl.dc, "c", "", "")
	flag.StringVar(&cl.dp, "p", cl.dp, "")
	flag.StringVar(&cl.fl.prepend, "prepend", "", "")
	flag.StringVar(&cl.fl.metrics, "metrics", "", "")
	flag.BoolVar(&cl.fl.restore, "restore", false, "")
	flag.BoolVar(&cl.fl.dryrun, "n", false, "")
	flag.BoolVar(&cl.fl.notdd, "notdd", false, "")
	flag.BoolVar(&cl.fl.quiet, "quiet", false, "")
	flag.BoolVar(&cl.fl.debug, "debug", false, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: makewcs [options] <image> ...   update WCS of images
       makewcs -restore <image> ...    restore original WCS of images
       makewcs -h                      display help and quick reference
       makewcs -v                      display version and copyright

Options:
       -c <config-file>
       -p <path>
       -prepend <letter>
       -metrics <textfile>
       -n
       -notdd
       -quiet
       -debug
`)
		if cl.dp > "" {
			os.Stderr.WriteString(`
Default:
       -p=` + cl.dp + "\n")
		}
	}
	flag.Parse()
	cl.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { cl.set[f.Name] = true })
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		cl.v = true
	case flag.NArg() == 0:
		flag.Usage()
		os.Exit(1)
	}
	cl.images = flag.Args()
	return &cl
}

// readConfig reads the configuration file and applies command line
// options over it.
func readConfig(cl *commandLine) *Config {
	cfg, err := ReadConfig(cl.fixupCP(cl.dc, "makewcs.toml"), cl.dc > "")
	if err != nil {
		exit.Log(err)
	}
	if cl.set["prepend"] {
		cfg.Prepend = cl.fl.prepend
	}
	if cl.set["metrics"] {
		cfg.Metrics = cl.fl.metrics
	}
	if cl.set["restore"] {
		cfg.Restore = cl.fl.restore
	}
	if cl.set["n"] {
		cfg.DryRun = cl.fl.dryrun
	}
	if cl.set["notdd"] {
		cfg.TDDCorr = !cl.fl.notdd
	}
	if cl.set["quiet"] {
		cfg.Quiet = cl.fl.quiet
	}
	if cl.set["debug"] {
		cfg.Debug = cl.fl.debug
	}
	if err := cfg.Validate(); err != nil {
		exit.Log(err)
	}
	return cfg
}

func (cl *commandLine) fixupCP(fnSpec, fnDefault string) string {
	if fnSpec > "" {
		return fnSpec
	}
	return filepath.Join(cl.dp, fnDefault)
}

func printHelp() {
	fmt.Println(`
Makewcs recomputes the WCS of HST images from the distortion model named
by the IDCTAB keyword, accounting for detector parity, subarray placement,
time dependent distortion and velocity aberration.  The new WCS and the
equivalent SIP coefficients are written to each science extension, and
listed.  The original WCS values are kept in archive keywords, OCD1_1 and
so on.  With -n, keywords are listed but files are not changed.

Config file keys:
   prepend = "O"
   tddcorr = true
   quiet = false
   debug = false
   restore = false
   dryrun = false
   metrics = "<textfile>"
   [parity]
   WFC = [[1.0, 0.0], [0.0, -1.0]]

Instruments:
   ACS (WFC, HRC, SBC), WFPC2, STIS, NICMOS, WFC3 (UVIS, IR)

For full documentation:
   go doc github.com/hstwcs/makewcs`)
}
