/*
Command makewcs recomputes the world coordinate system of HST images from
the distortion model of the instrument.

Contents

Version 1.1.2

  Program overview
  Installing
  Command line usage
  Configuring file locations
  File formats
  Algorithm outline


Program overview

Input is one or more FITS images from ACS, WFPC2, STIS, NICMOS or WFC3.
For each science extension, makewcs computes a new CRVAL, CRPIX and CD
matrix from the distortion coefficients of the table named by the IDCTAB
keyword and from the telescope roll given by PA_V3.  The original WCS
keywords are first copied to archive keywords with a one letter prefix,
OCRVAL1, OCD1_1 and so on, so that later runs start from the original
values and the update can be undone.  The distortion model is also
expressed as SIP coefficients, A_2_0, B_1_1 and so on.

Sample run:

  makewcs j8x601bkq_flt.fits

rewrites the image file in place with the new keywords and prints the
keywords set in each science extension,

  j8x601bkq_flt.fits[sci,1]
  OCRVAL1 =     150.116321265718 / archived CRVAL1
  ...
  CRVAL1  =     150.118774532184
  ...

Images with no IDCTAB keyword, or with an IDCTAB that cannot be found,
are reported and left unchanged.


Installing

You need Go 1.22 or later.  Then

    go install github.com/hstwcs/makewcs@latest

compiles and installs the command.


Command line usage

Invoking the program without command line arguments (or with invalid
arguments) shows this usage prompt.

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

Options given on the command line override the configuration file.

-prepend sets the archive keyword prefix, O by default.  It must be a
single letter.

-restore copies the archived WCS back over the current keywords.
Extensions without an archive are reported and skipped.

-n lists the keywords that would be set without changing any file.

-notdd turns off the time dependent distortion correction of ACS/WFC.
An image with TDDCORR = 'OMIT' is not corrected in any case.

-quiet shows only warnings and errors.  -debug shows details of the
computation for each chip.

-metrics names a file to receive counts of images and chips processed,
in the Prometheus text format.  This is suitable for the textfile
collector of the Prometheus node exporter.


Configuring file locations

The configuration file is optional.  Its default location is makewcs.toml
in the makewcs directory under the user configuration directory, shown as
the -p default at the end of the usage message.  A configuration file is
required to be present if -c is used.  If -c is used, -p is ignored.

IDCTAB and OFFTAB values may name a file relative to the directory of the
image, or use the form env$file where the environment variable env names
the directory of the table, for example jref$qbu1641sj_idc.fits.

The support file of an image, its name ending in _spt.fits, is read for
PA_V3 when the image does not carry it.  WFPC2 data quality files, names
ending in _c1h.fits, are given the same WCS as their science extensions
and are rewritten along with the image.


File formats

The configuration file is TOML.  Allowable keys:

   prepend = "O"
   tddcorr = true
   quiet = false
   debug = false
   restore = false
   dryrun = false
   metrics = "<textfile>"

A table named parity can override the parity matrix of a detector, or of
all detectors of an instrument,

   [parity]
   WFC = [[1.0, 0.0], [0.0, -1.0]]

Unrecognized keys are an error.

IDC tables are FITS binary tables with one row per chip, direction,
filter combination and detector mode.  Columns CXij and CYij hold the
polynomial coefficients, XREF, YREF, V2REF, V3REF, THETA and SCALE the
reference frame of the chip.  The primary header gives the polynomial
order in NORDER.  OFFTAB files give the drift of the chip offsets with
time and are interpolated linearly by date.


Algorithm outline

1.  The reference chip is selected for the detector: chip 2 for ACS/WFC
images with both chips, chip 3 for WFPC2 or the first chip present when
chip 3 is not, the camera for NICMOS, and chip 1 otherwise.  The WCS of
the reference chip, restored from its archive, gives the pointing.

2.  The roll of the reference chip is computed from PA_V3 and the V2, V3
position of its aperture.

3.  The undistorted position of the chip aperture relative to the
reference aperture gives the new reference pixel and the offset of CRVAL
along the roll direction.  Subarrays are handled by the LTV keywords.

4.  The reference plane has the parity matrix rotated by the roll and
scaled by the plate scale of the reference chip as its CD matrix.  The CD
matrix of each chip is the linear part of its polynomial projected
through that plane.  Time dependent distortion, if applied, moves the V2,
V3 reference apertures of the chips by the drift at the observation date.

5.  If VAFACTOR is present, velocity aberration scales the CD matrix and
the CRVAL offset from the reference chip.

6.  The linear terms of the distortion polynomial are removed and the
remaining terms written as SIP coefficients in pixels.

-------------
Public domain.
*/
package main
