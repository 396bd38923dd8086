// Package pipeline runs the LEDAPS scene processing chain for one Landsat
// metadata descriptor (<id>.xml).
//
// Stages run in a fixed order inside the descriptor's directory: lndpm builds
// the per-stage parameter files, lndcal produces TOA reflectance, and, when
// surface reflectance is enabled, lndsr and lndsrbm.ksh produce and mask the
// surface reflectance product. The first stage that exits non-zero stops the
// run. The process working directory is switched for the duration of a run
// and restored on every exit path, so runs must not overlap within a process.
package pipeline
