// Package toolexec runs the external science tools (ncep_repackage, lndpm,
// lndcal, lndsr, lndsrbm.ksh) and reports their exit status and combined
// output. Callers judge success by exit status alone.
package toolexec
