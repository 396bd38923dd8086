// Package ancillary owns the on-disk layout of the LEDAPS ancillary tree.
//
// It builds the convention-based REANALYSIS and EP_TOMS paths, reports
// per-day availability for a year, and manages the directory lifecycle of
// derived artifacts (creation on demand, stale file removal, and per-year
// purges). Every day-of-year path goes through the calendar package so the
// converter, the scanner, and the purge agree on names.
package ancillary
