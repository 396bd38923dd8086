// Package ncep refreshes the NCEP/NCAR reanalysis ancillary archive.
//
// For each year the Driver downloads three annual NetCDF files (sea level
// pressure, precipitable water, near-surface air temperature), repackages
// every day of each file into REANALYSIS_<year><DDD>.hdf with the external
// ncep_repackage tool, and removes the annual downloads. Years are processed
// in increasing order on a best-effort basis: a failed year is logged and
// recorded, and the range continues.
package ncep
