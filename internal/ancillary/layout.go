package ancillary

import (
	"fmt"
	"path/filepath"
	"regexp"

	"ledaps/internal/calendar"
)

const (
	reanalysisRoot = "REANALYSIS"
	tomsRoot       = "EP_TOMS"
)

// ReanalysisYearDir returns <root>/REANALYSIS/RE_<year>.
func ReanalysisYearDir(root string, year int) string {
	return filepath.Join(root, reanalysisRoot, fmt.Sprintf("RE_%d", year))
}

// ReanalysisName returns the daily NCEP artifact name REANALYSIS_<year><DDD>.hdf.
func ReanalysisName(year, doy int) string {
	return "REANALYSIS_" + calendar.YearDOY(year, doy) + ".hdf"
}

// ReanalysisPath returns the full path of one daily NCEP artifact.
func ReanalysisPath(root string, year, doy int) string {
	return filepath.Join(ReanalysisYearDir(root, year), ReanalysisName(year, doy))
}

// TOMSYearDir returns <root>/EP_TOMS/ozone_<year>.
func TOMSYearDir(root string, year int) string {
	return filepath.Join(root, tomsRoot, fmt.Sprintf("ozone_%d", year))
}

// TOMSPath returns <root>/EP_TOMS/ozone_<year>/TOMS_<year><DDD>.hdf.
func TOMSPath(root string, year, doy int) string {
	return filepath.Join(TOMSYearDir(root, year), "TOMS_"+calendar.YearDOY(year, doy)+".hdf")
}

// reanalysisPattern matches the daily NCEP artifacts of exactly one year.
func reanalysisPattern(year int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^REANALYSIS_%d\d{3}\.hdf$`, year))
}
