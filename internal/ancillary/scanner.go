package ancillary

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ledaps/internal/calendar"
	"ledaps/internal/services"
)

// AllDays requests a scan of every day in the year (bounded by today for the
// current year).
const AllDays = 0

var (
	// ErrRootNotConfigured is returned instead of a report when no ancillary
	// root was supplied. It is never folded into an all-false report.
	ErrRootNotConfigured = fmt.Errorf("%w: ancillary root not configured", services.ErrConfiguration)
	// ErrInvalidDOY reports a requested day outside the year's range.
	ErrInvalidDOY = fmt.Errorf("%w: day of year out of range", services.ErrValidation)
)

// DayAvailability records which ancillary inputs exist for one day.
type DayAvailability struct {
	DOY        int
	Reanalysis bool
	TOMS       bool
}

// Available reports whether every required ancillary input exists.
func (d DayAvailability) Available() bool {
	return d.Reanalysis && d.TOMS
}

// Scan reports, for each requested day of year, whether both the NCEP
// REANALYSIS and EP/TOMS ozone artifacts exist under root. With doy set to
// AllDays the result has one entry per day starting at DOY 1; otherwise it has
// exactly one entry.
func Scan(root string, year, doy int) ([]bool, error) {
	return ScanAt(root, year, doy, time.Now())
}

// ScanAt is Scan with an explicit reference time for the current-year bound.
func ScanAt(root string, year, doy int, now time.Time) ([]bool, error) {
	days, err := ScanDetailed(root, year, doy, now)
	if err != nil {
		return nil, err
	}
	report := make([]bool, len(days))
	for i, day := range days {
		report[i] = day.Available()
	}
	return report, nil
}

// ScanDetailed returns per-input availability for each requested day. It only
// stats files and never mutates the ancillary tree.
func ScanDetailed(root string, year, doy int, now time.Time) ([]DayAvailability, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, ErrRootNotConfigured
	}

	first, last := 1, calendar.DayCount(year, now)
	if doy != AllDays {
		if !calendar.ValidDOY(year, doy) {
			return nil, fmt.Errorf("%w: %d not in [1, %d] for %d", ErrInvalidDOY, doy, calendar.DaysInYear(year), year)
		}
		first, last = doy, doy
	}

	days := make([]DayAvailability, 0, last-first+1)
	for d := first; d <= last; d++ {
		days = append(days, DayAvailability{
			DOY:        d,
			Reanalysis: isFile(ReanalysisPath(root, year, d)),
			TOMS:       isFile(TOMSPath(root, year, d)),
		})
	}
	return days, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
