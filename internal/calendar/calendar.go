package calendar

import (
	"fmt"
	"time"
)

// Epoch is the first year with NCEP reanalysis ancillary coverage.
const Epoch = 1978

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DayCount returns the number of days to process for year. The current year
// is bounded by today's day of year; every other year is complete.
func DayCount(year int, now time.Time) int {
	if year == now.Year() {
		return now.YearDay()
	}
	return DaysInYear(year)
}

// ValidDOY reports whether doy lies in [1, DaysInYear(year)].
func ValidDOY(year, doy int) bool {
	return doy >= 1 && doy <= DaysInYear(year)
}

// FormatDOY renders a day of year zero-padded to three digits. Every path
// built from a day of year goes through this function.
func FormatDOY(doy int) string {
	return fmt.Sprintf("%03d", doy)
}

// YearDOY renders the <year><DDD> key used in ancillary file names.
func YearDOY(year, doy int) string {
	return fmt.Sprintf("%d%s", year, FormatDOY(doy))
}
