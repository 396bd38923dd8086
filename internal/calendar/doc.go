// Package calendar holds the day-of-year rules shared by ancillary
// conversion, availability scanning, and purging.
package calendar
