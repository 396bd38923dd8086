package ledger

import "time"

// Status is the outcome of one year within an update run.
type Status string

const (
	// StatusSucceeded marks a year whose conversion completed, possibly with
	// individual day failures.
	StatusSucceeded Status = "succeeded"
	// StatusFailed marks a year skipped because a fetch or conversion failed.
	StatusFailed Status = "failed"
)

// YearRecord is one row of the ledger.
type YearRecord struct {
	ID            int64
	RunID         string
	Mode          string
	Year          int
	Status        Status
	DaysConverted int
	DaysFailed    int
	Purged        int
	ErrorKind     string
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration returns how long the year took to process.
func (r YearRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
