package ncep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ledaps/internal/ancillary"
	"ledaps/internal/calendar"
	"ledaps/internal/ledger"
	"ledaps/internal/logging"
	"ledaps/internal/services"
)

// LockFileName is created in the ancillary root while an update runs.
const LockFileName = ".ledaps-ancillary.lock"

// Range modes recorded in the ledger.
const (
	ModeRange     = "range"
	ModeToday     = "today"
	ModeQuarterly = "quarterly"
)

var (
	// ErrUpdateInProgress reports that another process holds the update lock.
	ErrUpdateInProgress = fmt.Errorf("%w: another ancillary update is running", services.ErrValidation)
	// ErrInvalidRange reports an empty or inverted year range.
	ErrInvalidRange = fmt.Errorf("%w: invalid year range", services.ErrValidation)
)

// YearRange is an inclusive span of years to refresh.
type YearRange struct {
	Start int
	End   int
	Mode  string
}

// Explicit returns the range [start, end].
func Explicit(start, end int) YearRange {
	return YearRange{Start: start, End: end, Mode: ModeRange}
}

// Today returns the current year, extended back to the previous year during
// January so late reprocessing of December data is picked up.
func Today(now time.Time) YearRange {
	start := now.Year()
	if now.YearDay() <= 31 {
		start--
	}
	return YearRange{Start: start, End: now.Year(), Mode: ModeToday}
}

// Quarterly returns every year from the start of the archive to now.
func Quarterly(now time.Time) YearRange {
	return YearRange{Start: calendar.Epoch, End: now.Year(), Mode: ModeQuarterly}
}

// Validate checks that the range is non-empty and starts no earlier than
// the archive epoch.
func (r YearRange) Validate() error {
	if r.Start < calendar.Epoch {
		return fmt.Errorf("%w: start year %d before %d", ErrInvalidRange, r.Start, calendar.Epoch)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start year %d after end year %d", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Fetcher downloads one named annual file into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, name, destDir string) (string, error)
}

// YearConverter turns one annual source into daily artifacts.
type YearConverter interface {
	ConvertYear(ctx context.Context, source, outputDir string, year int, clean bool) (ConversionResult, error)
}

// Recorder persists per-year outcomes.
type Recorder interface {
	RecordYear(ctx context.Context, rec ledger.YearRecord) (int64, error)
}

// DriverOptions wires a Driver.
type DriverOptions struct {
	Root        string
	DownloadDir string
	// Purge removes a year's existing REANALYSIS artifacts once all of its
	// annual files are downloaded and before conversion starts.
	Purge     bool
	Fetcher   Fetcher
	Converter YearConverter
	Recorder  Recorder
	Now       func() time.Time
}

// YearResult is the outcome of one year.
type YearResult struct {
	Year       int
	Days       int
	Converted  int
	DaysFailed []int
	Purged     int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the year completed.
func (r YearResult) OK() bool {
	return r.Err == nil
}

// Summary aggregates a driver run.
type Summary struct {
	RunID string
	Mode  string
	Years []YearResult
}

// Failed returns the years that were skipped.
func (s Summary) Failed() []YearResult {
	var failed []YearResult
	for _, y := range s.Years {
		if !y.OK() {
			failed = append(failed, y)
		}
	}
	return failed
}

// Driver refreshes a range of reanalysis years.
type Driver struct {
	root        string
	downloadDir string
	purge       bool
	fetcher     Fetcher
	converter   YearConverter
	recorder    Recorder
	now         func() time.Time
	logger      *slog.Logger
}

// NewDriver validates opts and constructs a Driver.
func NewDriver(opts DriverOptions, logger *slog.Logger) (*Driver, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, ancillary.ErrRootNotConfigured
	}
	if strings.TrimSpace(opts.DownloadDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ncep", "driver", "download directory not configured", nil)
	}
	if opts.Fetcher == nil || opts.Converter == nil {
		return nil, errors.New("ncep driver requires a fetcher and a converter")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Driver{
		root:        root,
		downloadDir: opts.DownloadDir,
		purge:       opts.Purge,
		fetcher:     opts.Fetcher,
		converter:   opts.Converter,
		recorder:    opts.Recorder,
		now:         now,
		logger:      logging.NewComponentLogger(logger, "ncep"),
	}, nil
}

// Run processes every year of r in increasing order. A year that fails is
// logged, recorded, and skipped; Run itself only errors for an invalid range,
// an unusable ancillary root, a concurrent update, or cancellation.
func (d *Driver) Run(ctx context.Context, r YearRange) (Summary, error) {
	summary := Summary{Mode: r.Mode}
	if err := r.Validate(); err != nil {
		return summary, err
	}
	if err := ancillary.EnsureDir(d.root); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "ncep", "driver", "prepare ancillary root", err)
	}

	lock := flock.New(filepath.Join(d.root, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire update lock: %w", err)
	}
	if !locked {
		return summary, ErrUpdateInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("failed to release update lock", logging.Error(err))
		}
	}()

	summary.RunID = uuid.NewString()
	ctx = services.WithRequestID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("ancillary update started",
		logging.Int("start_year", r.Start),
		logging.Int("end_year", r.End),
		logging.String("mode", r.Mode),
		logging.Bool("purge", d.purge),
		logging.String(logging.FieldEventType, "ncep_update_start"),
	)

	for year := r.Start; year <= r.End; year++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result := d.processYear(ctx, year)
		summary.Years = append(summary.Years, result)
		d.record(ctx, summary, result)
		if !result.OK() {
			if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
				return summary, result.Err
			}
			logging.WarnWithContext(logging.WithContext(services.WithYear(ctx, year), d.logger),
				"year skipped", "ncep_year_failed",
				logging.Error(result.Err),
				logging.String("error_kind", services.Kind(result.Err)),
				logging.String(logging.FieldImpact, "year not refreshed; range continues"),
			)
		}
	}

	logger.Info("ancillary update finished",
		logging.Int("years", len(summary.Years)),
		logging.Int("failed", len(summary.Failed())),
		logging.String(logging.FieldEventType, "ncep_update_complete"),
	)
	return summary, nil
}

func (d *Driver) processYear(ctx context.Context, year int) (result YearResult) {
	ctx = services.WithYear(ctx, year)
	logger := logging.WithContext(ctx, d.logger)
	result = YearResult{Year: year, StartedAt: d.now()}
	defer func() { result.FinishedAt = d.now() }()

	sources := make(map[Variable]string, len(Variables))
	defer func() {
		for _, path := range sources {
			if _, err := ancillary.RemoveIfExists(path); err != nil {
				logger.Warn("could not remove annual download", logging.String("path", path), logging.Error(err))
			}
		}
	}()

	for _, variable := range Variables {
		desc, err := Resource(variable, year)
		if err != nil {
			result.Err = err
			return result
		}
		path, err := d.fetcher.Fetch(ctx, desc.FileName, d.downloadDir)
		if err != nil {
			result.Err = err
			return result
		}
		sources[variable] = path
	}

	if d.purge {
		purged := ancillary.PurgeYear(d.root, year, logger)
		result.Purged = len(purged.Removed)
	}

	outputDir := ancillary.ReanalysisYearDir(d.root, year)
	failed := map[int]struct{}{}
	for _, variable := range Variables {
		desc, _ := Resource(variable, year)
		conv, err := d.converter.ConvertYear(ctx, sources[variable], outputDir, year, desc.CleansExisting())
		if err != nil {
			result.Err = err
			return result
		}
		result.Days = conv.Days
		for _, f := range conv.Failed {
			failed[f.DOY] = struct{}{}
		}
	}

	for doy := range failed {
		result.DaysFailed = append(result.DaysFailed, doy)
	}
	sort.Ints(result.DaysFailed)
	result.Converted = result.Days - len(result.DaysFailed)
	logger.Info("year refreshed",
		logging.Int("converted", result.Converted),
		logging.Int("days_failed", len(result.DaysFailed)),
		logging.Int("purged", result.Purged),
		logging.String(logging.FieldEventType, "ncep_year_complete"),
	)
	return result
}

func (d *Driver) record(ctx context.Context, summary Summary, result YearResult) {
	if d.recorder == nil {
		return
	}
	rec := ledger.YearRecord{
		RunID:         summary.RunID,
		Mode:          summary.Mode,
		Year:          result.Year,
		Status:        ledger.StatusSucceeded,
		DaysConverted: result.Converted,
		DaysFailed:    len(result.DaysFailed),
		Purged:        result.Purged,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	}
	if result.Err != nil {
		rec.Status = ledger.StatusFailed
		rec.ErrorKind = services.Kind(result.Err)
		rec.ErrorMessage = result.Err.Error()
	}
	if _, err := d.recorder.RecordYear(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logging.WithContext(services.WithYear(ctx, result.Year), d.logger),
			"could not record year outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history incomplete"),
		)
	}
}
