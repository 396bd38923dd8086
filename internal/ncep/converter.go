package ncep

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ledaps/internal/ancillary"
	"ledaps/internal/calendar"
	"ledaps/internal/logging"
	"ledaps/internal/services"
	"ledaps/internal/toolexec"
)

// FatalInputExitCode is the status ncep_repackage uses (-99 as an unsigned
// byte) when the annual source file cannot be read at all.
const FatalInputExitCode = 157

// ErrFatalInput aborts a year because its annual source is unreadable.
var ErrFatalInput = fmt.Errorf("%w: annual source unreadable", services.ErrExternalTool)

// DayFailure records one day whose extraction exited non-zero.
type DayFailure struct {
	DOY      int
	ExitCode int
	// Signal names the signal that killed the tool, if any.
	Signal string
}

// ConversionResult summarizes a ConvertYear call.
type ConversionResult struct {
	Year      int
	Days      int
	Converted int
	Failed    []DayFailure
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) ConverterOption {
	return func(c *Converter) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithClock overrides the reference time used to bound the current year.
func WithClock(now func() time.Time) ConverterOption {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// Converter splits an annual NetCDF file into daily HDF artifacts.
type Converter struct {
	binary string
	exec   toolexec.Executor
	now    func() time.Time
	logger *slog.Logger
}

// NewConverter constructs a Converter that invokes binary once per day.
func NewConverter(binary string, logger *slog.Logger, opts ...ConverterOption) *Converter {
	c := &Converter{
		binary: strings.TrimSpace(binary),
		exec:   toolexec.CommandExecutor{},
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "ncep"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConvertYear runs the repackaging tool for every day of year, in increasing
// order, writing REANALYSIS_<year><DDD>.hdf into outputDir. With clean set an
// existing artifact is removed before its day is regenerated. A day that
// exits non-zero loses its artifact and is recorded in the result; the fatal
// input status stops the year immediately with ErrFatalInput.
func (c *Converter) ConvertYear(ctx context.Context, source, outputDir string, year int, clean bool) (ConversionResult, error) {
	result := ConversionResult{Year: year, Days: calendar.DayCount(year, c.now())}
	if c.binary == "" {
		return result, services.Wrap(services.ErrConfiguration, "ncep", "convert", "repackage binary not configured", nil)
	}
	if err := ancillary.EnsureDir(outputDir); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "ncep", "convert", "create output directory", err)
	}

	logger := logging.WithContext(ctx, c.logger).With(logging.String("source", source))
	logger.Info("converting annual source",
		logging.Int("days", result.Days),
		logging.Bool("clean", clean),
		logging.String(logging.FieldEventType, "ncep_convert_start"),
	)

	for doy := 1; doy <= result.Days; doy++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		target := filepath.Join(outputDir, ancillary.ReanalysisName(year, doy))
		if clean {
			if _, err := ancillary.RemoveIfExists(target); err != nil {
				logging.WarnWithContext(logger, "could not remove existing artifact", "ncep_clean_failed",
					logging.String(logging.FieldDOY, calendar.FormatDOY(doy)),
					logging.String("path", target),
					logging.Error(err),
				)
			}
		}

		res, err := c.exec.Run(ctx, c.binary, []string{source, target, strconv.Itoa(doy)})
		if err != nil {
			return result, services.Wrap(services.ErrExternalTool, "ncep", "convert",
				fmt.Sprintf("run %s for day %s", c.binary, calendar.FormatDOY(doy)), err)
		}
		switch {
		case res.Success():
			result.Converted++
		case res.ExitCode == FatalInputExitCode:
			logging.ErrorWithContext(logger, "annual source unreadable", "ncep_fatal_input",
				logging.String(logging.FieldDOY, calendar.FormatDOY(doy)),
				logging.Int("exit_code", res.ExitCode),
				logging.String("output", trimOutput(res.Output)),
				logging.String(logging.FieldErrorHint, "re-fetch the annual file; it may be truncated"),
			)
			return result, fmt.Errorf("%w: %s", ErrFatalInput, source)
		default:
			result.Failed = append(result.Failed, DayFailure{DOY: doy, ExitCode: res.ExitCode, Signal: res.Signal})
			_, _ = ancillary.RemoveIfExists(target)
			logging.WarnWithContext(logger, "day failed", "ncep_day_failed",
				logging.String(logging.FieldDOY, calendar.FormatDOY(doy)),
				logging.Int("exit_code", res.ExitCode),
				logging.String("signal", res.Signal),
				logging.String("output", trimOutput(res.Output)),
				logging.String(logging.FieldImpact, "daily artifact missing"),
			)
		}
	}

	logger.Info("annual source converted",
		logging.Int("converted", result.Converted),
		logging.Int("failed", len(result.Failed)),
		logging.String(logging.FieldEventType, "ncep_convert_complete"),
	)
	return result, nil
}

func trimOutput(output []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(output))
	if len(text) > limit {
		return text[len(text)-limit:]
	}
	return text
}
