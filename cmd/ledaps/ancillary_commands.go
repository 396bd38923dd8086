package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ledaps/internal/ancillary"
	"ledaps/internal/calendar"
	"ledaps/internal/config"
	"ledaps/internal/fetch"
	"ledaps/internal/ledger"
	"ledaps/internal/logging"
	"ledaps/internal/ncep"
	"ledaps/internal/services"
)

var errUsage = fmt.Errorf("%w: invalid arguments", services.ErrValidation)

func newAncillaryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ancillary",
		Aliases: []string{"anc"},
		Short:   "Maintain the local ancillary archive",
	}
	cmd.AddCommand(newAncillaryUpdateCommand(ctx))
	cmd.AddCommand(newAncillaryScanCommand(ctx))
	cmd.AddCommand(newAncillaryPurgeCommand(ctx))
	cmd.AddCommand(newAncillaryHistoryCommand(ctx))
	return cmd
}

type updateFlags struct {
	startYear int
	endYear   int
	today     bool
	quarterly bool
	purge     bool
}

// yearRange resolves the mode flags. Exactly one of an explicit start/end
// pair, --today, or --quarterly must be given.
func (f updateFlags) yearRange(now time.Time) (ncep.YearRange, error) {
	explicit := f.startYear != 0 || f.endYear != 0
	modes := 0
	for _, set := range []bool{explicit, f.today, f.quarterly} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return ncep.YearRange{}, fmt.Errorf("%w: choose exactly one of --start-year/--end-year, --today or --quarterly", errUsage)
	}
	switch {
	case f.today:
		return ncep.Today(now), nil
	case f.quarterly:
		return ncep.Quarterly(now), nil
	}
	if f.startYear == 0 || f.endYear == 0 {
		return ncep.YearRange{}, fmt.Errorf("%w: --start-year and --end-year must be given together", errUsage)
	}
	r := ncep.Explicit(f.startYear, f.endYear)
	if err := r.Validate(); err != nil {
		return ncep.YearRange{}, err
	}
	return r, nil
}

func newAncillaryUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags updateFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and repackage NCEP reanalysis years",
		Long: "Download the annual NCEP surface files for each year and repackage them into daily\n" +
			"REANALYSIS HDF files. A year that fails is reported and skipped; the command still\n" +
			"exits 0 unless the configuration or arguments are invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := flags.yearRange(time.Now())
			if err != nil {
				_ = cmd.Usage()
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := cfg.AncillaryRoot()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			recorder, closeLedger := openLedger(cfg, logger)
			defer closeLedger()

			driver, err := ncep.NewDriver(ncep.DriverOptions{
				Root:        root,
				DownloadDir: cfg.Paths.DownloadDir,
				Purge:       flags.purge,
				Fetcher: fetch.New(fetch.Options{
					BaseURL:    cfg.NCEP.BaseURL,
					MaxRetries: cfg.NCEP.MaxRetries,
					Delay:      time.Duration(cfg.NCEP.RetryDelaySeconds) * time.Second,
					Timeout:    time.Duration(cfg.NCEP.RequestTimeoutSeconds) * time.Second,
				}, logger),
				Converter: ncep.NewConverter(cfg.NCEP.RepackageBinary, logger),
				Recorder:  recorder,
			}, logger)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			summary, err := driver.Run(runCtx, r)
			if err != nil {
				return err
			}
			printUpdateSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&flags.startYear, "start-year", 0, "First year to process")
	cmd.Flags().IntVar(&flags.endYear, "end-year", 0, "Last year to process (inclusive)")
	cmd.Flags().BoolVar(&flags.today, "today", false, "Process the current year (and the previous year during January)")
	cmd.Flags().BoolVar(&flags.quarterly, "quarterly", false, fmt.Sprintf("Reprocess every year from %d to the current year", calendar.Epoch))
	cmd.Flags().BoolVar(&flags.purge, "purge", false, "Delete each year's existing REANALYSIS files before regenerating")
	return cmd
}

// openLedger opens the history database. A ledger that cannot be opened only
// disables history; it never blocks an update.
func openLedger(cfg *config.Config, logger *slog.Logger) (ncep.Recorder, func()) {
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return nil, func() {}
	}
	store, err := ledger.Open(filepath.Join(cfg.Paths.LogDir, ledger.FileName))
	if err != nil {
		logging.WarnWithContext(logger, "update history unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not be recorded"),
		)
		return nil, func() {}
	}
	return store, func() { _ = store.Close() }
}

func printUpdateSummary(out io.Writer, summary ncep.Summary) {
	failed := summary.Failed()
	fmt.Fprintf(out, "Processed %d year(s), %d skipped (run %s)\n", len(summary.Years), len(failed), summary.RunID)
	for _, y := range summary.Years {
		if y.OK() {
			line := fmt.Sprintf("  %d: %d day(s) converted", y.Year, y.Converted)
			if n := len(y.DaysFailed); n > 0 {
				line += fmt.Sprintf(", %d day(s) failed", n)
			}
			fmt.Fprintln(out, line)
			continue
		}
		fmt.Fprintf(out, "  %d: skipped (%s): %v\n", y.Year, services.Kind(y.Err), y.Err)
	}
}

type dayReport struct {
	DOY        string `json:"doy"`
	Reanalysis bool   `json:"reanalysis"`
	TOMS       bool   `json:"toms"`
	Available  bool   `json:"available"`
}

type scanReport struct {
	Root       string             `json:"root"`
	Year       int                `json:"year"`
	Days       []dayReport        `json:"days"`
	Available  int                `json:"available"`
	LastUpdate *ledger.YearRecord `json:"last_update,omitempty"`
}

func newAncillaryScanCommand(ctx *commandContext) *cobra.Command {
	var year, doy int
	var jsonOut, missingOnly bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report which days have both REANALYSIS and TOMS ancillary files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if year <= 0 {
				return fmt.Errorf("%w: --year is required", errUsage)
			}
			days, err := ancillary.ScanDetailed(cfg.Paths.AncillaryDir, year, doy, time.Now())
			if err != nil {
				if errors.Is(err, ancillary.ErrRootNotConfigured) {
					return config.ErrAncillaryRootMissing
				}
				return err
			}

			report := scanReport{
				Root:       cfg.Paths.AncillaryDir,
				Year:       year,
				Days:       make([]dayReport, 0, len(days)),
				LastUpdate: lastUpdate(cmd.Context(), cfg, year),
			}
			for _, d := range days {
				if d.Available() {
					report.Available++
				}
				if missingOnly && d.Available() {
					continue
				}
				report.Days = append(report.Days, dayReport{
					DOY:        calendar.FormatDOY(d.DOY),
					Reanalysis: d.Reanalysis,
					TOMS:       d.TOMS,
					Available:  d.Available(),
				})
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			if isTerminal(out) {
				rows := make([][]string, 0, len(report.Days))
				for _, d := range report.Days {
					rows = append(rows, []string{d.DOY, yesNo(d.Reanalysis), yesNo(d.TOMS), yesNo(d.Available)})
				}
				fmt.Fprintln(out, renderTable([]string{"DOY", "Reanalysis", "TOMS", "Available"}, rows, nil))
			} else {
				for _, d := range report.Days {
					fmt.Fprintf(out, "%d%s %s\n", year, d.DOY, availabilityWord(d.Available))
				}
			}
			fmt.Fprintf(out, "%d of %d day(s) available for %d\n", report.Available, len(days), year)
			if rec := report.LastUpdate; rec != nil {
				fmt.Fprintf(out, "Last update: %s %s (run %s)\n",
					rec.FinishedAt.Local().Format("2006-01-02 15:04"), rec.Status, rec.RunID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Year to scan")
	cmd.Flags().IntVar(&doy, "doy", ancillary.AllDays, "Single day of year to scan (default: every day)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&missingOnly, "missing", false, "List only days with missing inputs")
	return cmd
}

// lastUpdate returns the newest ledger row for year, or nil when there is
// none or the ledger is unavailable.
func lastUpdate(ctx context.Context, cfg *config.Config, year int) *ledger.YearRecord {
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return nil
	}
	store, err := ledger.Open(filepath.Join(cfg.Paths.LogDir, ledger.FileName))
	if err != nil {
		return nil
	}
	defer store.Close()
	rec, ok, err := store.LastForYear(ctx, year)
	if err != nil || !ok {
		return nil
	}
	return &rec
}

func availabilityWord(ok bool) string {
	if ok {
		return "available"
	}
	return "missing"
}

func newAncillaryPurgeCommand(ctx *commandContext) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete one year's REANALYSIS files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if year <= 0 {
				return fmt.Errorf("%w: --year is required", errUsage)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := cfg.AncillaryRoot()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result := ancillary.PurgeYear(root, year, logger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d file(s) from %s\n", len(result.Removed), ancillary.ReanalysisYearDir(root, year))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  could not remove %s: %v\n", e.Path, e.Error)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Year to purge")
	return cmd
}

func newAncillaryHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded ancillary update outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(filepath.Join(cfg.Paths.LogDir, ledger.FileName))
			if err != nil {
				return err
			}
			defer store.Close()

			var records []ledger.YearRecord
			if runID = strings.TrimSpace(runID); runID != "" {
				records, err = store.Run(cmd.Context(), runID)
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No ancillary updates recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Run", "Mode", "Year", "Status", "Converted", "Failed", "Purged", "Error"},
				historyRows(records),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every year of one update run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func historyRows(records []ledger.YearRecord) [][]string {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		runID := rec.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		rows = append(rows, []string{
			rec.FinishedAt.Local().Format("2006-01-02 15:04"),
			runID,
			rec.Mode,
			strconv.Itoa(rec.Year),
			title.String(string(rec.Status)),
			strconv.Itoa(rec.DaysConverted),
			strconv.Itoa(rec.DaysFailed),
			strconv.Itoa(rec.Purged),
			truncate(rec.ErrorMessage, 60),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
