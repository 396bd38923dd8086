package ancillary

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"ledaps/internal/logging"
)

// EnsureDir creates path and any missing parents. An existing directory is
// left as is.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", path, err)
	}
	return nil
}

// RemoveIfExists deletes a regular file if it is present. A missing file is
// not an error.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// PurgeResult contains the outcome of a purge operation.
type PurgeResult struct {
	Removed []string
	Errors  []PurgeError
}

// PurgeError pairs a file path with its removal error.
type PurgeError struct {
	Path  string
	Error error
}

// PurgeYear deletes every daily REANALYSIS artifact of year from
// <root>/REANALYSIS/RE_<year>. Files of other years and files that do not
// follow the naming convention are left alone. A missing directory is a no-op,
// and a file that cannot be removed is logged and skipped.
func PurgeYear(root string, year int, logger *slog.Logger) PurgeResult {
	result := PurgeResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	dir := ReanalysisYearDir(root, year)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, PurgeError{Path: dir, Error: err})
			logging.WarnWithContext(logger, "failed to read reanalysis directory", "ancillary_purge_failed",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ancillary_dir permissions"),
			)
		}
		return result
	}

	logger.Info("purging reanalysis artifacts",
		logging.Int(logging.FieldYear, year),
		logging.String("path", dir),
		logging.String(logging.FieldEventType, "ancillary_purge_start"),
	)

	pattern := reanalysisPattern(year)
	for _, entry := range entries {
		if entry.IsDir() || !pattern.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, PurgeError{Path: path, Error: err})
			logging.WarnWithContext(logger, "could not remove reanalysis artifact", "ancillary_purge_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ancillary_dir permissions"),
				logging.String(logging.FieldImpact, "stale artifact kept"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	logger.Info("reanalysis artifacts purged",
		logging.Int(logging.FieldYear, year),
		logging.Int("removed", len(result.Removed)),
		logging.Int("failed", len(result.Errors)),
		logging.String(logging.FieldEventType, "ancillary_purge_complete"),
	)
	return result
}
