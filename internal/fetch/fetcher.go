package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledaps/internal/ancillary"
	"ledaps/internal/logging"
	"ledaps/internal/services"
)

const (
	// DefaultMaxRetries is the number of attempts made after the first one.
	DefaultMaxRetries = 5
	// DefaultDelay separates consecutive attempts.
	DefaultDelay   = 60 * time.Second
	defaultTimeout = 30 * time.Minute
)

// ErrExhausted marks a fetch that failed on every attempt.
var ErrExhausted = fmt.Errorf("%w: fetch retries exhausted", services.ErrTransient)

// FetchError describes a fetch that gave up after Attempts tries. Err holds
// the failure of the last attempt.
type FetchError struct {
	Name     string
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unsuccessful after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

// Unwrap exposes both ErrExhausted and the last attempt's error.
func (e *FetchError) Unwrap() []error {
	return []error{ErrExhausted, e.Err}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Fetcher.
type Options struct {
	BaseURL    string
	MaxRetries int
	Delay      time.Duration
	Timeout    time.Duration
	Client     *http.Client
	Sleep      SleepFunc
}

// Fetcher retrieves files from a single remote directory.
type Fetcher struct {
	baseURL    string
	maxRetries int
	delay      time.Duration
	client     *http.Client
	sleep      SleepFunc
	logger     *slog.Logger
}

// New constructs a Fetcher. MaxRetries and Delay are used as given, with
// negative values treated as zero; a zero Timeout uses a 30 minute limit.
func New(opts Options, logger *slog.Logger) *Fetcher {
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	return &Fetcher{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		maxRetries: retries,
		delay:      delay,
		client:     client,
		sleep:      sleep,
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
}

// URL returns the remote location of name.
func (f *Fetcher) URL(name string) string {
	return f.baseURL + "/" + name
}

// Fetch downloads name into destDir and returns the local path. destDir is
// created if needed and any existing file of the same name is removed first.
// One initial attempt is followed by up to MaxRetries retries separated by the
// configured delay.
func (f *Fetcher) Fetch(ctx context.Context, name, destDir string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", services.Wrap(services.ErrValidation, "fetch", "resolve", fmt.Sprintf("invalid resource name %q", name), nil)
	}
	if err := ancillary.EnsureDir(destDir); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "fetch", "prepare", "create download directory", err)
	}
	dest := filepath.Join(destDir, name)
	if _, err := ancillary.RemoveIfExists(dest); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "fetch", "prepare", "remove stale download", err)
	}

	url := f.URL(name)
	logger := logging.WithContext(ctx, f.logger).With(
		logging.String("resource", name),
		logging.String("url", url),
	)

	total := f.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.delay); err != nil {
				return "", err
			}
		}
		logger.Debug("fetch attempt",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", total),
		)
		size, err := f.download(ctx, url, dest)
		if err == nil {
			logger.Info("fetch complete",
				logging.Int("attempt", attempt),
				logging.Int64("bytes", size),
				logging.String(logging.FieldEventType, "fetch_complete"),
			)
			return dest, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err
		if attempt < total {
			logger.Warn("fetch attempt failed, retrying",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", total),
				logging.Duration("backoff", f.delay),
				logging.Error(err),
				logging.String(logging.FieldEventType, "fetch_retry"),
				logging.String(logging.FieldErrorHint, "check network access to the reanalysis archive"),
			)
		}
	}

	fetchErr := &FetchError{Name: name, URL: url, Attempts: total, Err: lastErr}
	logging.WarnWithContext(logger, "fetch unsuccessful after retries", "fetch_exhausted",
		logging.Int("attempts", total),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "verify ncep.base_url and network connectivity"),
		logging.String(logging.FieldImpact, "year skipped"),
	)
	return "", fetchErr
}

func (f *Fetcher) download(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tempPath := dest + ".part"
	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tempPath)
		return 0, fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		_ = os.Remove(tempPath)
		return 0, fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		_ = os.Remove(tempPath)
		return 0, fmt.Errorf("replace %s: %w", filepath.Base(dest), err)
	}
	return written, nil
}

// SleepWithContext blocks for d, returning early with ctx.Err() if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
