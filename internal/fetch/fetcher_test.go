package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ledaps/internal/logging"
	"ledaps/internal/services"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

// flakyServer fails the first failures requests with 503 and then serves body.
func flakyServer(t *testing.T, failures int32, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n <= failures {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/slp.2005.nc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestFetcher(srv *httptest.Server, sleeper *recordingSleeper) *Fetcher {
	return New(Options{
		BaseURL:    srv.URL + "/",
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultDelay,
		Client:     srv.Client(),
		Sleep:      sleeper.sleep,
	}, logging.NewNop())
}

func TestFetchSucceedsAfterTransientFailures(t *testing.T) {
	srv, hits := flakyServer(t, 3, "netcdf")
	sleeper := &recordingSleeper{}
	dest := filepath.Join(t.TempDir(), "ncep")

	path, err := newTestFetcher(srv, sleeper).Fetch(context.Background(), "slp.2005.nc", dest)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got := hits.Load(); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
	want := []time.Duration{DefaultDelay, DefaultDelay, DefaultDelay}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Fatalf("unexpected delays (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(data) != "netcdf" {
		t.Fatalf("unexpected contents %q", data)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Fatal("expected temp file to be gone")
	}
}

func TestFetchReportsExhaustion(t *testing.T) {
	srv, hits := flakyServer(t, 100, "")
	sleeper := &recordingSleeper{}

	_, err := newTestFetcher(srv, sleeper).Fetch(context.Background(), "slp.2005.nc", t.TempDir())
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if got := hits.Load(); got != 6 {
		t.Fatalf("expected 6 attempts, got %d", got)
	}
	if len(sleeper.delays) != 5 {
		t.Fatalf("expected 5 delays, got %d", len(sleeper.delays))
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Attempts != 6 || fetchErr.Name != "slp.2005.nc" {
		t.Fatalf("unexpected FetchError %+v", fetchErr)
	}
}

func TestFetchRemovesStaleCopyFirst(t *testing.T) {
	srv, _ := flakyServer(t, 100, "")
	dest := t.TempDir()
	stale := filepath.Join(dest, "slp.2005.nc")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	fetcher := New(Options{BaseURL: srv.URL, MaxRetries: -1, Client: srv.Client()}, nil)
	if _, err := fetcher.Fetch(context.Background(), "slp.2005.nc", dest); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale copy to be removed before fetching")
	}
}

func TestFetchStopsWhenContextCancelled(t *testing.T) {
	srv, hits := flakyServer(t, 100, "")
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := New(Options{
		BaseURL:    srv.URL,
		MaxRetries: 5,
		Delay:      time.Hour,
		Client:     srv.Client(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return SleepWithContext(ctx, d)
		},
	}, logging.NewNop())

	_, err := fetcher.Fetch(ctx, "slp.2005.nc", t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestFetchRejectsPathLikeNames(t *testing.T) {
	fetcher := New(Options{BaseURL: "http://example.invalid"}, logging.NewNop())
	for _, name := range []string{"", "../slp.2005.nc", "a/b.nc"} {
		if _, err := fetcher.Fetch(context.Background(), name, t.TempDir()); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("name %q: expected validation error, got %v", name, err)
		}
	}
}
