package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ledaps/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "a", "b")
	result := CheckCreatableDirectory("download", missing)
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatal("check must not create the directory")
	}
}

func TestCheckArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckArchive(context.Background(), srv.URL+"/"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckArchive_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if result := CheckArchive(context.Background(), srv.URL); result.Passed {
		t.Fatal("expected failure for 404")
	}
	if result := CheckArchive(context.Background(), ""); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAllReportsMissingAncillaryRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAncillaryRoot())

	results := RunAll(cfg)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Ancillary directory" {
		t.Fatalf("expected only the ancillary check to fail, got %+v", failed)
	}

	cfg.Paths.AncillaryDir = t.TempDir()
	if failed := Failed(RunAll(cfg)); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}

func TestRunAllChecksBinDirWhenUsed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.LogDir = ""
	cfg.Pipeline.UseBin = true

	failed := Failed(RunAll(cfg))
	if len(failed) != 1 || failed[0].Name != "Binary directory" {
		t.Fatalf("expected binary directory failure, got %+v", failed)
	}
}

func TestRunAllPassesWithStubTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubTools("lndpm"))
	if failed := Failed(RunAll(cfg)); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}

func TestRunWithArchiveAppendsArchiveCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArchive(srv.URL))
	results := RunWithArchive(context.Background(), cfg)
	last := results[len(results)-1]
	if last.Name != "NCEP archive" || !last.Passed {
		t.Fatalf("expected passing archive check last, got %+v", last)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}
