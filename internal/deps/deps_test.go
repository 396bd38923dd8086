package deps

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ledaps/internal/config"
	"ledaps/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	present := testsupport.WriteScript(t, t.TempDir(), "present", "exit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestRequirementsFollowPipelineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BinDir = "/opt/ledaps/bin"
	cfg.Pipeline.UseBin = true
	cfg.Pipeline.ProcessSR = false

	type row struct {
		Name     string
		Command  string
		Optional bool
	}
	var got []row
	for _, req := range Requirements(&cfg) {
		got = append(got, row{req.Name, req.Command, req.Optional})
	}
	want := []row{
		{"ncep_repackage", "ncep_repackage", false},
		{"lndpm", "/opt/ledaps/bin/lndpm", false},
		{"lndcal", "/opt/ledaps/bin/lndcal", false},
		{"lndsr", "/opt/ledaps/bin/lndsr", true},
		{"lndsrbm.ksh", "/opt/ledaps/bin/lndsrbm.ksh", true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected requirements (-want +got):\n%s", diff)
	}
}

func TestRequirementsWithoutConfig(t *testing.T) {
	reqs := Requirements(nil)
	if len(reqs) != 5 {
		t.Fatalf("expected 5 requirements, got %d", len(reqs))
	}
	for _, req := range reqs {
		if req.Optional {
			t.Fatalf("expected %s to be required by default", req.Name)
		}
	}
}

func TestCheckBinariesWithStubTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubTools("ncep_repackage", "lndpm", "lndcal"))
	cfg.NCEP.RepackageBinary = filepath.Join(cfg.Paths.BinDir, "ncep_repackage")
	cfg.Pipeline.ProcessSR = false

	results := CheckBinaries(Requirements(cfg))
	if missing := Missing(results); len(missing) != 0 {
		t.Fatalf("expected required tools to resolve, missing %+v", missing)
	}
	for _, r := range results {
		if r.Optional && r.Available {
			t.Fatalf("expected %s stub to be absent", r.Name)
		}
	}
}
