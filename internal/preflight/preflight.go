package preflight

import (
	"context"
	"strings"

	"ledaps/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local filesystem checks for cfg. The remote archive
// check is separate because it needs network access.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if strings.TrimSpace(cfg.Paths.AncillaryDir) == "" {
		results = append(results, Result{Name: "Ancillary directory", Detail: "not configured (set paths.ancillary_dir or LEDAPS_AUX_DIR)"})
	} else {
		results = append(results, CheckDirectoryAccess("Ancillary directory", cfg.Paths.AncillaryDir))
	}
	results = append(results, CheckCreatableDirectory("Download directory", cfg.Paths.DownloadDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckCreatableDirectory("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Pipeline.UseBin {
		if strings.TrimSpace(cfg.Paths.BinDir) == "" {
			results = append(results, Result{Name: "Binary directory", Detail: "pipeline.use_bin set but paths.bin_dir is empty"})
		} else {
			results = append(results, CheckDirectoryReadable("Binary directory", cfg.Paths.BinDir))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunWithArchive runs RunAll plus the remote archive check.
func RunWithArchive(ctx context.Context, cfg *config.Config) []Result {
	results := RunAll(cfg)
	if cfg != nil {
		results = append(results, CheckArchive(ctx, cfg.NCEP.BaseURL))
	}
	return results
}
