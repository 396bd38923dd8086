package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"ledaps/internal/config"
	"ledaps/internal/pipeline"
)

// Requirement defines an external tool ledaps invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

var stageDescriptions = map[string]string{
	pipeline.StagePM:     "Builds per-stage parameter files from the scene metadata",
	pipeline.StageCal:    "Calibrates the scene to TOA reflectance and brightness temperature",
	pipeline.StageSR:     "Computes surface reflectance from ancillary inputs",
	pipeline.StageSRMask: "Applies the cloud and shadow mask to surface reflectance",
}

// Requirements returns the tools needed by the configured features. The
// surface reflectance stages are optional when pipeline.process_sr is off.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	reqs := []Requirement{{
		Name:        "ncep_repackage",
		Command:     cfg.NCEP.RepackageBinary,
		Description: "Splits annual NCEP NetCDF files into daily REANALYSIS HDF files",
	}}
	for _, name := range pipeline.Binaries {
		optional := !cfg.Pipeline.ProcessSR && (name == pipeline.StageSR || name == pipeline.StageSRMask)
		reqs = append(reqs, Requirement{
			Name:        name,
			Command:     cfg.StageBinary(name, cfg.Pipeline.UseBin),
			Description: stageDescriptions[name],
			Optional:    optional,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if path, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
				if path != cmd {
					status.Detail = path
				}
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
