package pipeline

import (
	"path/filepath"
	"strings"
)

// Stage names, in execution order.
const (
	StagePM       = "lndpm"
	StageCal      = "lndcal"
	StageSR       = "lndsr"
	StageSRMask   = "lndsrbm.ksh"
	descriptorExt = ".xml"
)

// Binaries lists every executable a full run may invoke.
var Binaries = []string{StagePM, StageCal, StageSR, StageSRMask}

// Stage is one external tool invocation.
type Stage struct {
	Name   string
	Binary string
	Args   []string
}

// Command renders the stage as a shell-like string for logs.
func (s Stage) Command() string {
	return strings.TrimSpace(s.Binary + " " + strings.Join(s.Args, " "))
}

// DescriptorID strips the directory and .xml extension from a descriptor path.
func DescriptorID(descriptor string) string {
	return strings.TrimSuffix(filepath.Base(descriptor), descriptorExt)
}

// BuildStages returns the ordered stage list for descriptor id. processSR
// appends the surface reflectance tail. A non-empty binDir is prepended to
// every binary.
func BuildStages(id string, processSR bool, binDir string) []Stage {
	resolve := func(name string) string {
		if binDir == "" {
			return name
		}
		return filepath.Join(binDir, name)
	}
	stages := []Stage{
		{Name: StagePM, Binary: resolve(StagePM), Args: []string{id + descriptorExt}},
		{Name: StageCal, Binary: resolve(StageCal), Args: []string{"lndcal." + id + ".txt"}},
	}
	if processSR {
		stages = append(stages,
			Stage{Name: StageSR, Binary: resolve(StageSR), Args: []string{"lndsr." + id + ".txt"}},
			Stage{Name: StageSRMask, Binary: resolve(StageSRMask), Args: []string{"lndsr." + id + ".txt"}},
		)
	}
	return stages
}
