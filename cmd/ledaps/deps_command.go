package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ledaps/internal/deps"
	"ledaps/internal/preflight"
)

var errMissingDeps = errors.New("required tools missing")

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools ledaps invokes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			if jsonOut {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					rows = append(rows, []string{s.Name, s.Command, depState(s), s.Description})
				}
				fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "State", "Purpose"}, rows, nil))
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("%w: %s", errMissingDeps, strings.Join(names, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func depState(s deps.Status) string {
	switch {
	case s.Available:
		return "ok"
	case s.Optional:
		return "missing (optional)"
	default:
		return "missing"
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, the NCEP archive, and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			var checks []preflight.Result
			if offline {
				checks = preflight.RunAll(cfg)
			} else {
				runCtx, cancel := signalContext(cmd)
				checks = preflight.RunWithArchive(runCtx, cfg)
				cancel()
			}

			var lines []string
			lines = append(lines, renderSectionHeader("Paths", colorize)...)
			lines = append(lines, checkLines(checks, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Tools", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckSystemDeps(cfg), colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the NCEP archive reachability check")
	return cmd
}
