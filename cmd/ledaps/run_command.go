package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ledaps/internal/pipeline"
)

// parseProcessSR accepts the boolean spellings used by older wrapper scripts
// ("True", "False", "1", "0", ...). Empty means "use the configured default".
func parseProcessSR(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: --process-sr must be true or false, got %q", errUsage, value)
	}
	return parsed, nil
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		descriptor string
		processSR  string
		useBin     bool
		logFile    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the LEDAPS pipeline for one scene",
		Long: "Run lndpm and lndcal, then lndsr and lndsrbm.ksh when surface reflectance is\n" +
			"enabled, inside the directory holding the scene's XML metadata descriptor.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(descriptor) == "" {
				return fmt.Errorf("%w: --xml is required", errUsage)
			}
			sr, err := parseProcessSR(processSR, cfg.Pipeline.ProcessSR)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("use-bin") {
				useBin = cfg.Pipeline.UseBin
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var opts []pipeline.Option
			if useBin {
				if strings.TrimSpace(cfg.Paths.BinDir) == "" {
					return fmt.Errorf("%w: --use-bin requires paths.bin_dir or BIN", errUsage)
				}
				opts = append(opts, pipeline.WithBinDir(cfg.Paths.BinDir))
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			executor := pipeline.NewExecutor(logger, opts...)
			if err := executor.Run(runCtx, pipeline.Run{
				Descriptor: descriptor,
				ProcessSR:  sr,
				LogFile:    logFile,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline completed for %s\n", pipeline.DescriptorID(descriptor))
			return nil
		},
	}
	cmd.Flags().StringVarP(&descriptor, "xml", "f", "", "Scene XML metadata descriptor")
	cmd.Flags().StringVar(&processSR, "process-sr", "", "Run the surface reflectance stages (true or false; default from config)")
	cmd.Flags().BoolVar(&useBin, "use-bin", false, "Resolve stage executables in paths.bin_dir")
	cmd.Flags().StringVar(&logFile, "logfile", "", "Append stage output to this file")
	return cmd
}
