package config

const (
	defaultConfigPath         = "~/.config/ledaps/config.toml"
	defaultDownloadDir        = "/tmp/ncep"
	defaultLogDir             = "~/.local/share/ledaps/logs"
	defaultNCEPBaseURL        = "https://downloads.psl.noaa.gov/Datasets/ncep.reanalysis/surface"
	defaultNCEPMaxRetries     = 5
	defaultNCEPRetryDelay     = 60
	defaultNCEPRequestTimeout = 1800
	defaultRepackageBinary    = "ncep_repackage"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	envAncillaryDir           = "LEDAPS_AUX_DIR"
	envAncPath                = "ANC_PATH"
	envBinDir                 = "BIN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		NCEP: NCEP{
			BaseURL:               defaultNCEPBaseURL,
			MaxRetries:            defaultNCEPMaxRetries,
			RetryDelaySeconds:     defaultNCEPRetryDelay,
			RequestTimeoutSeconds: defaultNCEPRequestTimeout,
			RepackageBinary:       defaultRepackageBinary,
		},
		Pipeline: Pipeline{
			ProcessSR: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
