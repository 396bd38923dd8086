package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"ledaps/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local storage locations.
type Paths struct {
	AncillaryDir string `toml:"ancillary_dir"`
	DownloadDir  string `toml:"download_dir"`
	LogDir       string `toml:"log_dir"`
	BinDir       string `toml:"bin_dir"`
}

// NCEP contains configuration for acquiring the yearly reanalysis files.
type NCEP struct {
	BaseURL               string `toml:"base_url"`
	MaxRetries            int    `toml:"max_retries"`
	RetryDelaySeconds     int    `toml:"retry_delay_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	RepackageBinary       string `toml:"repackage_binary"`
}

// Pipeline contains defaults for the scene processing pipeline.
type Pipeline struct {
	// ProcessSR enables the surface reflectance tail (lndsr, lndsrbm). When
	// false the run halts after the TOA reflectance products are complete.
	ProcessSR bool `toml:"process_sr"`
	// UseBin resolves stage executables inside paths.bin_dir instead of PATH.
	UseBin bool `toml:"use_bin"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ledaps.
//
// Configuration sections by subsystem:
//   - Paths: ancillary root, download staging, logs, and stage binaries
//   - NCEP: remote archive location, retry policy, and the repackaging tool
//   - Pipeline: optional surface reflectance stages and binary lookup
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	NCEP     NCEP     `toml:"ncep"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// ErrAncillaryRootMissing reports that no ancillary root was configured.
var ErrAncillaryRootMissing = fmt.Errorf("%w: ancillary root not set (paths.ancillary_dir, %s or %s)",
	services.ErrConfiguration, envAncillaryDir, envAncPath)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is read first so it can supply LEDAPS_AUX_DIR and BIN.
// The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load(".env")

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ledaps.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// AncillaryRoot returns the ancillary storage root. A missing root is a
// configuration error for every operation that touches local ancillary data.
func (c *Config) AncillaryRoot() (string, error) {
	root := strings.TrimSpace(c.Paths.AncillaryDir)
	if root == "" {
		return "", ErrAncillaryRootMissing
	}
	return root, nil
}

// EnsureDirectories creates the log directory. The ancillary tree is created
// lazily by the components that write into it.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// StageBinary returns the executable for a pipeline stage, resolved inside
// paths.bin_dir when pipeline.use_bin is set.
func (c *Config) StageBinary(name string, useBin bool) string {
	if useBin && c.Paths.BinDir != "" {
		return filepath.Join(c.Paths.BinDir, name)
	}
	return name
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
