package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNCEP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.AncillaryDir) == "" {
		c.Paths.AncillaryDir = firstEnv(envAncillaryDir, envAncPath)
	}
	if strings.TrimSpace(c.Paths.BinDir) == "" {
		c.Paths.BinDir = firstEnv(envBinDir)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}

	var err error
	if c.Paths.AncillaryDir, err = expandPath(strings.TrimSpace(c.Paths.AncillaryDir)); err != nil {
		return fmt.Errorf("paths.ancillary_dir: %w", err)
	}
	if c.Paths.DownloadDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadDir)); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.BinDir, err = expandPath(strings.TrimSpace(c.Paths.BinDir)); err != nil {
		return fmt.Errorf("paths.bin_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNCEP() {
	c.NCEP.BaseURL = strings.TrimRight(strings.TrimSpace(c.NCEP.BaseURL), "/")
	if c.NCEP.BaseURL == "" {
		c.NCEP.BaseURL = defaultNCEPBaseURL
	}
	c.NCEP.RepackageBinary = strings.TrimSpace(c.NCEP.RepackageBinary)
	if c.NCEP.RepackageBinary == "" {
		c.NCEP.RepackageBinary = defaultRepackageBinary
	}
	if c.NCEP.RequestTimeoutSeconds <= 0 {
		c.NCEP.RequestTimeoutSeconds = defaultNCEPRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
