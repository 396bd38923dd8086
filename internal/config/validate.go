package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. The ancillary root is not
// checked here; commands that need it call AncillaryRoot.
func (c *Config) Validate() error {
	if err := c.validateNCEP(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNCEP() error {
	parsed, err := url.Parse(c.NCEP.BaseURL)
	if err != nil {
		return fmt.Errorf("ncep.base_url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("ncep.base_url must use http or https, got %q", c.NCEP.BaseURL)
	}
	if c.NCEP.MaxRetries < 0 {
		return errors.New("ncep.max_retries must not be negative")
	}
	if c.NCEP.RetryDelaySeconds < 0 {
		return errors.New("ncep.retry_delay_seconds must not be negative")
	}
	if c.NCEP.RequestTimeoutSeconds <= 0 {
		return errors.New("ncep.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
