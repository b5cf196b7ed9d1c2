package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCdrdao(); err != nil {
		return err
	}
	if err := c.validateBundle(); err != nil {
		return err
	}
	if c.Disc.WaitTimeoutSeconds < 0 {
		return errors.New("disc.wait_timeout_seconds must be zero or positive")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateCdrdao() error {
	if c.Cdrdao.StopGraceSeconds <= 0 {
		return errors.New("cdrdao.stop_grace_seconds must be positive")
	}
	for name, mode := range map[string]int{
		"cdrdao.fast_paranoia_mode":     c.Cdrdao.FastParanoiaMode,
		"cdrdao.accurate_paranoia_mode": c.Cdrdao.AccurateParanoiaMode,
	} {
		if mode < 0 || mode > 3 {
			return fmt.Errorf("%s must be between 0 and 3", name)
		}
	}
	if c.Cdrdao.FastParanoiaMode == c.Cdrdao.AccurateParanoiaMode {
		return errors.New("cdrdao.fast_paranoia_mode and cdrdao.accurate_paranoia_mode must differ")
	}
	return nil
}

func (c *Config) validateBundle() error {
	for name, value := range map[string]string{
		"bundle.data_file":  c.Bundle.DataFile,
		"bundle.sheet_file": c.Bundle.SheetFile,
	} {
		if value != filepath.Base(value) || value == "." || value == ".." {
			return fmt.Errorf("%s must be a plain file name, got %q", name, value)
		}
	}
	if c.Bundle.DataFile == c.Bundle.SheetFile {
		return errors.New("bundle.data_file and bundle.sheet_file must differ")
	}
	if strings.ContainsAny(c.Bundle.Extension, `/\`) {
		return fmt.Errorf("bundle.extension %q must not contain path separators", c.Bundle.Extension)
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
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
