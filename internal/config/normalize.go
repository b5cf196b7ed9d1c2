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
	c.normalizeCdrdao()
	c.normalizeBundle()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCdrdao() {
	c.Cdrdao.Binary = strings.TrimSpace(c.Cdrdao.Binary)
	if value, ok := os.LookupEnv("CDMEDIA_CDRDAO"); ok && strings.TrimSpace(value) != "" {
		c.Cdrdao.Binary = strings.TrimSpace(value)
	}
	if c.Cdrdao.Binary == "" {
		c.Cdrdao.Binary = defaultCdrdaoBinary
	}
	c.Cdrdao.Device = strings.TrimSpace(c.Cdrdao.Device)
	if value, ok := os.LookupEnv("CDMEDIA_DEVICE"); ok && strings.TrimSpace(value) != "" {
		c.Cdrdao.Device = strings.TrimSpace(value)
	}
	c.Cdrdao.Driver = strings.TrimSpace(c.Cdrdao.Driver)
}

func (c *Config) normalizeBundle() {
	ext := strings.TrimSpace(c.Bundle.Extension)
	if ext == "" {
		ext = defaultBundleExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Bundle.Extension = ext
	c.Bundle.DataFile = strings.TrimSpace(c.Bundle.DataFile)
	if c.Bundle.DataFile == "" {
		c.Bundle.DataFile = defaultDataFileName
	}
	c.Bundle.SheetFile = strings.TrimSpace(c.Bundle.SheetFile)
	if c.Bundle.SheetFile == "" {
		c.Bundle.SheetFile = defaultSheetFileName
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

func (c *Config) normalizeMetrics() error {
	if strings.TrimSpace(c.Metrics.TextfilePath) == "" {
		c.Metrics.TextfilePath = ""
		return nil
	}
	var err error
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}
