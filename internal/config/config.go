package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	LibraryDir string `toml:"library_dir"`
}

// Cdrdao contains configuration for the disc reader.
type Cdrdao struct {
	Binary               string `toml:"binary"`
	Device               string `toml:"device"`
	Driver               string `toml:"driver"`
	ReadRaw              bool   `toml:"read_raw"`
	FastParanoiaMode     int    `toml:"fast_paranoia_mode"`
	AccurateParanoiaMode int    `toml:"accurate_paranoia_mode"`
	// ErrorCorrection is the default for imports that do not choose explicitly.
	// Enabling it roughly halves read speed.
	ErrorCorrection  bool `toml:"error_correction"`
	StopGraceSeconds int  `toml:"stop_grace_seconds"`
}

// Bundle contains the on-disk layout of published image bundles.
type Bundle struct {
	Extension string `toml:"extension"`
	DataFile  string `toml:"data_file"`
	SheetFile string `toml:"sheet_file"`
}

// Disc contains drive interaction settings.
type Disc struct {
	WaitTimeoutSeconds int  `toml:"wait_timeout_seconds"`
	EjectOnSuccess     bool `toml:"eject_on_success"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// History contains configuration for the import journal.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for cdmedia.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Cdrdao  Cdrdao  `toml:"cdrdao"`
	Bundle  Bundle  `toml:"bundle"`
	Disc    Disc    `toml:"disc"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
	History History `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cdmedia/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
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
		decoder.DisallowUnknownFields()
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
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// EnsureDirectories creates the staging, state, and log directories.
// LibraryDir is created on a best-effort basis so imports into explicit
// destinations still work when external storage is offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// HistoryPath returns the location of the import journal database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding destination claim lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// StopGrace returns how long a cancelled cdrdao gets to exit before it is killed.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Cdrdao.StopGraceSeconds) * time.Second
}

// DiscWaitTimeout returns how long an import waits for media to appear.
func (c *Config) DiscWaitTimeout() time.Duration {
	return time.Duration(c.Disc.WaitTimeoutSeconds) * time.Second
}

// ParanoiaMode returns the cdrdao paranoia mode for the given error correction choice.
func (c *Config) ParanoiaMode(errorCorrection bool) int {
	if errorCorrection {
		return c.Cdrdao.AccurateParanoiaMode
	}
	return c.Cdrdao.FastParanoiaMode
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

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
