// Package config loads the tool configuration from YAML or HCL files and
// supplies the defaults for everything unset.
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔍 ScanPolicy is the global file selection policy applied by every scan.
type ScanPolicy struct {
	IncludeExtensions []string `json:"include_extensions" yaml:"include_extensions"`
	ExcludeExtensions []string `json:"exclude_extensions" yaml:"exclude_extensions"`
	ExcludeFolders    []string `json:"exclude_folders" yaml:"exclude_folders"`
	IgnorePatterns    []string `json:"ignore_patterns" yaml:"ignore_patterns"`
}

// 📚 Config represents the complete configuration
type Config struct {
	DataDir           string     `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	DatabasePath      string     `json:"database_path,omitempty" yaml:"database_path,omitempty"`
	Workers           int        `json:"workers,omitempty" yaml:"workers,omitempty"`
	GitTimeoutSeconds int        `json:"git_timeout_seconds,omitempty" yaml:"git_timeout_seconds,omitempty"`
	Scan              ScanPolicy `json:"scan,omitempty" yaml:"scan,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// 🎯 Load loads the configuration from a file. An empty path falls back to
// the default search locations and, failing those, to Default().
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	if path == "" {
		path = findConfigFile()
		if path == "" {
			logger.Debug().Msg("no config file found, using defaults")
			return Default(), nil
		}
	}

	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration and fills in defaults for everything
// left unset.
func (cfg *Config) Validate() error {
	if cfg.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.GitTimeoutSeconds < 0 {
		return errors.Errorf("git_timeout_seconds must not be negative, got %d", cfg.GitTimeoutSeconds)
	}

	cfg.applyDefaults()

	cfg.DataDir = filepath.Clean(cfg.DataDir)
	cfg.DatabasePath = filepath.Clean(cfg.DatabasePath)
	return nil
}

// BackupDir returns the root directory for per-execution backups.
func (cfg *Config) BackupDir() string {
	return filepath.Join(cfg.DataDir, "backups")
}

// GitTimeout returns the per-command git timeout as a duration.
func (cfg *Config) GitTimeout() time.Duration {
	return time.Duration(cfg.GitTimeoutSeconds) * time.Second
}

func (cfg *Config) applyDefaults() {
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, "rulesweep")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "rulesweep.db")
	}
	if cfg.Workers == 0 {
		cfg.Workers = 8
	}
	if cfg.GitTimeoutSeconds == 0 {
		cfg.GitTimeoutSeconds = 120
	}
	if cfg.Scan.IncludeExtensions == nil {
		cfg.Scan.IncludeExtensions = []string{
			".cs", ".ts", ".tsx", ".js", ".jsx", ".sql",
			".cshtml", ".razor", ".html", ".css", ".scss",
		}
	}
	if cfg.Scan.ExcludeExtensions == nil {
		cfg.Scan.ExcludeExtensions = []string{".dll", ".exe", ".pdb", ".cache"}
	}
	if cfg.Scan.ExcludeFolders == nil {
		cfg.Scan.ExcludeFolders = []string{"bin", "obj", "node_modules", "packages", "dist", "build"}
	}
}

// findConfigFile checks the default locations in order.
func findConfigFile() string {
	candidates := []string{
		"rulesweep.yaml",
		"rulesweep.yml",
		"rulesweep.hcl",
		filepath.Join(xdg.ConfigHome, "rulesweep", "config.yaml"),
		filepath.Join(xdg.ConfigHome, "rulesweep", "config.hcl"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
