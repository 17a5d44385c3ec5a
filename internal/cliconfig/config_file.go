package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML field names. Booleans are pointers so
// an absent key is distinguishable from an explicit false.
type FileConfig struct {
	IntakeURL   string `toml:"intake_url"`
	APIKey      string `toml:"api_key"`
	BatchSize   int    `toml:"batch_size"`
	Concurrency int    `toml:"concurrency"`
	Input       string `toml:"input"`
	LogLevel    string `toml:"log_level"`
	WatchConfig *bool  `toml:"watch_config"`
	WaitOnEOF   *bool  `toml:"wait_on_eof"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.logship/config.toml if the user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("url", fc.IntakeURL, &cfg.IntakeURL)
	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)

	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("wait-on-eof", fc.WaitOnEOF, &cfg.WaitOnEOF)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
