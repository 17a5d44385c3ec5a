package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", os.Getenv("LOGSHIP_INTAKE_URL"), &cfg.IntakeURL)
	s.setString("api-key", os.Getenv("LOGSHIP_API_KEY"), &cfg.APIKey)
	s.setString("input", os.Getenv("LOGSHIP_INPUT"), &cfg.Input)
	s.setString("log-level", os.Getenv("LOGSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("batch-size", os.Getenv("LOGSHIP_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("concurrency", os.Getenv("LOGSHIP_CONCURRENCY"), &cfg.Concurrency); err != nil {
		return err
	}

	s.setBoolFromString("watch-config", os.Getenv("LOGSHIP_WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("wait-on-eof", os.Getenv("LOGSHIP_WAIT_ON_EOF"), &cfg.WaitOnEOF)

	return nil
}
