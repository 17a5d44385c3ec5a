package configwatcher

import "github.com/bft-labs/logship/pkg/logship"

// WithConfigWatcher returns a logship Option that enables config file
// watching. When enabled, the plugin monitors the config file and reports
// changes so operators know a restart is needed.
//
// Usage:
//
//	ship, err := logship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/logship/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) logship.Option {
	plugin := New(cfg)
	return logship.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns a logship Option that watches
// ~/.logship/config.toml with default settings (debounce 100ms).
//
// Usage:
//
//	ship, err := logship.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() logship.Option {
	return WithConfigWatcher(DefaultConfig())
}
