package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logship/internal/adapters/ndjson"
	"github.com/bft-labs/logship/internal/cliconfig"
	logAdapter "github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/logship"
	"github.com/bft-labs/logship/plugins/configwatcher"
)

const helpBanner = `
 █████         ███████     █████████    █████████  █████   █████ █████ ███████████
░░███         ███░░░███   ███░░░░░███  ███░░░░░███░░███   ░░███ ░░███ ░░███░░░░░███
 ░███        ███   ░░███ ░███    ░░░  ░███    ░░░  ░███    ░███  ░███  ░███    ░███
 ░███       ░███    ░███ ░███         ░░█████████  ░███████████  ░███  ░██████████
 ░███       ░███    ░███ ░███   █████  ░░░░░░░░███ ░███░░░░░███  ░███  ░███░░░░░░
 ░███      █░░███   ███  ░███  ░░░███  ███    ░███ ░███    ░███  ░███  ░███
 ███████████ ░░███████   ░░█████████  ░░█████████  █████   █████ █████ █████
░░░░░░░░░░░   ░░░░░░░     ░░░░░░░░░    ░░░░░░░░░  ░░░░░   ░░░░░ ░░░░░ ░░░░░
`

const helpDescription = `
Ship newline-delimited JSON records to a Datadog-compatible log intake.

Highlights:
  - Batches records and sends them concurrently with bounded memory.
  - Backpressure instead of drops: submission blocks while the buffer is full.
  - Configure via file ($HOME/.logship/config.toml), env (LOGSHIP_*), or flags.
  - Requires an API key with log intake access (sent as DD-API-KEY).
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  tail -f app.ndjson | logship --api-key <api-key>
  logship --input records.ndjson --batch-size 200 --concurrency 4
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger(cfg.LogLevel)

	root := &cobra.Command{
		Use:     "logship",
		Short:   "Ship newline-delimited JSON records to a Datadog-compatible log intake",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.logship/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cliconfig.ApplyFileConfig(&cfg, fc, changed)
			}

			// Apply environment variables (LOGSHIP_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// Validate and normalize
			if err := cfg.Validate(); err != nil {
				return err
			}

			log = cliconfig.Logger(cfg.LogLevel)

			// Log configuration (masking API key)
			logCfg := cfg
			if len(logCfg.APIKey) > 0 {
				logCfg.APIKey = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			// Open the input before building the pipeline so a bad path fails fast
			in, closeIn, err := openInput(cfg.Input)
			if err != nil {
				return err
			}
			defer closeIn()

			libCfg := logship.Config{
				IntakeURL:   cfg.IntakeURL,
				APIKey:      cfg.APIKey,
				BatchSize:   cfg.BatchSize,
				Concurrency: cfg.Concurrency,
			}

			opts := []logship.Option{
				logship.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
			}
			if cfg.WatchConfig && cfgFile != "" {
				// Report config file edits; settings are fixed until restart
				opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
					Path: cfgFile,
				}))
			}

			ship, err := logship.New(libCfg, opts...)
			if err != nil {
				return fmt.Errorf("create logship: %w", err)
			}

			// Setup signal handling for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := ship.Start(ctx); err != nil {
				return fmt.Errorf("start logship: %w", err)
			}

			// Pump records off the input until EOF or cancellation
			readErr := make(chan error, 1)
			go func() {
				readErr <- pump(ctx, ship, in)
			}()

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
				// Unblocks a submit stalled on backpressure
				cancel()
			case err := <-readErr:
				if err != nil {
					log.Error().Err(err).Msg("input stream failed")
				} else if cfg.WaitOnEOF {
					log.Info().Msg("input drained, waiting for signal...")
					<-sigCh
					log.Info().Msg("received signal, stopping...")
				}
			}

			// Graceful shutdown; records still buffered below a full batch are dropped
			if err := ship.Stop(); err != nil {
				return fmt.Errorf("stop logship: %w", err)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.logship/config.toml)")
	root.Flags().StringVar(&cfg.IntakeURL, "url", cfg.IntakeURL, "log intake endpoint URL")
	root.Flags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key sent as DD-API-KEY")

	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "records per batch")
	root.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "maximum concurrent sends")

	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "NDJSON input path (- for stdin)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "watch the config file and report changes")
	root.Flags().BoolVar(&cfg.WaitOnEOF, "wait-on-eof", cfg.WaitOnEOF, "keep running after input EOF until signalled")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("logship")
		os.Exit(1)
	}
}

// openInput returns the NDJSON source; "-" selects stdin.
func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

// pump decodes records from in and submits them until EOF, a read error,
// or cancellation.
func pump(ctx context.Context, ship *logship.Logship, in io.Reader) error {
	reader := ndjson.NewReader(in)
	for {
		rec, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if err := ship.Submit(ctx, rec); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("submit record: %w", err)
		}
	}
}
