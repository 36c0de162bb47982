// Command docstatus checks the processing status of identity documents
// through the public checker page.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docstatus/internal/checker/browser"
	"docstatus/internal/checker/cache"
	"docstatus/internal/checker/service"
	"docstatus/internal/platform/config"
	"docstatus/internal/platform/logger"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "docstatus",
		Short:         "Document status checker",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./docstatus.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	load := func() (config.Config, *slog.Logger, error) {
		return loadConfig(v, configPath)
	}
	rootCmd.AddCommand(serveCmd(v, load))
	rootCmd.AddCommand(checkCmd(load))
	return rootCmd
}

func loadConfig(v *viper.Viper, path string) (config.Config, *slog.Logger, error) {
	used, err := config.ReadFile(v, path)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	if used != "" {
		log.Debug("configuration loaded", "file", used)
	}
	return cfg, log, nil
}

// serviceConfig maps the flat configuration onto the checker layers.
func serviceConfig(cfg config.Config) service.Config {
	return service.Config{
		Browser: browser.Config{
			MaxPoolSize:    cfg.Chrome.PoolSize,
			RequestTimeout: cfg.Checker.RequestTimeout,
			TargetURL:      cfg.Checker.TargetURL,
			Launch: browser.LaunchOptions{
				Headless:      cfg.Chrome.Headless,
				Args:          cfg.Chrome.Args,
				UserAgent:     cfg.Chrome.UserAgent,
				ExecPath:      cfg.Chrome.ExecPath,
				MarkerTimeout: cfg.Checker.MarkerTimeout,
			},
		},
		Cache: cache.Config{
			TTL:           cfg.Cache.TTL,
			SweepInterval: cfg.Cache.SweepInterval,
		},
		BreakerFailureThreshold: cfg.Breaker.FailureThreshold,
		BreakerCooldown:         cfg.Breaker.Cooldown,
	}
}
