// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the inspireq CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the inspireq CLI.
var rootCmd = &cobra.Command{
	Use:   "inspireq",
	Short: "Fetch and report bibliographic records from INSPIRE-HEP",
	Long: `inspireq resolves arXiv and INSPIRE identifiers to INSPIRE-HEP literature
records, caches every response on disk, and writes the records as text,
CSV, JSON or CSL-YAML. Exported CSV files and the record catalog feed
date-windowed publication reports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Setup(logging.Config{
			Level:  cfg.Log.Level,
			Pretty: cfg.Log.Pretty,
			Output: os.Stderr,
		})
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./inspireq.yaml or ~/.config/inspireq/inspireq.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("cache-dir", "", "response cache directory (default .cache)")
	flags.Bool("per-record-cache", false, "keep one cache directory per identifier under the cache directory")

	viper.BindPFlag("debug", flags.Lookup("debug"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("cache.dir", flags.Lookup("cache-dir"))
	viper.BindPFlag("cache.per_record", flags.Lookup("per-record-cache"))

	setDefaults(types.DefaultConfig())
}

func setDefaults(d types.Config) {
	viper.SetDefault("http.timeout", d.HTTP.Timeout)
	viper.SetDefault("http.user_agent", d.HTTP.UserAgent)
	viper.SetDefault("http.requests_per_second", d.HTTP.RequestsPerSecond)
	viper.SetDefault("cache.dir", d.Cache.Dir)
	viper.SetDefault("cache.per_record", d.Cache.PerRecord)
	viper.SetDefault("inspire.api_base", d.Inspire.APIBase)
	viper.SetDefault("inspire.web_base", d.Inspire.WebBase)
	viper.SetDefault("batch.concurrency", d.Batch.Concurrency)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.pretty", d.Log.Pretty)
	viper.SetDefault("update", d.Update)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("inspireq")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "inspireq"))
		}
	}

	viper.SetEnvPrefix("INSPIREQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the configuration from defaults, the config file,
// INSPIREQ_* environment variables and bound flags.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if viper.GetBool("debug") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
