// Package cmd provides the reef command-line interface.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--config, --port, ...)
//  2. REEF_CONFIG_FILE environment variable (custom config file path)
//  3. Individual REEF_ environment variables (REEF_SERVER_PORT, ...)
//  4. .reef.yml in the current directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coralpages/reef/internal/config"
	"github.com/coralpages/reef/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "reef",
	Short: "Compile declarative page templates into hydratable artifacts",
	Long: `Reef compiles declarative page templates into a static HTML skeleton
plus a set of interactive islands, then hydrates each island with its
own scoped reactive state.

Quick Start:
  reef init                      Initialize a new project
  reef compile page.reef         Compile a template to an artifact
  reef validate page.reef        Check a template without emitting output
  reef preview                   Start the preview server with live reload
  reef watch                     Recompile on file changes without serving`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .reef.yml, can also use REEF_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("REEF_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".reef")
	}

	viper.SetEnvPrefix("REEF")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine: defaults and env vars apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the loaded configuration.
func newLogger(cfg *config.Config) logging.Logger {
	level := logging.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}
