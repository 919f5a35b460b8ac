// Package cmd provides the command-line interface for inlay.
//
// Configuration Loading Priority (highest to lowest):
//  1. Command-line flags (--config, --remote, etc.)
//  2. INLAY_CONFIG_FILE environment variable: custom config file path
//  3. Individual environment variables (INLAY_DISPLAY_REMOTE, etc.)
//  4. Configuration file (.inlay.yml) in the current directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inlaymedia/inlay/internal/config"
	"github.com/inlaymedia/inlay/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inlay",
	Short: "Inline-media annotation engine for text documents",
	Long: `Inlay scans text documents for embedded media references, resolves
attribute placeholders inside resource locators, fetches remote assets into a
local cache under an explicit opt-in policy, and maintains live annotation
spans over the referenced ranges.

Quick Start:
  inlay scan doc.adoc             List media references in a document
  inlay display doc.adoc          Annotate every resolvable reference
  inlay watch doc.adoc            Re-annotate on every save
  inlay resolve doc.adoc LOCATOR  Expand {attribute} placeholders`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .inlay.yml, can also use INLAY_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("INLAY_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".inlay")
	}

	// INLAY_DISPLAY_REMOTE, INLAY_CACHE_DIR, and friends.
	viper.SetEnvPrefix("INLAY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or malformed config file degrades to defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from loaded configuration.
func newLogger(cfg *config.Config) *logging.InlayLogger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}
