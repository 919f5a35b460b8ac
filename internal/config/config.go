// Package config provides configuration management for the annotation engine
// using Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// Configuration is read from .inlay.yml with INLAY_-prefixed environment
// variable overrides following the INLAY_<SECTION>_<OPTION> pattern. Remote
// display is off by default and gated behind a protocol allow-list that only
// contains "https" unless widened explicitly.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	inlayerrors "github.com/inlaymedia/inlay/internal/errors"
)

type Config struct {
	Display DisplayConfig `yaml:"display"`
	Cache   CacheConfig   `yaml:"cache"`
	Scan    ScanConfig    `yaml:"scan"`
	Logging LoggingConfig `yaml:"logging"`
}

// DisplayConfig controls whether and how annotations are materialized.
type DisplayConfig struct {
	// Remote enables fetching assets that are not present locally. Off by
	// default: a document must not trigger network access unless the user
	// opted in.
	Remote bool `yaml:"remote"`
	// Protocols is the URL scheme allow-list consulted before any fetch.
	Protocols []string `yaml:"protocols"`
	// MaxImageSize caps rendered dimensions as "WIDTHxHEIGHT". Empty means
	// uncapped. Only honored when the annotation surface supports sizing.
	MaxImageSize string `yaml:"max_image_size"`
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
}

type ScanConfig struct {
	Marker string `yaml:"marker"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle protocols set via viper (workaround for viper slice handling)
	if viper.IsSet("display.protocols") && len(config.Display.Protocols) == 0 {
		protocols := viper.GetStringSlice("display.protocols")
		if len(protocols) > 0 {
			config.Display.Protocols = protocols
		}
	}
	if viper.IsSet("display.remote") {
		config.Display.Remote = viper.GetBool("display.remote")
	}

	// Handle max_image_size set via viper (workaround for viper key handling)
	if viper.IsSet("display.max_image_size") && config.Display.MaxImageSize == "" {
		config.Display.MaxImageSize = viper.GetString("display.max_image_size")
	}

	// Apply defaults for anything not set explicitly.
	if len(config.Display.Protocols) == 0 {
		config.Display.Protocols = []string{"https"}
	}
	if config.Scan.Marker == "" {
		config.Scan.Marker = "image"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for values the engine cannot act on.
func (c *Config) Validate() error {
	for _, proto := range c.Display.Protocols {
		if proto == "" || strings.ContainsAny(proto, ":/ ") {
			return inlayerrors.NewConfigError(
				fmt.Sprintf("invalid protocol %q in display.protocols", proto), nil)
		}
	}
	if c.Display.MaxImageSize != "" {
		if _, _, err := ParseMaxSize(c.Display.MaxImageSize); err != nil {
			return inlayerrors.NewConfigError(
				fmt.Sprintf("invalid display.max_image_size %q", c.Display.MaxImageSize), err)
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return inlayerrors.NewConfigError(
			fmt.Sprintf("invalid logging.format %q (want text or json)", c.Logging.Format), nil)
	}
	return nil
}

// AllowsScheme reports whether the given URL scheme is on the allow-list.
// Comparison is case-insensitive; schemes are canonically lowercase.
func (c *DisplayConfig) AllowsScheme(scheme string) bool {
	for _, proto := range c.Protocols {
		if strings.EqualFold(proto, scheme) {
			return true
		}
	}
	return false
}

// ParseMaxSize parses a "WIDTHxHEIGHT" cap into its two dimensions.
func ParseMaxSize(value string) (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(value), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want WIDTHxHEIGHT, got %q", value)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("dimensions must be positive, got %dx%d", width, height)
	}
	return width, height, nil
}
