// Package config loads the demo binary's own knobs — log level, log file
// path, metrics listen address, and the synthetic order feed's shape.
// It never configures engine semantics: order flags, matching rules, and
// instrument identity are the caller's business, decided in code that
// constructs an orderbook.OrderBook directly.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config is the demo driver's configuration.
type Config struct {
	Logging struct {
		Level    string `mapstructure:"level"`
		FilePath string `mapstructure:"file_path"`
	} `mapstructure:"logging"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
	} `mapstructure:"metrics"`

	Feed struct {
		Instrument   string `mapstructure:"instrument"`
		OrderCount   int    `mapstructure:"order_count"`
		Seed         int64  `mapstructure:"seed"`
		PriceLevels  int    `mapstructure:"price_levels"`
		StopOrderPct int    `mapstructure:"stop_order_pct"`
	} `mapstructure:"feed"`
}

// Load reads configuration from configPath (if it exists), then from
// environment variables prefixed MATCHCORE_, then applies defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("MATCHCORE")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file_path", "matchcore-demo.log")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("feed.instrument", "DEMO-USD")
	v.SetDefault("feed.order_count", 200)
	v.SetDefault("feed.seed", 1)
	v.SetDefault("feed.price_levels", 10)
	v.SetDefault("feed.stop_order_pct", 5)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
