package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/coffersTech/nanotrace/internal/trace"
)

type Config struct {
	Trace  TraceConfig  `mapstructure:"trace"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Export ExportConfig `mapstructure:"export"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

type TraceConfig struct {
	// KeepColumns are the attributes kept as their own columns; every
	// other attribute folds into Details. Comma-separated in env form.
	KeepColumns []string `mapstructure:"keep_columns"`
	DetailsSep  string   `mapstructure:"details_sep"`
	Format      string   `mapstructure:"format"`
}

type FetchConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RetryCount     int `mapstructure:"retry_count"`
}

type ExportConfig struct {
	Table string `mapstructure:"table"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("nanotrace")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override: NANOTRACE_SERVER_ADDR,
	// NANOTRACE_TRACE_KEEP_COLUMNS, ...
	v.SetEnvPrefix("nanotrace")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("trace.keep_columns", trace.DefaultKeepColumns)
	v.SetDefault("trace.details_sep", "\n")
	v.SetDefault("trace.format", "auto")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.retry_count", 2)
	v.SetDefault("export.table", "events")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// TraceOptions converts the trace section into loader options.
func (c *Config) TraceOptions() (trace.Options, error) {
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Options{}, err
	}
	return trace.Options{
		KeepColumns: c.Trace.KeepColumns,
		DetailsSep:  c.Trace.DetailsSep,
		Format:      format,
	}, nil
}

// FetchTimeout returns the fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
