// Package config loads iphunt's runtime settings.
//
// Values are layered by spf13/viper, lowest precedence first: built-in
// defaults, an optional YAML file, IPHUNT_* environment variables and
// command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/iphunt/internal/keyspace"
	"github.com/dreamware/iphunt/internal/progress"
)

// EnvPrefix namespaces environment overrides, e.g. IPHUNT_WORKERS=8.
const EnvPrefix = "IPHUNT"

// Output modes for progress reporting.
const (
	OutputText = "text" // one line per tick on stdout
	OutputBar  = "bar"  // terminal progress bar on stderr
	OutputLog  = "log"  // structured log entries
	OutputNone = "none" // no progress output
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the effective settings of one run.
type Config struct {
	Range      string        `mapstructure:"range"`       // Optional IPv4 range or CIDR restricting the search
	Output     string        `mapstructure:"output"`      // Progress output mode
	LogLevel   string        `mapstructure:"log_level"`   // logrus level name
	LogFormat  string        `mapstructure:"log_format"`  // "text" or "json"
	StatusAddr string        `mapstructure:"status_addr"` // Listen address of the status server, empty disables it
	Interval   time.Duration `mapstructure:"interval"`    // Progress sampling interval
	Workers    int           `mapstructure:"workers"`     // Worker count, 0 means one per logical CPU
	Window     int           `mapstructure:"window"`      // Throughput moving-window size in samples
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("workers", 0)
	v.SetDefault("interval", progress.DefaultInterval)
	v.SetDefault("window", 0)
	v.SetDefault("range", "")
	v.SetDefault("output", OutputText)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("status_addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers the configuration flags on fs and binds them to v so
// that a flag set on the command line overrides file and environment values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.Int("workers", 0, "number of parallel workers (0 = one per CPU)")
	fs.Duration("interval", progress.DefaultInterval, "progress sampling interval")
	fs.Int("window", 0, "average throughput over the last N samples (0 = cumulative)")
	fs.String("range", "", "restrict the search to an IPv4 range (a.b.c.d-e.f.g.h or CIDR)")
	fs.String("output", OutputText, "progress output: text, bar, log or none")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("status-addr", "", "serve /health and /progress on this address")

	for key, flag := range map[string]string{
		"workers":     "workers",
		"interval":    "interval",
		"window":      "window",
		"range":       "range",
		"output":      "output",
		"log_level":   "log-level",
		"log_format":  "log-format",
		"status_addr": "status-addr",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the optional YAML file at path into v, decodes the layered
// settings and validates them. A zero worker count is resolved to
// runtime.NumCPU().
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field for a usable value.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, c.Interval)
	}
	if c.Window < 0 {
		return fmt.Errorf("%w: window must not be negative, got %d", ErrInvalidConfig, c.Window)
	}
	switch c.Output {
	case OutputText, OutputBar, OutputLog, OutputNone:
	default:
		return fmt.Errorf("%w: unknown output mode %q", ErrInvalidConfig, c.Output)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Space(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Space returns the range to search: the configured restriction, or the
// whole IPv4 space when none is set.
func (c Config) Space() (keyspace.Range, error) {
	if c.Range == "" {
		return keyspace.Full, nil
	}
	return keyspace.ParseRange(c.Range)
}

// yamlConfig is the file representation; durations are written as strings
// such as "100ms" so the output can be read back by Load.
type yamlConfig struct {
	Workers    int    `yaml:"workers"`
	Interval   string `yaml:"interval"`
	Window     int    `yaml:"window"`
	Range      string `yaml:"range,omitempty"`
	Output     string `yaml:"output"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	StatusAddr string `yaml:"status_addr,omitempty"`
}

// YAML renders the configuration in the format Load accepts.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(yamlConfig{
		Workers:    c.Workers,
		Interval:   c.Interval.String(),
		Window:     c.Window,
		Range:      c.Range,
		Output:     c.Output,
		LogLevel:   c.LogLevel,
		LogFormat:  c.LogFormat,
		StatusAddr: c.StatusAddr,
	})
}

// NewLogger builds a logrus logger writing to out with the configured level
// and format. Validate has already vetted both.
func NewLogger(c Config, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}
	return logger
}
