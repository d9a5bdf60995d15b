// Package config loads crashlog settings from defaults, the config file and
// CRASHLOG_* environment variables.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	Crash CrashConfig `mapstructure:"crash" yaml:"crash"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// CrashConfig configures fault capture and report persistence.
type CrashConfig struct {
	// Dir is the report directory name under StorageRoot.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// StorageRoot defaults to the user cache directory when empty.
	StorageRoot      string   `mapstructure:"storage_root" yaml:"storage_root,omitempty"`
	GracePeriod      string   `mapstructure:"grace_period" yaml:"grace_period"`
	ExitCode         int      `mapstructure:"exit_code" yaml:"exit_code"`
	MaxReports       int      `mapstructure:"max_reports" yaml:"max_reports"`
	IncludeEnv       bool     `mapstructure:"include_env" yaml:"include_env"`
	Redact           bool     `mapstructure:"redact" yaml:"redact"`
	RedactPatterns   []string `mapstructure:"redact_patterns" yaml:"redact_patterns,omitempty"`
	AttributeTimeout string   `mapstructure:"attribute_timeout" yaml:"attribute_timeout"`
	RuntimeOutput    bool     `mapstructure:"runtime_output" yaml:"runtime_output"`
	MetricsTextfile  string   `mapstructure:"metrics_textfile" yaml:"metrics_textfile,omitempty"`
}

// Defaults for the crash section.
const (
	DefaultCrashDir         = "crashlog"
	DefaultGracePeriod      = "3s"
	DefaultExitCode         = 1
	DefaultAttributeTimeout = "500ms"
)

// GraceDuration returns the parsed grace period, or the default when the
// value does not parse.
func (c CrashConfig) GraceDuration() time.Duration {
	return parseDurationOr(c.GracePeriod, 3*time.Second)
}

// AttributeTimeoutDuration returns the parsed per-attribute timeout, or the
// default when the value does not parse.
func (c CrashConfig) AttributeTimeoutDuration() time.Duration {
	return parseDurationOr(c.AttributeTimeout, 500*time.Millisecond)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
