package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateCrash(&cfg.Crash)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateCrash(cfg *CrashConfig) {
	if strings.ContainsAny(cfg.Dir, `/\`) {
		v.addError("crash.dir", cfg.Dir, "must be a directory name, not a path")
	}

	if d, err := time.ParseDuration(cfg.GracePeriod); err != nil {
		v.addError("crash.grace_period", cfg.GracePeriod, "invalid duration")
	} else if d < 0 {
		v.addError("crash.grace_period", cfg.GracePeriod, "must not be negative")
	}

	if d, err := time.ParseDuration(cfg.AttributeTimeout); err != nil {
		v.addError("crash.attribute_timeout", cfg.AttributeTimeout, "invalid duration")
	} else if d <= 0 {
		v.addError("crash.attribute_timeout", cfg.AttributeTimeout, "must be positive")
	}

	if cfg.ExitCode == 0 {
		v.addError("crash.exit_code", cfg.ExitCode, "must be non-zero")
	}
	if cfg.MaxReports < 0 {
		v.addError("crash.max_reports", cfg.MaxReports, "must not be negative")
	}

	for i, p := range cfg.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			v.addError(fmt.Sprintf("crash.redact_patterns[%d]", i), p, "invalid regular expression")
		}
	}
}
