package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidBackends() []string      { return []string{"termios", "bugst"} }
func ValidMatchPolicies() []string { return []string{"substring", "suffix"} }
func ValidLogLevels() []string     { return []string{"debug", "info", "warn", "error"} }
func ValidLogFormats() []string    { return []string{"text", "json"} }

// Validate returns every invalid value in c.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if !slices.Contains(ValidBackends(), strings.ToLower(c.Transport.Backend)) {
		add("transport.backend", c.Transport.Backend, "must be one of "+strings.Join(ValidBackends(), ", "))
	}
	if c.Transport.BaudRate <= 0 {
		add("transport.baud_rate", c.Transport.BaudRate, "must be positive")
	}
	if c.Transport.ReadTimeout < 100*time.Millisecond || c.Transport.ReadTimeout > 25500*time.Millisecond {
		add("transport.read_timeout", c.Transport.ReadTimeout, "must be between 100ms and 25.5s")
	}

	if !slices.Contains(ValidMatchPolicies(), strings.ToLower(c.Match)) {
		add("match", c.Match, "must be one of "+strings.Join(ValidMatchPolicies(), ", "))
	}
	if strings.TrimSpace(c.Prompt) == "" {
		add("prompt", c.Prompt, "must not be empty")
	}
	for _, p := range c.Ports {
		if p < 0 {
			add("ports", p, "port numbers must not be negative")
		}
	}
	if c.PollInterval <= 0 {
		add("poll_interval", c.PollInterval, "must be positive")
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		add("logging.level", c.Logging.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		add("logging.format", c.Logging.Format, "must be one of "+strings.Join(ValidLogFormats(), ", "))
	}

	if c.Demo.Interval <= 0 {
		add("demo.interval", c.Demo.Interval, "must be positive")
	}
	return errs
}
