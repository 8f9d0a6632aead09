package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "loader.watch_debounce_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// maxWatchDebounceMs bounds the reload delay to one minute
const maxWatchDebounceMs = 60_000

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLoader()...)
	errors = append(errors, c.validateMail()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateLoader validates the LoaderConfig
func (c *Config) validateLoader() []ValidationError {
	var errors []ValidationError

	for i, pattern := range c.Loader.Allow {
		field := fmt.Sprintf("loader.allow[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: "pattern cannot be empty",
			})
			continue
		}
		if _, err := glob.Compile(pattern, filepath.Separator); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	if c.Loader.WatchDebounceMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "loader.watch_debounce_ms",
			Value:   c.Loader.WatchDebounceMs,
			Message: "must be positive",
		})
	} else if c.Loader.WatchDebounceMs > maxWatchDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "loader.watch_debounce_ms",
			Value:   c.Loader.WatchDebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxWatchDebounceMs),
		})
	}

	return errors
}

// validateMail validates the MailConfig
func (c *Config) validateMail() []ValidationError {
	if slices.Contains(ValidMailOutputs(), c.Mail.Output) {
		return nil
	}
	return []ValidationError{{
		Field:   "mail.output",
		Value:   c.Mail.Output,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidMailOutputs(), ", ")),
	}}
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Null bytes are invalid in paths
	if strings.ContainsRune(c.Logging.File, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.file",
			Value:   c.Logging.File,
			Message: "path contains invalid null byte",
		})
	}

	return errors
}
