package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete postoffice configuration
type Config struct {
	Loader  LoaderConfig  `mapstructure:"loader"`
	Mail    MailConfig    `mapstructure:"mail"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LoaderConfig controls module loading
type LoaderConfig struct {
	// Allow lists glob patterns a module's absolute path must match.
	// "*" stays within one directory, "**" crosses directories.
	// Empty allows every path.
	Allow []string `mapstructure:"allow"`
	// WatchDebounceMs is how long `load --watch` waits after the last
	// change before reloading (default: 200)
	WatchDebounceMs int `mapstructure:"watch_debounce_ms"`
}

// MailConfig controls the mail stub
type MailConfig struct {
	// Output is the stream mail announcements are written to.
	// Options: "stdout", "stderr"
	Output string `mapstructure:"output"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is the log file path. Empty logs to stderr.
	File string `mapstructure:"file"`
}

// WatchDebounce returns the watch debounce as a time.Duration
func (c *LoaderConfig) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Allow:           []string{},
			WatchDebounceMs: 200,
		},
		Mail: MailConfig{
			Output: "stdout",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Loader defaults
	viper.SetDefault("loader.allow", defaults.Loader.Allow)
	viper.SetDefault("loader.watch_debounce_ms", defaults.Loader.WatchDebounceMs)

	// Mail defaults
	viper.SetDefault("mail.output", defaults.Mail.Output)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "postoffice")
	}
	// Fall back to ~/.config/postoffice
	home, err := os.UserHomeDir()
	if err != nil {
		return ".postoffice"
	}
	return filepath.Join(home, ".config", "postoffice")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidMailOutputs returns the list of valid mail output streams
func ValidMailOutputs() []string {
	return []string{"stdout", "stderr"}
}
