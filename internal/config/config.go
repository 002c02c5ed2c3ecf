// Package config provides configuration management for the items API server.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// APP_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultProbePort       = 9090
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultEventsEnabled   = true
	DefaultFrontendEnabled = true
)

// DefaultCORSAllowedOrigins allows any origin.
var DefaultCORSAllowedOrigins = []string{"*"}

// Environment variable names.
const (
	EnvConfigFile         = "APP_CONFIG_FILE"
	EnvServerPort         = "APP_SERVER_PORT"
	EnvProbePort          = "APP_PROBE_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvEventsEnabled      = "APP_EVENTS_ENABLED"
	EnvFrontendEnabled    = "APP_FRONTEND_ENABLED"
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
	EnvTLSEnabled         = "APP_TLS_ENABLED"
	EnvTLSCertPath        = "APP_TLS_CERT_PATH"
	EnvTLSKeyPath         = "APP_TLS_KEY_PATH"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int           `yaml:"server_port"`
	ProbePort       int           `yaml:"probe_port"` // 0 disables the probe listener.
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Feature toggles.
	MetricsEnabled  bool `yaml:"metrics_enabled"`
	EventsEnabled   bool `yaml:"events_enabled"`
	FrontendEnabled bool `yaml:"frontend_enabled"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// TLS settings.
	TLSEnabled  bool   `yaml:"tls_enabled"`
	TLSCertPath string `yaml:"tls_cert_path"`
	TLSKeyPath  string `yaml:"tls_key_path"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidProbePort       = errors.New("probe port must be between 0 and 65535")
	ErrProbePortConflict      = errors.New("probe port must differ from server port when probe port is not 0")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidTLSCertRequired = errors.New("TLS cert path and key path must be set when TLS is enabled")
	ErrNoCORSOrigins          = errors.New("at least one CORS allowed origin must be set")
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		ServerPort:         DefaultServerPort,
		ProbePort:          DefaultProbePort,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     DefaultMetricsEnabled,
		EventsEnabled:      DefaultEventsEnabled,
		FrontendEnabled:    DefaultFrontendEnabled,
		CORSAllowedOrigins: append([]string(nil), DefaultCORSAllowedOrigins...),
	}
}

// Load reads configuration from the file named by APP_CONFIG_FILE, if set,
// and from environment variables.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(EnvConfigFile))
}

// LoadFrom reads configuration from the YAML file at path and from
// environment variables. An empty path skips the file. Environment
// variables have priority over file values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFile merges the YAML file at path into the config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadFeatureEnv(); err != nil {
		return err
	}

	return c.loadTLSEnv()
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvProbePort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvProbePort, err)
		}
		c.ProbePort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	return nil
}

// loadFeatureEnv loads feature toggles and CORS origins.
func (c *Config) loadFeatureEnv() error {
	toggles := []struct {
		name string
		dst  *bool
	}{
		{EnvMetricsEnabled, &c.MetricsEnabled},
		{EnvEventsEnabled, &c.EventsEnabled},
		{EnvFrontendEnabled, &c.FrontendEnabled},
	}
	for _, toggle := range toggles {
		if err := parseBoolEnv(toggle.name, toggle.dst); err != nil {
			return err
		}
	}

	if val := os.Getenv(EnvCORSAllowedOrigins); val != "" {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

// loadTLSEnv loads TLS-related environment variables.
func (c *Config) loadTLSEnv() error {
	if err := parseBoolEnv(EnvTLSEnabled, &c.TLSEnabled); err != nil {
		return err
	}

	if val := os.Getenv(EnvTLSCertPath); val != "" {
		c.TLSCertPath = val
	}

	if val := os.Getenv(EnvTLSKeyPath); val != "" {
		c.TLSKeyPath = val
	}

	return nil
}

// parseBoolEnv sets dst from the named variable when it is present.
func parseBoolEnv(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = enabled
	return nil
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Flags holds command-line overrides. Only flags that were set on the
// command line are applied.
type Flags struct {
	ConfigFile string
	ServerPort int
	ProbePort  int
	LogLevel   string

	fs *pflag.FlagSet
}

// AddFlags registers the configuration flags on fs.
func (f *Flags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", "", "path to YAML config file (env "+EnvConfigFile+")")
	fs.IntVar(&f.ServerPort, "port", DefaultServerPort, "API listen port")
	fs.IntVar(&f.ProbePort, "probe-port", DefaultProbePort, "probe and metrics listen port, 0 disables")
	fs.StringVar(&f.LogLevel, "log-level", DefaultLogLevel, "log level: debug, info, warn, error")
	f.fs = fs
}

// Path returns the config file path: the --config flag if given, otherwise
// APP_CONFIG_FILE.
func (f *Flags) Path() string {
	if f.ConfigFile != "" {
		return f.ConfigFile
	}
	return os.Getenv(EnvConfigFile)
}

// Apply copies explicitly set flags into cfg and revalidates it.
func (f *Flags) Apply(cfg *Config) error {
	if f.fs == nil {
		return nil
	}

	if f.fs.Changed("port") {
		cfg.ServerPort = f.ServerPort
	}
	if f.fs.Changed("probe-port") {
		cfg.ProbePort = f.ProbePort
	}
	if f.fs.Changed("log-level") {
		cfg.LogLevel = f.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrNoCORSOrigins
	}

	if c.TLSEnabled && (c.TLSCertPath == "" || c.TLSKeyPath == "") {
		return ErrInvalidTLSCertRequired
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}
