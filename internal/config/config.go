package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drewdunne/ghlink/internal/linker"
	"github.com/drewdunne/ghlink/internal/logging"
	"github.com/drewdunne/ghlink/internal/reference"
)

// Config represents the ghlink configuration.
type Config struct {
	Repository RepositorySetting `yaml:"repository"`
	Linking    LinkingConfig     `yaml:"linking"`
	Server     ServerConfig      `yaml:"server"`
	Logging    logging.Config    `yaml:"logging"`
}

// LinkingConfig controls how references are linked.
type LinkingConfig struct {
	BaseURL       string `yaml:"base_url"`
	linker.Policy `yaml:",inline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout bounds how long in-flight requests may finish once
	// the server is asked to stop.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Linking: LinkingConfig{
			BaseURL: reference.DefaultBaseURL,
			Policy:  linker.DefaultPolicy(),
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7070,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Validate checks values yaml cannot check by itself.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout %s is negative", c.Server.ShutdownTimeout)
	}
	if err := validateBaseURL(c.Linking.BaseURL); err != nil {
		return err
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("linking.base_url %q is not an absolute http(s) URL", raw)
	}
	return nil
}

// expandEnv substitutes ${VAR} with the value of the environment variable.
func expandEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}
