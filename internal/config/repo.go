package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RepoConfigFile is the name of the repository-level config file.
const RepoConfigFile = ".ghlink.yaml"

// ErrConfigNotFound indicates the repo config file doesn't exist.
var ErrConfigNotFound = errors.New("config not found")

// RepoConfig represents repository-level configuration, kept next to the
// documents it applies to.
type RepoConfig struct {
	Repository RepositorySetting `yaml:"repository"`
	Linking    RepoLinkingConfig `yaml:"linking"`
}

// RepoLinkingConfig overrides linking settings. Unset booleans keep the
// main config's value.
type RepoLinkingConfig struct {
	BaseURL   string `yaml:"base_url"`
	SkipCode  *bool  `yaml:"skip_code"`
	SkipLinks *bool  `yaml:"skip_links"`
}

// FileReader reads files.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSReader reads from the local filesystem and reports missing files as
// ErrConfigNotFound.
type OSReader struct{}

// ReadFile implements FileReader.
func (OSReader) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	return data, err
}

// LoadRepoConfig loads the repo config from .ghlink.yaml in dir.
func LoadRepoConfig(reader FileReader, dir string) (*RepoConfig, error) {
	data, err := reader.ReadFile(filepath.Join(dir, RepoConfigFile))
	if errors.Is(err, ErrConfigNotFound) {
		return &RepoConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading repo config: %w", err)
	}

	var cfg RepoConfig
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing repo config: %w", err)
	}

	return &cfg, nil
}
