package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-casebook/pkg/search"
)

// File is the layout of config.yaml.
type File struct {
	Root        string       `yaml:"root,omitempty"`
	Editor      string       `yaml:"editor,omitempty"`
	DataDir     string       `yaml:"data_dir"`
	LogLevel    string       `yaml:"log_level"`
	Watch       bool         `yaml:"watch"`
	MetricsAddr string       `yaml:"metrics_addr,omitempty"`
	Search      SearchConfig `yaml:"search"`
	S3          S3Config     `yaml:"s3,omitempty"`
}

type SearchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// DefaultFile returns the settings InitConfig falls back to.
func DefaultFile() File {
	home, _ := os.UserHomeDir()
	return File{
		DataDir:  filepath.Join(home, ".local", "share", "cb"),
		LogLevel: "warn",
		Search:   SearchConfig{Concurrency: search.DefaultConcurrency},
		S3:       S3Config{Region: "us-east-1"},
	}
}

// DefaultConfigPath is where InitConfig looks when --config is not given.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cb", "config.yaml"), nil
}

// WriteFile writes f to path as YAML. An existing file is only replaced
// when force is set.
func WriteFile(path string, f File, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
