package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Args is an argument list that can be written in YAML either as a
// sequence or as a single whitespace separated string.
type Args []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Args) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = ParseArgs(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*a = list
		return nil
	default:
		return fmt.Errorf("line %d: args must be a string or a list", node.Line)
	}
}

// String joins the arguments with spaces.
func (a Args) String() string {
	return strings.Join(a, " ")
}

// LoadConfigFile loads configuration from a YAML file. Fields missing from
// the file keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ConfigLocations lists the config file search path in priority order.
func ConfigLocations() []string {
	locations := []string{
		"./avsbatch.yaml",
		"./avsbatch.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".avsbatch", "config.yaml"))
	}
	return append(locations, "/etc/avsbatch/config.yaml")
}

// FindConfigFile searches for a config file in the standard locations.
// Returns empty string if not found (non-fatal).
func FindConfigFile() string {
	for _, path := range ConfigLocations() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the config file at path, or the first one found in the standard
// locations when path is empty. Without any file the defaults are returned.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return NewConfig(), "", nil
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// SaveConfigFile saves configuration to a YAML file.
func SaveConfigFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
