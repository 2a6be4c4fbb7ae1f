package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProcessConfig represents the configuration for an external command.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of commands.yaml
type ConfigFile struct {
	Commands []ProcessConfig `yaml:"commands" json:"commands"`
}

// DefaultCommands registers the media tools under their own names, resolved from PATH.
func DefaultCommands() map[string]ProcessConfig {
	return map[string]ProcessConfig{
		"manim":  {Name: "manim", Command: "manim", Description: "Manim Community renderer"},
		"ffmpeg": {Name: "ffmpeg", Command: "ffmpeg", Description: "FFmpeg muxer"},
	}
}

// LoadCommands reads a configuration file (YAML or JSON) and overlays it on the defaults.
// A missing file yields the defaults.
func LoadCommands(path string) (map[string]ProcessConfig, error) {
	commands := DefaultCommands()
	if path == "" {
		return commands, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return commands, nil
		}
		return nil, fmt.Errorf("failed to read commands config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	for _, c := range cfg.Commands {
		if c.Name == "" || c.Command == "" {
			continue
		}
		commands[c.Name] = c
	}

	return commands, nil
}
