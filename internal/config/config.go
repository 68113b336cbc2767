package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds operator-level CLI preferences. It is distinct from the
// project policy: nothing here influences decisions, only how the CLI
// presents them.
type Config struct {
	Audit AuditConfig `yaml:"audit"`
	Hook  HookConfig  `yaml:"hook"`
	MCP   MCPConfig   `yaml:"mcp"`
}

// AuditConfig holds audit reporting preferences. Tail is parsed and
// defaulted to 20; no command reads it (`guardian audit summary` tallies
// the whole file).
type AuditConfig struct {
	Tail int `yaml:"tail"`
}

// HookConfig holds hook diagnostics preferences. StderrDiagnostics is
// parsed only; `guardian validate` does not load this config and always
// writes its notes to stderr.
type HookConfig struct {
	StderrDiagnostics bool `yaml:"stderr_diagnostics"`
}

// MCPConfig controls the MCP server surface.
type MCPConfig struct {
	ServerName string `yaml:"server_name"`
}

// DefaultConfig returns the default preferences.
func DefaultConfig() *Config {
	return &Config{
		Audit: AuditConfig{Tail: 20},
		Hook:  HookConfig{StderrDiagnostics: true},
		MCP:   MCPConfig{ServerName: "guardian"},
	}
}

// Load reads the config from the standard location
// (~/.config/guardian/config.yaml). A missing file yields the defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "guardian", "config.yaml"))
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Audit.Tail <= 0 {
		cfg.Audit.Tail = 20
	}
	return cfg, nil
}
